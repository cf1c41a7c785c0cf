package cmd

import (
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping HOST",
	Short: "Send one echo request to HOST and wait for its reply",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	settings, err := buildSettings(&opts)
	if err != nil {
		return err
	}

	gather, err := withMetrics(settings, opts.dumpMetrics)
	if err != nil {
		return err
	}
	defer gather()

	r, err := newRunner(args[0], settings)
	if err != nil {
		return err
	}

	r.Start()
	res, ok := r.Wait()
	if !ok || !res.Succeeded() {
		return ErrUnreachable
	}
	return nil
}
