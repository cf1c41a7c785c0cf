package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikaelmello/reachping/core"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check HOST...",
	Short: "Ping every HOST in parallel and report reachable if any of them replies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, err := buildSettings(&opts)
	if err != nil {
		return err
	}

	gather, err := withMetrics(settings, opts.dumpMetrics)
	if err != nil {
		return err
	}
	defer gather()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reachable := core.FirstSuccess(ctx, probesFor(args, settings)...)
	printReachability(args, reachable)

	if !reachable {
		return ErrUnreachable
	}
	return nil
}

// probesFor returns one ICMP probe per host, all sharing settings.
func probesFor(hosts []string, settings *core.Settings) []core.Probe {
	probes := make([]core.Probe, 0, len(hosts))
	for _, h := range hosts {
		probes = append(probes, &core.ICMPProbe{Host: h, Settings: settings})
	}
	return probes
}
