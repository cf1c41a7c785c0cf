package cmd

import (
	"errors"
	"time"

	"github.com/mikaelmello/reachping/core"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrUnreachable is returned by commands whose target did not reply. The result is already printed.
var ErrUnreachable = errors.New("host is not reachable")

// options holds the flags shared by every command.
type options struct {
	timeout     time.Duration
	family      string
	privileged  bool
	ttl         int
	size        int
	verbose     int
	dumpMetrics bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:           "reachping",
	Short:         "reachping tells whether the internet is really reachable",
	Long:          "reachping sends ICMP echo requests to tell a working internet connection apart from a merely active network interface",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.DurationVarP(&opts.timeout, "timeout", "W", 2*time.Second, "time to wait for the reply")
	flags.StringVarP(&opts.family, "family", "f", "any", "address family to use: any, 4 or 6")
	flags.BoolVarP(&opts.privileged, "privileged", "p", false, "use raw ICMP sockets (requires privileges)")
	flags.IntVarP(&opts.ttl, "ttl", "t", 64, "IP time to live")
	flags.IntVarP(&opts.size, "size", "s", 0, "echo payload size in bytes (0 for the default 56 byte payload)")
	flags.CountVarP(&opts.verbose, "verbose", "v", "increase logging verbosity")
	flags.BoolVar(&opts.dumpMetrics, "metrics", false, "print session metrics to stderr when done")

	rootCmd.AddCommand(pingCmd, checkCmd)
}

// Execute runs the command line
func Execute() error {
	return rootCmd.Execute()
}

// buildSettings converts the flags into session settings.
func buildSettings(o *options) (*core.Settings, error) {
	family, err := core.ParseAddressFamily(o.family)
	if err != nil {
		return nil, err
	}

	level := log.WarnLevel + log.Level(o.verbose)
	if level > log.TraceLevel {
		level = log.TraceLevel
	}

	settings := core.DefaultSettings()
	settings.Timeout = o.timeout
	settings.Family = family
	settings.Privileged = o.privileged
	settings.TTL = o.ttl
	settings.PayloadSize = o.size
	settings.LoggingLevel = uint32(level)

	return settings, nil
}
