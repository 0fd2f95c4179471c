// bouncer plays the admission game: it decides, one arrival at a time,
// whom to let in until the venue is full.
//
// Usage:
//
//	bouncer run --scenario 1 --player-id <uuid>
//	bouncer simulate --scenario 2 --seed 7
//	bouncer replay --scenario 1 -f arrivals.jsonl
//	bouncer token --subject ops
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "bouncer",
		Short: "Online admission control for quota-constrained venues",
		Long: `bouncer admits or rejects a stream of candidates until the venue holds
its capacity, trying to satisfy every minimum-count constraint while
rejecting as few people as possible.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.policy, "policy", "", "Decision policy: trajectory or helper (default from config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format override: json or console")
	rootCmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	rootCmd.PersistentFlags().BoolVar(&opts.record, "record", true, "Persist and publish runs when database or redis are enabled")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(simulateCmd(opts))
	rootCmd.AddCommand(replayCmd(opts))
	rootCmd.AddCommand(tokenCmd(opts))

	return rootCmd
}
