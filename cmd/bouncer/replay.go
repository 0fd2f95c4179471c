package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/simulator"
)

func replayCmd(opts *globalOptions) *cobra.Command {
	var (
		scenario int
		file     string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded arrivals through the policy",
		Long: `Feed a recorded arrival sequence, one JSON candidate per line, through the
policy using the constraints of a built-in scenario.

Each line looks like {"personIndex":0,"attributes":{"young":true}}.

Examples:
  bouncer replay --scenario 1 -f arrivals.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			setup, err := simulator.Scenario(scenario)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open arrivals: %w", err)
			}
			defer f.Close()

			arrivals, err := admission.LoadArrivals(f)
			if err != nil {
				return fmt.Errorf("failed to read arrivals: %w", err)
			}
			replay := admission.NewReplay(setup.Capacity, arrivals)

			ctx, cancel := signalContext()
			defer cancel()

			return a.play(ctx, cmd.OutOrStdout(), runSpec{
				game:     setup,
				scenario: scenario,
				playerID: "replay",
				source:   replay,
				sink:     replay,
			})
		},
	}

	cmd.Flags().IntVar(&scenario, "scenario", 1, "Built-in scenario supplying the constraints")
	cmd.Flags().StringVarP(&file, "filename", "f", "", "JSON-lines arrivals file (required)")
	cmd.MarkFlagRequired("filename")

	return cmd
}
