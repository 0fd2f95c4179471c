package main

import (
	"github.com/spf13/cobra"

	"github.com/nightgate/nightgate/pkg/simulator"
)

func simulateCmd(opts *globalOptions) *cobra.Command {
	var (
		scenario int
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scenario against the local simulator",
		Long: `Play one of the built-in scenarios against a seeded local game that draws
independent attributes from the scenario's frequencies. No network access.

Examples:
  bouncer simulate --scenario 2 --seed 42
  bouncer simulate --scenario 3 --policy helper --log-format console`,
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
			simCfg := a.cfg.Simulator
			if cmd.Flags().Changed("seed") {
				simCfg.Seed = seed
			}
			game, err := simulator.New(setup, simCfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			return a.play(ctx, cmd.OutOrStdout(), runSpec{
				game:     game.Setup(),
				scenario: scenario,
				playerID: "simulator",
				source:   game,
				sink:     game,
			})
		},
	}

	cmd.Flags().IntVar(&scenario, "scenario", 1, "Built-in scenario (1-3)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed (default from config)")

	return cmd
}
