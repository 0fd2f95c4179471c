package main

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/gameclient"
)

func runCmd(opts *globalOptions) *cobra.Command {
	var (
		scenario int
		playerID string
		baseURL  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a game against the remote game server",
		Long: `Start a new game on the game server and decide every arrival until the
server reports the game completed or failed.

Examples:
  bouncer run --scenario 1 --player-id 3f0c...
  NIGHTGATE_GAME_PLAYER_ID=3f0c... bouncer run --scenario 3 --policy helper`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Game
			if cmd.Flags().Changed("scenario") {
				cfg.Scenario = scenario
			}
			if playerID != "" {
				cfg.PlayerID = playerID
			}
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			if cfg.PlayerID == "" {
				return errors.New("player id is required (--player-id or game.player_id)")
			}
			if _, err := uuid.Parse(cfg.PlayerID); err != nil {
				a.logger.Warn("player id is not a uuid", zap.String("player_id", cfg.PlayerID))
			}

			client, err := gameclient.New(cfg, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			game, err := client.NewGame(ctx, cfg.Scenario, cfg.PlayerID)
			if err != nil {
				return err
			}

			return a.play(ctx, cmd.OutOrStdout(), runSpec{
				game:     game,
				scenario: cfg.Scenario,
				playerID: cfg.PlayerID,
				source:   client,
				sink:     client,
			})
		},
	}

	cmd.Flags().IntVar(&scenario, "scenario", 1, "Scenario to play")
	cmd.Flags().StringVar(&playerID, "player-id", "", "Player id registered with the game server")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Game server base URL")

	return cmd
}
