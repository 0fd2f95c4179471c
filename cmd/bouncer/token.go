package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightgate/nightgate/pkg/auth"
)

func tokenCmd(opts *globalOptions) *cobra.Command {
	var (
		subject string
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for the run history server",
		Long: `Sign a bearer token with auth.jwt_secret for use against the API server.

Examples:
  NIGHTGATE_AUTH_JWT_SECRET=... bouncer token --subject ops
  bouncer token --subject dashboard --scope runs:read`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens := auth.NewTokenManager([]byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.TokenTTL)
			token, err := tokens.Generate(strings.TrimSpace(subject), scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to grant (default runs:read,events:read)")
	cmd.MarkFlagRequired("subject")

	return cmd
}
