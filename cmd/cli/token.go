package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(env *cliEnv) *cobra.Command {
	var (
		user  string
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development session token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if user != "" {
				parsed, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("--user must be a uuid: %w", err)
				}
				id = parsed
			}

			verifier := auth.NewVerifier(env.cfg.App.JWTSecret, env.cfg.App.JWTIssuer)
			token, err := verifier.Issue(id, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
