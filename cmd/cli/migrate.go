package main

import (
	"fmt"

	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/spf13/cobra"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := env.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables on %s.\n", len(model.All()), env.cfg.Database.Driver)
			return nil
		},
	}
}
