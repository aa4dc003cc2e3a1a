package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/infra/database"
	"github.com/sifan077/LinkGate/internal/infra/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliEnv carries the configuration shared by every subcommand.
// Tests preset cfg and log to skip loading from disk.
type cliEnv struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	env := &cliEnv{}
	if err := newRootCmd(env).Execute(); err != nil {
		os.Exit(1)
	}
	if env.log != nil {
		_ = logger.Sync()
	}
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:           "linkgate",
		Short:         "Administrative commands for the LinkGate service",
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return env.load()
		},
	}

	root.AddCommand(
		newMigrateCmd(env),
		newCreateCmd(env),
		newStatsCmd(env),
		newTokenCmd(env),
	)
	return root
}

func (e *cliEnv) load() error {
	if e.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		e.cfg = cfg
	}
	if e.log == nil {
		log, err := logger.Init(logger.FromApp(e.cfg.App, "linkgate-cli"))
		if err != nil {
			return err
		}
		e.log = log
	}
	return nil
}

// openStore connects to the configured store. Migrations only run when migrate is set.
func (e *cliEnv) openStore(ctx context.Context, migrate bool) (*database.Store, error) {
	cfg := *e.cfg
	cfg.Database.AutoMigrate = migrate
	store, err := database.Open(ctx, &cfg, e.log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
