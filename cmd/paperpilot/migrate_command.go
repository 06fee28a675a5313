package main

import (
	"fmt"

	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Run database migrations for the configured store",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus, migrate.CommandVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := migrate.CommandUp
			if len(args) == 1 {
				command = args[0]
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.cliLogger(cmd.ErrOrStderr())
			runCtx := logger.WithLogger(cmd.Context(), log)

			durable, err := openDurableStore(runCtx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer durable.Close()

			if err := durable.migrate(runCtx, command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s completed (%s)\n", command, durable.dialect)
			return nil
		},
	}
}
