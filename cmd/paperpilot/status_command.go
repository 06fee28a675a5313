package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show one task record from the durable store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task ID %q", args[0])
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
			if err := durable.migrate(runCtx, migrate.CommandUp); err != nil {
				return err
			}

			rec, err := durable.records.GetByID(runCtx, id)
			if errors.Is(err, store.ErrTaskRecordNotFound) {
				return fmt.Errorf("task %s not found", id)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				return writeJSON(out, rec)
			}
			fmt.Fprintln(out, renderRecordTable(rec, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}
