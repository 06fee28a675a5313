package main

import (
	"fmt"
	"time"

	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/taskstore"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			records, err := taskstore.New(taskstore.NewMemoryCache(), durable.records, log).History(runCtx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				return writeJSONLines(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No completed submissions")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", taskstore.MaxHistory, fmt.Sprintf("Maximum records to list (1-%d)", taskstore.MaxHistory))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON lines instead of a table")
	return cmd
}
