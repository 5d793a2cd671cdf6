package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdziat/galaxy-sync/pkg/scheduler"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		Long: `Run the synchronization scheduler in the foreground.

On every sync.schedule round the owners listed in sync.owners, or every
owner with unsynced analyses when the list is empty, are synchronized until
converged or out of retry budget. SIGINT and SIGTERM stop the scheduler.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var owners scheduler.OwnerSource
			if list := a.cfg.Sync.Owners; len(list) > 0 {
				owners = func(context.Context) ([]string, error) { return list, nil }
			}

			a.logger.Info("scheduler starting", "schedule", a.cfg.Sync.Schedule, "owners", len(a.cfg.Sync.Owners))
			printf(cmd.OutOrStdout(), "Scheduler started. Press Ctrl-C to stop.\n")

			err = a.engine.Start(ctx, owners)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return WrapExitError(ExitFailure, "scheduler error", err)
			}
			a.logger.Info("scheduler stopped")
			return nil
		},
	}
}
