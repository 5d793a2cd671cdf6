package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Owner      string
	AnalysisID uint
	Once       bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the analyses of one owner",
		Long: `Synchronize the analyses of one owner with Galaxy.

By default passes are repeated until every analysis is sync or the retry
budget is spent. --once runs a single pass; --analysis restricts the pass to
one analysis.

Example:
  galaxy-sync sync --owner 3f1d2c1e-0000-4000-8000-000000000001
  galaxy-sync sync --owner 3f1d2c1e-0000-4000-8000-000000000001 --analysis 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().UintVar(&opts.AnalysisID, "analysis", 0, "synchronize a single analysis")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single pass")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	a, err := openEngine(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	switch {
	case opts.AnalysisID != 0:
		if err := a.engine.Reconciler.Analyses.Synchronize(ctx, opts.AnalysisID, opts.Owner); err != nil {
			return syncExit(err)
		}
		printf(out, "analysis %d synchronized\n", opts.AnalysisID)
	case opts.Once:
		done, err := a.engine.Scheduler.RunPass(ctx, opts.Owner)
		if err != nil {
			return syncExit(err)
		}
		printf(out, "pass complete, all synced: %t\n", done)
	default:
		if err := a.engine.Run(ctx, opts.Owner); err != nil {
			return syncExit(err)
		}
		printf(out, "owner %s synchronized\n", opts.Owner)
	}
	return nil
}

func syncExit(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitFailure, "interrupted", err)
	case errors.Is(err, core.ErrBudgetExhausted):
		return WrapExitError(ExitFailure, "not converged", err)
	case errors.Is(err, core.ErrPermissionDenied):
		return WrapExitError(ExitCommandError, "database permission denied", err)
	default:
		return WrapExitError(ExitFailure, "synchronization failed", err)
	}
}
