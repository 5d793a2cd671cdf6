package cli

import (
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/storage"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show analysis and job counts of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.GetOwnerStats(cmd.Context(), owner)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read stats", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "KIND\tSTATE\tCOUNT\n")
			for _, state := range sortedKeys(stats.AnalysesByState) {
				printf(w, "analysis\t%s\t%d\n", state, stats.AnalysesByState[state])
			}
			for _, state := range sortedKeys(stats.JobsByState) {
				printf(w, "job\t%s\t%d\n", state, stats.JobsByState[state])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "unsynced: %d analyses, %d jobs\n", stats.UnsyncedAnalyses, stats.UnsyncedJobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// AnalysesOptions holds flags for the analyses command.
type AnalysesOptions struct {
	*RootOptions
	Owner    string
	State    string
	Unsynced bool
	Search   string
	Since    time.Duration
	Limit    int
	Offset   int
}

// NewAnalysesCommand creates the analyses command.
func NewAnalysesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalysesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyses",
		Short: "List the analyses of an owner",
		Long: `List the analyses of an owner, newest first.

Example:
  galaxy-sync analyses --owner 3f1d2c1e-0000-4000-8000-000000000001 --unsynced
  galaxy-sync analyses --owner 3f1d2c1e-0000-4000-8000-000000000001 --state failed --since 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := storage.AnalysisFilter{
				OwnerID:      opts.Owner,
				State:        core.InvocationState(opts.State),
				UnsyncedOnly: opts.Unsynced,
				Search:       opts.Search,
				Limit:        opts.Limit,
				Offset:       opts.Offset,
			}
			if opts.Since > 0 {
				filter.Since = time.Now().Add(-opts.Since)
			}
			list, total, err := a.store.SearchAnalyses(cmd.Context(), filter)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list analyses", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tNAME\tSTATE\tSYNC\tGALAXY ID\tCREATED\n")
			for _, an := range list {
				printf(w, "%d\t%s\t%s\t%t\t%s\t%s\n", an.ID, an.Name, an.State, an.IsSync, an.GalaxyID, an.CreatedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%d of %d analyses\n", len(list), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.State, "state", "", "only analyses in this invocation state")
	cmd.Flags().BoolVar(&opts.Unsynced, "unsynced", false, "only analyses not yet sync")
	cmd.Flags().StringVar(&opts.Search, "search", "", "substring of the name or galaxy id")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "only analyses created within this duration")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum rows")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
