// Package cli implements the galaxy-sync command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFiles   []string
}

// NewRootCommand creates the root command for the galaxy-sync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "galaxy-sync",
		Short: "Mirror Galaxy workflow runs into a local database",
		Long: `galaxy-sync mirrors remote Galaxy workflow invocations, histories, jobs
and datasets into a local database and object store, polling until every
analysis reaches a terminal state.

Configuration is read from config.yaml, .env files and GALAXY_SYNC_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env", nil, "env files to load (default: .env)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewAnalysesCommand(opts))

	return cmd
}
