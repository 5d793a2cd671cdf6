package cli

import (
	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the Galaxy server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, cfg.NewLogger(cmd.ErrOrStderr()))
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid galaxy settings", err)
			}
			v, err := client.Version(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "galaxy unreachable", err)
			}
			printf(cmd.OutOrStdout(), "galaxy %s version %s\n", cfg.Galaxy.URL, v)
			return nil
		},
	}
}
