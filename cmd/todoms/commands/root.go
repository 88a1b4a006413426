package commands

import (
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command
type rootOptions struct {
	configPath  string
	apiURL      string
	credentials string
	debug       bool
}

// NewRootCmd creates the todoms command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "todoms",
		Short:         "Manage your todos from the terminal",
		Long:          "Command-line client for the todoms API: sign in, then list, add, edit, complete and delete todos.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a config.yaml file")
	flags.StringVar(&opts.apiURL, "api-url", "", "API base URL (overrides TODOMS_API_URL)")
	flags.StringVar(&opts.credentials, "credentials", "", "Path of the stored credentials file")
	flags.BoolVar(&opts.debug, "debug", false, "Log requests to stderr")

	cmd.AddCommand(
		NewSignupCmd(opts),
		NewLoginCmd(opts),
		NewLogoutCmd(opts),
		NewWhoamiCmd(opts),
		NewRefreshCmd(opts),
		NewListCmd(opts),
		NewShowCmd(opts),
		NewAddCmd(opts),
		NewEditCmd(opts),
		NewDoneCmd(opts),
		NewReopenCmd(opts),
		NewRmCmd(opts),
		NewTUICmd(opts),
	)

	return cmd
}
