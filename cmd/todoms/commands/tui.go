package commands

import (
	"github.com/spf13/cobra"

	"github.com/benvon/todoms/internal/tui"
)

// NewTUICmd creates the interactive terminal UI command
func NewTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive todo list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireSession(); err != nil {
				return err
			}

			return tui.Run(cmd.Context(), a.todos, userLabel(a.session.User()))
		},
	}
}
