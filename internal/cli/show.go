package cli

import (
	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <file>",
		Short:         "Print an outline file as an indented tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tree, err := LoadOutline(args[0])
			if err != nil {
				exitCode, code := loadErrorCode(err)
				return formatter.Error(exitCode, code, err.Error(), nil)
			}
			return formatter.Success(tree.Root(), RenderTree(tree))
		},
	}
}
