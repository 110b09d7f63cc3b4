package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"binder/api/internal/outline"
)

// NewControlsCommand creates the controls command.
func NewControlsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "controls <file> <node-id>",
		Short:         "Show which moves are enabled for a node",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tree, err := LoadOutline(args[0])
			if err != nil {
				exitCode, code := loadErrorCode(err)
				return formatter.Error(exitCode, code, err.Error(), nil)
			}
			controls, err := tree.Controls(args[1])
			if err != nil {
				return formatter.Error(ExitCommandError, moveErrorCode(err), err.Error(), nil)
			}
			return formatter.Success(controls, renderControls(controls))
		},
	}
}

func renderControls(c outline.Controls) string {
	flags := []struct {
		name string
		on   bool
	}{
		{"root", c.IsRoot},
		{"first", c.IsFirstNode},
		{"last", c.IsLastNode},
		{"previous-parent", c.HasPreviousParent},
		{"next-parent", c.HasNextParent},
		{"step-up", c.CanMoveUp},
		{"step-down", c.CanMoveDown},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", c.NodeID)
	for _, f := range flags {
		mark := "-"
		if f.on {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, f.name)
	}
	return b.String()
}
