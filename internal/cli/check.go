package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"binder/api/internal/outline"
)

// CheckResult summarises a valid outline.
type CheckResult struct {
	Valid bool `json:"valid"`
	Nodes int  `json:"nodes"`
	Depth int  `json:"depth"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Verify that an outline file is a well-formed tree",
		Long: `Verify that an outline file is a well-formed tree.

Ids must be unique, sibling orders contiguous and levels consistent with
the nesting. Exits with status 1 when the outline is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	tree, err := LoadOutline(path)
	if err != nil {
		exitCode, code := loadErrorCode(err)
		return formatter.Error(exitCode, code, err.Error(), nil)
	}
	formatter.VerboseLog("loaded %d nodes from %s", tree.Len(), path)

	if err := tree.Validate(); err != nil {
		var invariantErr *outline.InvariantError
		var details any
		if errors.As(err, &invariantErr) {
			details = invariantErr
		}
		return formatter.Error(ExitFailure, ErrCodeInvalidTree, err.Error(), details)
	}

	result := CheckResult{Valid: true, Nodes: tree.Len()}
	tree.Walk(func(n *outline.Node) bool {
		result.Depth = max(result.Depth, n.Level)
		return true
	})
	text := fmt.Sprintf("✓ outline valid: %d nodes, depth %d\n", result.Nodes, result.Depth)
	return formatter.Success(result, text)
}
