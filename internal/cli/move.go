package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"binder/api/internal/outline"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	Write bool
}

// MoveStep is the result of one applied move.
type MoveStep struct {
	Move    outline.Move       `json:"move"`
	Outcome outline.Outcome    `json:"outcome"`
	Changed []outline.Position `json:"changed"`
}

// MoveResult is the JSON payload of the move command.
type MoveResult struct {
	Steps   []MoveStep    `json:"steps"`
	Written bool          `json:"written"`
	Tree    *outline.Node `json:"tree"`
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{}

	cmd := &cobra.Command{
		Use:   "move <file> <direction> <node-id>...",
		Short: "Move nodes of an outline file",
		Long: `Move one or more nodes in the given direction, in argument order.

Directions: ` + directionList() + `.

The moves are applied to a copy of the outline. A rejected move aborts the
whole command and leaves the file untouched. With --write the result
replaces the file; otherwise the new outline is printed.`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write the result back to the file")

	return cmd
}

func runMove(rootOpts *RootOptions, opts *MoveOptions, path, direction string, nodeIDs []string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	dir, err := outline.ParseDirection(direction)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeDirection, err.Error(), map[string]any{"allowed": outline.Directions})
	}

	tree, err := LoadOutline(path)
	if err != nil {
		exitCode, code := loadErrorCode(err)
		return formatter.Error(exitCode, code, err.Error(), nil)
	}

	engine := outline.NewEngine(tree.Clone())
	result := MoveResult{Steps: make([]MoveStep, 0, len(nodeIDs))}
	var text strings.Builder
	for _, id := range nodeIDs {
		move := outline.Move{Direction: dir, NodeID: id}
		res, err := engine.Apply(move)
		if err != nil {
			return formatter.Error(ExitFailure, moveErrorCode(err), err.Error(), move)
		}
		result.Steps = append(result.Steps, MoveStep{Move: move, Outcome: res.Outcome, Changed: res.Changed})
		if res.Outcome == outline.OutcomeNoOp {
			fmt.Fprintf(&text, "%s %s: noop\n", id, dir)
		} else {
			fmt.Fprintf(&text, "%s %s: ok, %d changed\n", id, dir, len(res.Changed))
		}
		formatter.VerboseLog("applied %s %s", dir, id)
	}

	moved := engine.Tree()
	if err := moved.Validate(); err != nil {
		return formatter.Error(ExitFailure, ErrCodeInvalidTree, err.Error(), nil)
	}
	result.Tree = moved.Root()

	if opts.Write {
		if err := WriteOutline(path, moved); err != nil {
			return formatter.Error(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", path, err), nil)
		}
		result.Written = true
		fmt.Fprintf(&text, "wrote %s\n", path)
	} else {
		text.WriteString(RenderTree(moved))
	}
	return formatter.Success(result, text.String())
}

func directionList() string {
	names := make([]string, 0, len(outline.Directions))
	for _, d := range outline.Directions {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}
