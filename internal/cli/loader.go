package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"binder/api/internal/outline"
)

// FileNode is one node of a YAML outline file. Order and level come from
// the nesting.
type FileNode struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Children []FileNode `yaml:"children,omitempty"`
}

// LoadError reports why an outline file could not be used.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadOutline reads path and builds the tree it describes.
func LoadOutline(path string) (*outline.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("outline file not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err), Err: err}
	}
	return ParseOutline(data)
}

// ParseOutline builds a tree from YAML.
func ParseOutline(data []byte) (*outline.Tree, error) {
	var root FileNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("parsing outline: %v", err), Err: err}
	}
	if strings.TrimSpace(root.ID) == "" {
		return nil, &LoadError{Code: ErrCodeParse, Message: "outline has no root id"}
	}

	var records []outline.Record
	var flatten func(n FileNode, parentID *string, order int)
	flatten = func(n FileNode, parentID *string, order int) {
		records = append(records, outline.Record{ID: n.ID, Name: n.Name, Order: order, ParentID: parentID})
		id := n.ID
		for i, child := range n.Children {
			flatten(child, &id, i)
		}
	}
	flatten(root, nil, 0)

	tree, err := outline.Build(records)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidTree, Message: err.Error(), Err: err}
	}
	return tree, nil
}

// ToFile converts a tree back into its file form.
func ToFile(tree *outline.Tree) FileNode {
	var convert func(n *outline.Node) FileNode
	convert = func(n *outline.Node) FileNode {
		out := FileNode{ID: n.ID, Name: n.Name}
		for _, child := range n.Children {
			out.Children = append(out.Children, convert(child))
		}
		return out
	}
	return convert(tree.Root())
}

// WriteOutline replaces path with the YAML form of tree.
func WriteOutline(path string, tree *outline.Tree) error {
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(ToFile(tree)); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RenderTree prints one line per node, indented by level.
func RenderTree(tree *outline.Tree) string {
	var b strings.Builder
	tree.Walk(func(n *outline.Node) bool {
		fmt.Fprintf(&b, "%s%s [%s]\n", strings.Repeat("  ", n.Level), n.Name, n.ID)
		return true
	})
	return b.String()
}

func loadErrorCode(err error) (exitCode int, code string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Code {
		case ErrCodeInvalidTree:
			return ExitFailure, loadErr.Code
		default:
			return ExitCommandError, loadErr.Code
		}
	}
	return ExitCommandError, ErrCodeGeneric
}

// moveErrorCode classifies an engine error.
func moveErrorCode(err error) string {
	switch {
	case errors.Is(err, outline.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, outline.ErrInvalidMove):
		return ErrCodeInvalidMove
	case errors.Is(err, outline.ErrUnknownDirection):
		return ErrCodeDirection
	case errors.Is(err, outline.ErrInvalidTree):
		return ErrCodeInvalidTree
	}
	return ErrCodeGeneric
}
