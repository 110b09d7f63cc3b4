package outline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Tree is an outline rooted at a single node, together with its index.
type Tree struct {
	root  *Node
	index Index
}

// New adopts root as a tree after checking every invariant.
func New(root *Node) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidTree)
	}
	t := &Tree{root: root, index: NewIndex(root)}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Build constructs a tree from flat records. Siblings are sorted by their
// stored order (ties broken by id) and renumbered to 0..n-1; levels are
// recomputed from the root, so stored levels are never trusted.
func Build(records []Record) (*Tree, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidTree)
	}

	byID := make(map[string]Record, len(records))
	for _, record := range records {
		if record.ID == "" {
			return nil, fmt.Errorf("%w: record without id", ErrInvalidTree)
		}
		if _, dup := byID[record.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidTree, record.ID)
		}
		byID[record.ID] = record
	}

	childrenOf := make(map[string][]Record)
	var roots []Record
	for _, record := range records {
		if record.ParentID == nil {
			roots = append(roots, record)
			continue
		}
		if _, ok := byID[*record.ParentID]; !ok {
			return nil, fmt.Errorf("%w: %s references missing parent %s", ErrInvalidTree, record.ID, *record.ParentID)
		}
		childrenOf[*record.ParentID] = append(childrenOf[*record.ParentID], record)
	}
	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one root, found %d", ErrInvalidTree, len(roots))
	}

	root := buildNode(roots[0], nil, childrenOf)
	t := &Tree{root: root, index: NewIndex(root)}
	// Every record has an existing parent, so anything not reached from the
	// root sits on a parent cycle.
	if len(t.index) != len(records) {
		for _, record := range records {
			if _, ok := t.index[record.ID]; !ok {
				return nil, fmt.Errorf("%w: %s is part of a parent cycle", ErrInvalidTree, record.ID)
			}
		}
	}
	return t, nil
}

func buildNode(record Record, parent *Node, childrenOf map[string][]Record) *Node {
	node := &Node{ID: record.ID, Name: record.Name}
	if parent != nil {
		node.ParentID = copyID(&parent.ID)
		node.Level = parent.Level + 1
	}

	children := childrenOf[record.ID]
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].Order != children[j].Order {
			return children[i].Order < children[j].Order
		}
		return children[i].ID < children[j].ID
	})
	for i, child := range children {
		childNode := buildNode(child, node, childrenOf)
		childNode.Order = i
		node.Children = append(node.Children, childNode)
	}
	return node
}

// Root returns the root node. Callers must treat it as read-only.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.index)
}

// Lookup returns the node with the given id.
func (t *Tree) Lookup(id string) (*Node, error) {
	return t.index.Lookup(id)
}

// Clone returns a deep copy with its own index.
func (t *Tree) Clone() *Tree {
	root := t.root.clone()
	return &Tree{root: root, index: NewIndex(root)}
}

// Walk visits nodes in preorder until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	walk(t.root, fn)
}

func walk(node *Node, fn func(*Node) bool) bool {
	if !fn(node) {
		return false
	}
	for _, child := range node.Children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// Records flattens the tree in preorder.
func (t *Tree) Records() []Record {
	records := make([]Record, 0, len(t.index))
	t.Walk(func(n *Node) bool {
		records = append(records, n.Record())
		return true
	})
	return records
}

// Fingerprint identifies the shape of the tree: ids, parents and orders in
// preorder. Names do not contribute, so renames keep the fingerprint.
func (t *Tree) Fingerprint() string {
	h := sha256.New()
	t.Walk(func(n *Node) bool {
		parent := ""
		if n.ParentID != nil {
			parent = *n.ParentID
		}
		fmt.Fprintf(h, "%s\t%s\t%d\n", n.ID, parent, n.Order)
		return true
	})
	return hex.EncodeToString(h.Sum(nil))
}

// Descendants returns the subtree under id in reading order.
func (t *Tree) Descendants(id string, includeSelf bool) ([]*Node, error) {
	node, err := t.index.Lookup(id)
	if err != nil {
		return nil, err
	}
	var out []*Node
	walk(node, func(n *Node) bool {
		if n != node || includeSelf {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}

// Path returns the names from the root down to id.
func (t *Tree) Path(id string) ([]string, error) {
	node, err := t.index.Lookup(id)
	if err != nil {
		return nil, err
	}
	var names []string
	for node != nil {
		names = append(names, node.Name)
		if node.ParentID == nil {
			break
		}
		node = t.index[*node.ParentID]
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, nil
}

// Validate checks invariants 1 to 5 and that the index matches the tree.
func (t *Tree) Validate() error {
	if t.root.ParentID != nil {
		return &InvariantError{Invariant: 1, NodeID: t.root.ID, Message: "root has a parent"}
	}
	if t.root.Level != 0 {
		return &InvariantError{Invariant: 2, NodeID: t.root.ID, Message: fmt.Sprintf("root level is %d", t.root.Level)}
	}

	seen := make(map[*Node]bool, len(t.index))
	var check func(node *Node) error
	check = func(node *Node) error {
		if seen[node] {
			return &InvariantError{Invariant: 4, NodeID: node.ID, Message: "node reachable twice"}
		}
		seen[node] = true
		if indexed, ok := t.index[node.ID]; !ok || indexed != node {
			return &InvariantError{Invariant: 1, NodeID: node.ID, Message: "index does not match tree"}
		}
		for i, child := range node.Children {
			if child.ParentID == nil || *child.ParentID != node.ID {
				return &InvariantError{Invariant: 1, NodeID: child.ID, Message: "parent id does not reference its parent"}
			}
			if child.Level != node.Level+1 {
				return &InvariantError{Invariant: 2, NodeID: child.ID, Message: fmt.Sprintf("level %d under parent level %d", child.Level, node.Level)}
			}
			if child.Order != i {
				message := fmt.Sprintf("order %d at position %d", child.Order, i)
				if i > 0 && child.Order <= node.Children[i-1].Order {
					return &InvariantError{Invariant: 5, NodeID: child.ID, Message: message}
				}
				return &InvariantError{Invariant: 3, NodeID: child.ID, Message: message}
			}
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(t.root); err != nil {
		return err
	}
	if len(seen) != len(t.index) {
		return &InvariantError{Invariant: 1, NodeID: t.root.ID, Message: fmt.Sprintf("index holds %d nodes, tree holds %d", len(t.index), len(seen))}
	}
	return nil
}
