// Package outline implements the ordered content hierarchy of a document:
// the node model, the id index, the locator queries and the reorder engine.
//
// A Tree is read-only to everything except Engine. Every mutation goes
// through an Engine so the structural invariants are enforced in one place:
//
//  1. exactly one root; every other node references an existing parent
//  2. level(child) = level(parent) + 1
//  3. sibling orders are exactly 0..n-1
//  4. the parent chain of every node reaches the root
//  5. children are stored in ascending order
package outline

// MaxLevel is the deepest level new content may be created at.
const MaxLevel = 8

// Node is one content node of a document outline.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Order    int     `json:"order"`
	Level    int     `json:"level"`
	ParentID *string `json:"parentId,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// Position is the persisted placement of a node: the part of a node the
// reorder engine rewrites.
type Position struct {
	ID       string  `json:"id"`
	Order    int     `json:"order"`
	Level    int     `json:"level"`
	ParentID *string `json:"parentId"`
}

// Record is a flat row of an outline, as stored and versioned.
type Record struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Order    int     `json:"order"`
	Level    int     `json:"level"`
	ParentID *string `json:"parentId"`
}

// Position returns the placement part of the record.
func (r Record) Position() Position {
	return Position{ID: r.ID, Order: r.Order, Level: r.Level, ParentID: r.ParentID}
}

// Position returns the placement of n.
func (n *Node) Position() Position {
	return Position{ID: n.ID, Order: n.Order, Level: n.Level, ParentID: copyID(n.ParentID)}
}

// Record flattens n without its children.
func (n *Node) Record() Record {
	return Record{ID: n.ID, Name: n.Name, Order: n.Order, Level: n.Level, ParentID: copyID(n.ParentID)}
}

// clone deep-copies n and its subtree.
func (n *Node) clone() *Node {
	out := &Node{
		ID:       n.ID,
		Name:     n.Name,
		Order:    n.Order,
		Level:    n.Level,
		ParentID: copyID(n.ParentID),
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.clone()
		}
	}
	return out
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
