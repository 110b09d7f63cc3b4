package outline

// Placement is a node together with the sibling list it sits in.
type Placement struct {
	Node     *Node
	Siblings []*Node
	Index    int
}

// Controls are the move preconditions of one node, as shown to the editor.
type Controls struct {
	NodeID            string `json:"nodeId"`
	IsRoot            bool   `json:"isRoot"`
	IsFirstNode       bool   `json:"isFirstNode"`
	IsLastNode        bool   `json:"isLastNode"`
	HasPreviousParent bool   `json:"hasPreviousParent"`
	HasNextParent     bool   `json:"hasNextParent"`
	CanMoveUp         bool   `json:"canMoveUp"`
	CanMoveDown       bool   `json:"canMoveDown"`
}

// FindNodeAndSiblings returns the node, its parent's children and its
// position among them. The root has no siblings and index 0.
func (t *Tree) FindNodeAndSiblings(id string) (Placement, error) {
	node, err := t.index.Lookup(id)
	if err != nil {
		return Placement{}, err
	}
	if node.ParentID == nil {
		return Placement{Node: node}, nil
	}
	parent, err := t.index.Lookup(*node.ParentID)
	if err != nil {
		return Placement{}, err
	}
	siblings := append([]*Node(nil), parent.Children...)
	return Placement{Node: node, Siblings: siblings, Index: indexOf(siblings, node)}, nil
}

// FindPreviousSibling returns the sibling just before id, or nil.
func (t *Tree) FindPreviousSibling(id string) (*Node, error) {
	placement, err := t.FindNodeAndSiblings(id)
	if err != nil {
		return nil, err
	}
	if placement.Index <= 0 || len(placement.Siblings) == 0 {
		return nil, nil
	}
	return placement.Siblings[placement.Index-1], nil
}

// FindNextSibling returns the sibling just after id, or nil.
func (t *Tree) FindNextSibling(id string) (*Node, error) {
	placement, err := t.FindNodeAndSiblings(id)
	if err != nil {
		return nil, err
	}
	if placement.Index+1 >= len(placement.Siblings) {
		return nil, nil
	}
	return placement.Siblings[placement.Index+1], nil
}

// FindParent returns the parent of id, or nil for the root.
func (t *Tree) FindParent(id string) (*Node, error) {
	node, err := t.index.Lookup(id)
	if err != nil {
		return nil, err
	}
	if node.ParentID == nil {
		return nil, nil
	}
	return t.index.Lookup(*node.ParentID)
}

// Controls derives the move preconditions for id.
func (t *Tree) Controls(id string) (Controls, error) {
	placement, err := t.FindNodeAndSiblings(id)
	if err != nil {
		return Controls{}, err
	}
	c := Controls{
		NodeID:      id,
		IsRoot:      placement.Node.IsRoot(),
		IsFirstNode: placement.Index == 0,
		IsLastNode:  len(placement.Siblings) == 0 || placement.Index == len(placement.Siblings)-1,
	}
	if c.IsRoot {
		return c, nil
	}
	parentID := *placement.Node.ParentID
	previous, err := t.FindPreviousSibling(parentID)
	if err != nil {
		return Controls{}, err
	}
	next, err := t.FindNextSibling(parentID)
	if err != nil {
		return Controls{}, err
	}
	c.HasPreviousParent = previous != nil
	c.HasNextParent = next != nil
	c.CanMoveUp = !c.IsFirstNode || c.HasPreviousParent
	c.CanMoveDown = !c.IsLastNode || c.HasNextParent
	return c, nil
}

func indexOf(nodes []*Node, node *Node) int {
	for i, candidate := range nodes {
		if candidate == node {
			return i
		}
	}
	return -1
}
