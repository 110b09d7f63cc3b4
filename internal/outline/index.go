package outline

// Index maps node ids to the nodes of one tree. It holds non-owning
// references used for lookup only.
type Index map[string]*Node

// NewIndex indexes root and its whole subtree.
func NewIndex(root *Node) Index {
	idx := make(Index)
	if root != nil {
		idx.add(root)
	}
	return idx
}

// Lookup returns the node with the given id.
func (idx Index) Lookup(id string) (*Node, error) {
	node, ok := idx[id]
	if !ok {
		return nil, ErrNotFound
	}
	return node, nil
}

// add indexes node and its subtree. It is the incremental patch applied
// when a subtree is spliced into the tree.
func (idx Index) add(node *Node) {
	idx[node.ID] = node
	for _, child := range node.Children {
		idx.add(child)
	}
}
