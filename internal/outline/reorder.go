package outline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDirection indicates a Move whose direction is not recognised.
var ErrUnknownDirection = errors.New("unknown move direction")

// Outcome tells a caller whether an operation changed the tree.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeNoOp Outcome = "noop"
)

// Result is the outcome of one engine operation and the positions it rewrote.
type Result struct {
	Outcome Outcome    `json:"outcome"`
	Changed []Position `json:"changed"`
}

// Direction names a move.
type Direction string

const (
	DirectionUp             Direction = "up"
	DirectionDown           Direction = "down"
	DirectionPreviousParent Direction = "previous-parent"
	DirectionNextParent     Direction = "next-parent"
	DirectionStepUp         Direction = "step-up"
	DirectionStepDown       Direction = "step-down"
)

// Directions lists every direction Apply understands.
var Directions = []Direction{
	DirectionUp,
	DirectionDown,
	DirectionPreviousParent,
	DirectionNextParent,
	DirectionStepUp,
	DirectionStepDown,
}

// ParseDirection accepts a direction name, case-insensitively.
func ParseDirection(raw string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Directions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, raw)
}

// Move is one requested engine operation.
type Move struct {
	Direction Direction `json:"direction"`
	NodeID    string    `json:"nodeId"`
}

// Engine is the only mutator of a Tree. Every operation checks all of its
// preconditions before it rewrites anything, so a failed operation leaves
// the tree untouched.
type Engine struct {
	tree *Tree
	// MaxLevel bounds AddChild. Moves never change depth.
	MaxLevel int
}

// NewEngine returns an engine operating on tree in place.
func NewEngine(tree *Tree) *Engine {
	return &Engine{tree: tree, MaxLevel: MaxLevel}
}

// Tree returns the tree the engine mutates.
func (e *Engine) Tree() *Tree {
	return e.tree
}

// Apply dispatches m to the matching operation.
func (e *Engine) Apply(m Move) (Result, error) {
	switch m.Direction {
	case DirectionUp:
		return e.MoveNodeUp(m.NodeID)
	case DirectionDown:
		return e.MoveNodeDown(m.NodeID)
	case DirectionPreviousParent:
		return e.MoveNodeToPreviousParent(m.NodeID)
	case DirectionNextParent:
		return e.MoveNodeToNextParent(m.NodeID)
	case DirectionStepUp:
		return e.StepUp(m.NodeID)
	case DirectionStepDown:
		return e.StepDown(m.NodeID)
	default:
		return Result{}, &MoveError{Op: "apply", NodeID: m.NodeID, Reason: string(m.Direction), Err: ErrUnknownDirection}
	}
}

// MoveNodeUp swaps id with its previous sibling. The first child is a no-op.
func (e *Engine) MoveNodeUp(id string) (Result, error) {
	const op = "move up"
	placement, err := e.placement(op, id)
	if err != nil {
		return Result{}, err
	}
	if placement.Index == 0 {
		return noop(), nil
	}
	return e.swap(placement, placement.Index-1), nil
}

// MoveNodeDown swaps id with its next sibling. The last child is a no-op.
func (e *Engine) MoveNodeDown(id string) (Result, error) {
	const op = "move down"
	placement, err := e.placement(op, id)
	if err != nil {
		return Result{}, err
	}
	if placement.Index == len(placement.Siblings)-1 {
		return noop(), nil
	}
	return e.swap(placement, placement.Index+1), nil
}

// MoveNodeToPreviousParent moves the first child of a parent to the end of
// the parent's previous sibling.
func (e *Engine) MoveNodeToPreviousParent(id string) (Result, error) {
	const op = "move to previous parent"
	placement, err := e.placement(op, id)
	if err != nil {
		return Result{}, err
	}
	if placement.Index != 0 {
		return Result{}, invalidMove(op, id, "node is not the first child")
	}
	source := e.tree.index[*placement.Node.ParentID]
	target, err := e.tree.FindPreviousSibling(source.ID)
	if err != nil {
		return Result{}, err
	}
	if target == nil {
		return noop(), nil
	}

	tr := newTracker()
	tr.trackAll(source.Children)
	tr.trackAll(target.Children)
	tr.trackSubtree(placement.Node)

	source.Children = detach(source.Children, 0)
	renumber(source.Children)
	target.Children = append(target.Children, placement.Node)
	attach(placement.Node, target, len(target.Children)-1)
	return tr.result(), nil
}

// MoveNodeToNextParent moves the last child of a parent to the front of the
// parent's next sibling.
func (e *Engine) MoveNodeToNextParent(id string) (Result, error) {
	const op = "move to next parent"
	placement, err := e.placement(op, id)
	if err != nil {
		return Result{}, err
	}
	if placement.Index != len(placement.Siblings)-1 {
		return Result{}, invalidMove(op, id, "node is not the last child")
	}
	source := e.tree.index[*placement.Node.ParentID]
	target, err := e.tree.FindNextSibling(source.ID)
	if err != nil {
		return Result{}, err
	}
	if target == nil {
		return noop(), nil
	}

	tr := newTracker()
	tr.trackAll(source.Children)
	tr.trackAll(target.Children)
	tr.trackSubtree(placement.Node)

	source.Children = detach(source.Children, placement.Index)
	renumber(source.Children)
	target.Children = append([]*Node{placement.Node}, target.Children...)
	renumber(target.Children)
	attach(placement.Node, target, 0)
	return tr.result(), nil
}

// StepUp is the combined "up" control: a first child crosses into the
// previous parent, any other node moves up among its siblings.
func (e *Engine) StepUp(id string) (Result, error) {
	controls, err := e.controls("step up", id)
	if err != nil {
		return Result{}, err
	}
	if controls.IsFirstNode {
		return e.MoveNodeToPreviousParent(id)
	}
	return e.MoveNodeUp(id)
}

// StepDown is the combined "down" control.
func (e *Engine) StepDown(id string) (Result, error) {
	controls, err := e.controls("step down", id)
	if err != nil {
		return Result{}, err
	}
	if controls.IsLastNode {
		return e.MoveNodeToNextParent(id)
	}
	return e.MoveNodeDown(id)
}

// AddChild appends node as the last child of parentID. The node must be new
// and childless; its order, level and parent are assigned here.
func (e *Engine) AddChild(parentID string, node *Node) (Result, error) {
	const op = "add child"
	parent, err := e.tree.index.Lookup(parentID)
	if err != nil {
		return Result{}, notFound(op, parentID)
	}
	if node == nil || strings.TrimSpace(node.ID) == "" {
		return Result{}, &MoveError{Op: op, NodeID: parentID, Reason: "node id is required", Err: ErrInvalidTree}
	}
	if _, exists := e.tree.index[node.ID]; exists {
		return Result{}, &MoveError{Op: op, NodeID: node.ID, Reason: "id already in use", Err: ErrInvalidTree}
	}
	if len(node.Children) > 0 {
		return Result{}, &MoveError{Op: op, NodeID: node.ID, Reason: "new content cannot carry children", Err: ErrInvalidTree}
	}
	if parent.Level+1 > e.MaxLevel {
		return Result{}, &MoveError{Op: op, NodeID: node.ID, Reason: fmt.Sprintf("level %d exceeds %d", parent.Level+1, e.MaxLevel), Err: ErrInvalidTree}
	}

	parent.Children = append(parent.Children, node)
	attach(node, parent, len(parent.Children)-1)
	e.tree.index.add(node)
	return Result{Outcome: OutcomeOK, Changed: []Position{node.Position()}}, nil
}

// placement resolves id to a movable, non-root node.
func (e *Engine) placement(op, id string) (Placement, error) {
	node, ok := e.tree.index[id]
	if !ok {
		return Placement{}, notFound(op, id)
	}
	if node.IsRoot() {
		return Placement{}, invalidMove(op, id, "the root cannot be moved")
	}
	return e.tree.FindNodeAndSiblings(id)
}

func (e *Engine) controls(op, id string) (Controls, error) {
	if _, ok := e.tree.index[id]; !ok {
		return Controls{}, notFound(op, id)
	}
	controls, err := e.tree.Controls(id)
	if err != nil {
		return Controls{}, err
	}
	if controls.IsRoot {
		return Controls{}, invalidMove(op, id, "the root cannot be moved")
	}
	return controls, nil
}

func (e *Engine) swap(placement Placement, with int) Result {
	parent := e.tree.index[*placement.Node.ParentID]
	tr := newTracker()
	tr.track(parent.Children[placement.Index], parent.Children[with])
	parent.Children[placement.Index], parent.Children[with] = parent.Children[with], parent.Children[placement.Index]
	renumber(parent.Children)
	return tr.result()
}

func noop() Result {
	return Result{Outcome: OutcomeNoOp, Changed: []Position{}}
}

// detach returns children without the element at i, in a new slice.
func detach(children []*Node, i int) []*Node {
	out := make([]*Node, 0, len(children)-1)
	out = append(out, children[:i]...)
	return append(out, children[i+1:]...)
}

func renumber(children []*Node) {
	for i, child := range children {
		child.Order = i
	}
}

// attach points node at its new parent and recomputes the subtree's levels.
func attach(node, parent *Node, order int) {
	node.ParentID = copyID(&parent.ID)
	node.Order = order
	relevel(node, parent.Level+1)
}

func relevel(node *Node, level int) {
	node.Level = level
	for _, child := range node.Children {
		relevel(child, level+1)
	}
}

// tracker snapshots positions before a mutation and reports what changed.
type tracker struct {
	ids    []string
	before map[string]Position
	nodes  map[string]*Node
}

func newTracker() *tracker {
	return &tracker{before: make(map[string]Position), nodes: make(map[string]*Node)}
}

func (tr *tracker) track(nodes ...*Node) {
	for _, node := range nodes {
		if _, seen := tr.before[node.ID]; seen {
			continue
		}
		tr.ids = append(tr.ids, node.ID)
		tr.before[node.ID] = node.Position()
		tr.nodes[node.ID] = node
	}
}

func (tr *tracker) trackAll(nodes []*Node) {
	tr.track(nodes...)
}

func (tr *tracker) trackSubtree(node *Node) {
	walk(node, func(n *Node) bool {
		tr.track(n)
		return true
	})
}

func (tr *tracker) result() Result {
	changed := []Position{}
	for _, id := range tr.ids {
		after := tr.nodes[id].Position()
		if !samePosition(tr.before[id], after) {
			changed = append(changed, after)
		}
	}
	return Result{Outcome: OutcomeOK, Changed: changed}
}

func samePosition(a, b Position) bool {
	return a.ID == b.ID && a.Order == b.Order && a.Level == b.Level && sameID(a.ParentID, b.ParentID)
}

// Diff lists the positions in to that differ from from, in preorder of to.
// Nodes missing from from are reported as changed.
func Diff(from, to *Tree) []Position {
	changed := []Position{}
	to.Walk(func(n *Node) bool {
		previous, ok := from.index[n.ID]
		if !ok || !samePosition(previous.Position(), n.Position()) {
			changed = append(changed, n.Position())
		}
		return true
	})
	return changed
}
