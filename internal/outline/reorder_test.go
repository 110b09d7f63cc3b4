package outline

import (
	"errors"
	"reflect"
	"testing"
)

func snapshot(tree *Tree) []Record {
	return tree.Records()
}

func TestMoveNodeDownSwapsWithNextSibling(t *testing.T) {
	tree, err := Build([]Record{
		rec("root", "", 0),
		rec("A", "root", 0),
		rec("B", "root", 1),
		rec("C", "root", 2),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	res, err := NewEngine(tree).MoveNodeDown("A")
	if err != nil {
		t.Fatalf("MoveNodeDown() error = %v", err)
	}
	if res.Outcome != OutcomeOK || len(res.Changed) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := childIDs(t, tree, "root"); !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Fatalf("root children = %v", got)
	}
	for i, id := range []string{"B", "A", "C"} {
		node, _ := tree.Lookup(id)
		if node.Order != i {
			t.Fatalf("%s order = %d, want %d", id, node.Order, i)
		}
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMoveNodeToNextParentInsertsAtFront(t *testing.T) {
	tree, err := Build([]Record{
		rec("root", "", 0),
		rec("book", "root", 0),
		rec("P1", "book", 0),
		rec("P2", "book", 1),
		rec("X", "P1", 0),
		rec("Y", "P2", 0),
		rec("Z", "P2", 1),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	res, err := NewEngine(tree).MoveNodeToNextParent("X")
	if err != nil {
		t.Fatalf("MoveNodeToNextParent() error = %v", err)
	}
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := childIDs(t, tree, "P1"); len(got) != 0 {
		t.Fatalf("P1 children = %v", got)
	}
	if got := childIDs(t, tree, "P2"); !reflect.DeepEqual(got, []string{"X", "Y", "Z"}) {
		t.Fatalf("P2 children = %v", got)
	}
	for i, id := range []string{"X", "Y", "Z"} {
		node, _ := tree.Lookup(id)
		if node.Order != i || node.Level != 3 || *node.ParentID != "P2" {
			t.Fatalf("%s: order=%d level=%d parent=%s", id, node.Order, node.Level, *node.ParentID)
		}
	}
	changed := map[string]bool{}
	for _, p := range res.Changed {
		changed[p.ID] = true
	}
	if !changed["X"] || !changed["Y"] || !changed["Z"] || len(changed) != 3 {
		t.Fatalf("unexpected changed set: %+v", res.Changed)
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestFirstNodeWithoutPreviousParentIsImmovableUp(t *testing.T) {
	tree := bookTree(t)
	engine := NewEngine(tree)
	before := snapshot(tree)

	controls, err := tree.Controls("s1")
	if err != nil {
		t.Fatalf("Controls() error = %v", err)
	}
	if !controls.IsFirstNode || controls.HasPreviousParent {
		t.Fatalf("unexpected controls: %+v", controls)
	}

	for name, op := range map[string]func(string) (Result, error){
		"MoveNodeUp":               engine.MoveNodeUp,
		"MoveNodeToPreviousParent": engine.MoveNodeToPreviousParent,
		"StepUp":                   engine.StepUp,
	} {
		res, err := op("s1")
		if err != nil {
			t.Fatalf("%s() error = %v", name, err)
		}
		if res.Outcome != OutcomeNoOp || len(res.Changed) != 0 {
			t.Fatalf("%s() = %+v, want noop", name, res)
		}
	}
	if !reflect.DeepEqual(snapshot(tree), before) {
		t.Fatal("tree changed after no-op moves")
	}
}

func TestMoveNodeToPreviousParentAppendsAndRenumbers(t *testing.T) {
	tree := bookTree(t)
	res, err := NewEngine(tree).MoveNodeToPreviousParent("s3")
	if err != nil {
		t.Fatalf("MoveNodeToPreviousParent() error = %v", err)
	}
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := childIDs(t, tree, "ch1"); !reflect.DeepEqual(got, []string{"s1", "s2", "s3"}) {
		t.Fatalf("ch1 children = %v", got)
	}
	if got := childIDs(t, tree, "ch2"); len(got) != 0 {
		t.Fatalf("ch2 children = %v", got)
	}
	moved, _ := tree.Lookup("s3")
	if moved.Order != 2 || moved.Level != 2 || *moved.ParentID != "ch1" {
		t.Fatalf("moved node: %+v", moved)
	}
	if len(res.Changed) != 1 || res.Changed[0].ID != "s3" {
		t.Fatalf("unexpected changed: %+v", res.Changed)
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestCrossParentMoveCarriesSubtree(t *testing.T) {
	tree, err := Build([]Record{
		rec("root", "", 0),
		rec("P1", "root", 0),
		rec("P2", "root", 1),
		rec("Q", "P1", 0),
		rec("R", "P2", 0),
		rec("R1", "R", 0),
		rec("R2", "R", 1),
		rec("R1a", "R1", 0),
		rec("S", "P2", 1),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := NewEngine(tree).MoveNodeToPreviousParent("R"); err != nil {
		t.Fatalf("MoveNodeToPreviousParent() error = %v", err)
	}
	if got := childIDs(t, tree, "P1"); !reflect.DeepEqual(got, []string{"Q", "R"}) {
		t.Fatalf("P1 children = %v", got)
	}
	s, _ := tree.Lookup("S")
	if s.Order != 0 {
		t.Fatalf("S order = %d, want 0", s.Order)
	}
	deep, _ := tree.Lookup("R1a")
	if deep.Level != 4 || *deep.ParentID != "R1" {
		t.Fatalf("subtree rewritten: %+v", deep)
	}
	desc, _ := tree.Descendants("R", false)
	if len(desc) != 3 {
		t.Fatalf("subtree size = %d", len(desc))
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestCrossParentPreconditions(t *testing.T) {
	tree := bookTree(t)
	engine := NewEngine(tree)
	before := snapshot(tree)

	if _, err := engine.MoveNodeToPreviousParent("s2"); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for non-first child, got %v", err)
	}
	if _, err := engine.MoveNodeToNextParent("s1"); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for non-last child, got %v", err)
	}
	res, err := engine.MoveNodeToNextParent("ch3")
	if err != nil {
		t.Fatalf("MoveNodeToNextParent(ch3) error = %v", err)
	}
	if res.Outcome != OutcomeNoOp {
		t.Fatalf("expected noop for child of root, got %s", res.Outcome)
	}
	if !reflect.DeepEqual(snapshot(tree), before) {
		t.Fatal("tree changed after rejected moves")
	}
}

func TestRootAndUnknownIDsAreRejected(t *testing.T) {
	tree := bookTree(t)
	engine := NewEngine(tree)

	for _, dir := range Directions {
		if _, err := engine.Apply(Move{Direction: dir, NodeID: "root"}); !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("%s root: expected ErrInvalidMove, got %v", dir, err)
		}
		_, err := engine.Apply(Move{Direction: dir, NodeID: "ghost"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s ghost: expected ErrNotFound, got %v", dir, err)
		}
		var moveErr *MoveError
		if !errors.As(err, &moveErr) || moveErr.NodeID != "ghost" {
			t.Fatalf("expected MoveError naming the node, got %v", err)
		}
	}

	if _, err := engine.Apply(Move{Direction: "sideways", NodeID: "s1"}); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestStepMovesFollowControls(t *testing.T) {
	tree := bookTree(t)
	engine := NewEngine(tree)

	// s3 is the only child of ch2: stepping up crosses into ch1.
	if _, err := engine.StepUp("s3"); err != nil {
		t.Fatalf("StepUp() error = %v", err)
	}
	if parent, _ := tree.FindParent("s3"); parent.ID != "ch1" {
		t.Fatalf("s3 parent = %s, want ch1", parent.ID)
	}

	// Now the last child of ch1; stepping up swaps with s2.
	if _, err := engine.StepUp("s3"); err != nil {
		t.Fatalf("StepUp() error = %v", err)
	}
	if got := childIDs(t, tree, "ch1"); !reflect.DeepEqual(got, []string{"s1", "s3", "s2"}) {
		t.Fatalf("ch1 children = %v", got)
	}

	// s2 is last in ch1; stepping down crosses into ch2 again.
	if _, err := engine.StepDown("s2"); err != nil {
		t.Fatalf("StepDown() error = %v", err)
	}
	if got := childIDs(t, tree, "ch2"); !reflect.DeepEqual(got, []string{"s2"}) {
		t.Fatalf("ch2 children = %v", got)
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestAddChild(t *testing.T) {
	tree := bookTree(t)
	engine := NewEngine(tree)

	res, err := engine.AddChild("ch1", &Node{ID: "s4", Name: "New"})
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if len(res.Changed) != 1 || res.Changed[0].Order != 2 || res.Changed[0].Level != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if node, err := tree.Lookup("s4"); err != nil || *node.ParentID != "ch1" {
		t.Fatalf("new node not indexed: %v", err)
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if _, err := engine.AddChild("ghost", &Node{ID: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := engine.AddChild("ch1", &Node{ID: "s1"}); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
	if _, err := engine.AddChild("ch1", &Node{}); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected missing id rejection, got %v", err)
	}

	engine.MaxLevel = 2
	if _, err := engine.AddChild("s1", &Node{ID: "too-deep"}); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected depth rejection, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Previous-Parent ")
	if err != nil || d != DirectionPreviousParent {
		t.Fatalf("ParseDirection() = %q, %v", d, err)
	}
	if _, err := ParseDirection("left"); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
}
