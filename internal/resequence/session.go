// Package resequence stages reorder operations against a working copy of an
// outline and commits them through a Gateway as one unit.
package resequence

import (
	"context"
	"errors"
	"sync"

	"binder/api/internal/outline"
)

var (
	ErrAlreadyActive  = errors.New("resequencing already active")
	ErrNotActive      = errors.New("resequencing not active")
	ErrCommitInFlight = errors.New("commit in flight")
)

// State is the position of a Session in its lifecycle.
type State string

const (
	StateInactive   State = "inactive"
	StateStaging    State = "staging"
	StateCommitting State = "committing"
)

// Change describes a tree that has just become live.
type Change struct {
	Tree       *outline.Tree
	Changed    []outline.Position
	Moves      []outline.Move
	Autocommit bool
	// Renamed is the node whose name changed, for rename changes.
	Renamed string
}

// Applied is the result of Session.Apply.
type Applied struct {
	outline.Result
	// Staged is set when the move went to the working copy.
	Staged bool
}

// Journal records staged work outside the process. Its methods run under
// the session lock, so the journal sees exactly the staging order. Failures
// are the journal's to report; staging carries on without it.
type Journal interface {
	// Begin starts a new journal for a working copy of the tree whose
	// Fingerprint is base.
	Begin(ctx context.Context, base string)
	Append(ctx context.Context, m outline.Move)
	Clear(ctx context.Context)
}

// CommitHook runs after a change has been persisted and swapped in.
type CommitHook func(ctx context.Context, change Change)

// Option configures a Session.
type Option func(*Session)

// WithCommitHook registers hook to run after every successful commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithJournal records staged moves in j.
func WithJournal(j Journal) Option {
	return func(s *Session) {
		s.journalTo = j
	}
}

// WithMaxLevel bounds the depth AddChild may create content at.
func WithMaxLevel(level int) Option {
	return func(s *Session) {
		s.maxLevel = level
	}
}

// Session owns the live outline of one document.
//
// The live tree is never mutated in place: every change is made on a copy
// and swapped in after it has been saved, so a *outline.Tree returned by
// Live stays valid for readers. The mutex is not held during gateway calls;
// the Committing state keeps other mutations out instead.
//
// Hooks run outside the mutex but strictly in the order changes became
// live: each promotion takes a ticket and waits for its turn.
type Session struct {
	mu        sync.Mutex
	gateway   Gateway
	live      *outline.Tree
	working   *outline.Tree
	journal   []outline.Move
	journalTo Journal
	state     State
	lastErr   error
	hooks     []CommitHook
	maxLevel  int

	nextTicket uint64
	hookMu     sync.Mutex
	hookTurn   uint64
	hookCond   *sync.Cond
}

// New returns an inactive session over live.
func New(live *outline.Tree, gateway Gateway, opts ...Option) *Session {
	s := &Session{
		gateway:  gateway,
		live:     live,
		state:    StateInactive,
		maxLevel: outline.MaxLevel,
	}
	s.hookCond = sync.NewCond(&s.hookMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enter starts staging against a deep copy of the live tree.
func (s *Session) Enter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInactive {
		return ErrAlreadyActive
	}
	s.working = s.live.Clone()
	s.journal = nil
	s.lastErr = nil
	s.state = StateStaging
	if s.journalTo != nil {
		s.journalTo.Begin(ctx, s.live.Fingerprint())
	}
	return nil
}

// Apply performs m. While staging only the working copy changes. Otherwise
// the move is saved right away and becomes live once the gateway accepts it.
func (s *Session) Apply(ctx context.Context, m outline.Move) (Applied, error) {
	s.mu.Lock()
	switch s.state {
	case StateCommitting:
		s.mu.Unlock()
		return Applied{}, ErrCommitInFlight
	case StateStaging:
		defer s.mu.Unlock()
		res, err := s.engine(s.working).Apply(m)
		if err != nil {
			return Applied{}, err
		}
		if res.Outcome == outline.OutcomeOK {
			s.journal = append(s.journal, m)
			if s.journalTo != nil {
				s.journalTo.Append(ctx, m)
			}
		}
		return Applied{Result: res, Staged: true}, nil
	}

	next := s.live.Clone()
	res, err := s.engine(next).Apply(m)
	if err != nil || res.Outcome == outline.OutcomeNoOp {
		s.mu.Unlock()
		return Applied{Result: res}, err
	}
	s.state = StateCommitting
	s.mu.Unlock()

	if err := s.persist(ctx, res.Changed, StateInactive); err != nil {
		return Applied{}, err
	}
	s.promote(ctx, Change{Tree: next, Changed: res.Changed, Moves: []outline.Move{m}, Autocommit: true})
	return Applied{Result: res}, nil
}

// AddChild appends node under parentID on the live tree. store records the
// new node before it becomes visible. Content cannot be added while staging.
func (s *Session) AddChild(ctx context.Context, parentID string, node *outline.Node, store func(context.Context, outline.Record) error) (outline.Record, error) {
	s.mu.Lock()
	switch s.state {
	case StateCommitting:
		s.mu.Unlock()
		return outline.Record{}, ErrCommitInFlight
	case StateStaging:
		s.mu.Unlock()
		return outline.Record{}, ErrAlreadyActive
	}
	next := s.live.Clone()
	if _, err := s.engine(next).AddChild(parentID, node); err != nil {
		s.mu.Unlock()
		return outline.Record{}, err
	}
	added, _ := next.Lookup(node.ID)
	record := added.Record()
	s.state = StateCommitting
	s.mu.Unlock()

	if err := store(context.WithoutCancel(ctx), record); err != nil {
		s.mu.Lock()
		s.state = StateInactive
		s.mu.Unlock()
		return outline.Record{}, err
	}
	s.promote(ctx, Change{Tree: next, Changed: []outline.Position{record.Position()}, Autocommit: true})
	return record, nil
}

// Commit saves the difference between the live tree and the working copy.
// On failure the session returns to staging with the error retained.
func (s *Session) Commit(ctx context.Context) ([]outline.Position, error) {
	s.mu.Lock()
	switch s.state {
	case StateCommitting:
		s.mu.Unlock()
		return nil, ErrCommitInFlight
	case StateInactive:
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	working := s.working
	moves := append([]outline.Move(nil), s.journal...)
	delta := outline.Diff(s.live, working)
	s.state = StateCommitting
	s.mu.Unlock()

	if len(delta) > 0 {
		if err := s.persist(ctx, delta, StateStaging); err != nil {
			return nil, err
		}
	}
	s.promote(ctx, Change{Tree: working, Changed: delta, Moves: moves})
	return delta, nil
}

// Discard drops the working copy. The live tree is untouched.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCommitting:
		return ErrCommitInFlight
	case StateInactive:
		return ErrNotActive
	}
	s.working = nil
	s.journal = nil
	s.lastErr = nil
	s.state = StateInactive
	if s.journalTo != nil {
		s.journalTo.Clear(ctx)
	}
	return nil
}

// Rename sets the name of id. store persists the name first; the live tree
// and, while staging, the working copy then carry it. Renames are rejected
// while a commit is in flight.
func (s *Session) Rename(ctx context.Context, id, name string, store func(context.Context) error) (outline.Record, error) {
	s.mu.Lock()
	if s.state == StateCommitting {
		s.mu.Unlock()
		return outline.Record{}, ErrCommitInFlight
	}
	if _, err := s.live.Lookup(id); err != nil {
		s.mu.Unlock()
		return outline.Record{}, err
	}
	resume := s.state
	s.state = StateCommitting
	s.mu.Unlock()

	if err := store(context.WithoutCancel(ctx)); err != nil {
		s.mu.Lock()
		s.state = resume
		s.mu.Unlock()
		return outline.Record{}, err
	}

	s.mu.Lock()
	next := s.live.Clone()
	node, _ := next.Lookup(id)
	node.Name = name
	if s.working != nil {
		if staged, err := s.working.Lookup(id); err == nil {
			staged.Name = name
		}
	}
	s.live = next
	s.state = resume
	record := node.Record()
	hooks, ticket := s.takeTicket()
	s.mu.Unlock()

	s.runHooks(ctx, ticket, hooks, Change{Tree: next, Changed: []outline.Position{}, Autocommit: true, Renamed: id})
	return record, nil
}

// persist calls the gateway outside the lock. A commit cannot be cancelled
// once sent, so the caller's cancellation is not passed on.
func (s *Session) persist(ctx context.Context, positions []outline.Position, onFailure State) error {
	err := save(context.WithoutCancel(ctx), s.gateway, positions)
	if err == nil {
		return nil
	}
	s.mu.Lock()
	s.state = onFailure
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// promote makes change.Tree live and runs the hooks.
func (s *Session) promote(ctx context.Context, change Change) {
	s.mu.Lock()
	s.live = change.Tree
	s.working = nil
	s.journal = nil
	s.lastErr = nil
	s.state = StateInactive
	if !change.Autocommit && s.journalTo != nil {
		s.journalTo.Clear(ctx)
	}
	hooks, ticket := s.takeTicket()
	s.mu.Unlock()

	s.runHooks(ctx, ticket, hooks, change)
}

// takeTicket must be called with s.mu held, in the same critical section
// that made the change live.
func (s *Session) takeTicket() ([]CommitHook, uint64) {
	ticket := s.nextTicket
	s.nextTicket++
	return append([]CommitHook(nil), s.hooks...), ticket
}

func (s *Session) runHooks(ctx context.Context, ticket uint64, hooks []CommitHook, change Change) {
	s.hookMu.Lock()
	for s.hookTurn != ticket {
		s.hookCond.Wait()
	}
	s.hookMu.Unlock()

	defer func() {
		s.hookMu.Lock()
		s.hookTurn++
		s.hookCond.Broadcast()
		s.hookMu.Unlock()
	}()
	for _, hook := range hooks {
		hook(ctx, change)
	}
}

func (s *Session) engine(tree *outline.Tree) *outline.Engine {
	engine := outline.NewEngine(tree)
	engine.MaxLevel = s.maxLevel
	return engine
}

// Live returns the last committed tree. It is never mutated.
func (s *Session) Live() *outline.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Working returns a copy of the working tree, or nil when not staging.
func (s *Session) Working() *outline.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working == nil {
		return nil
	}
	return s.working.Clone()
}

// View returns what an editor in this session should see: the working copy
// while staging, the live tree otherwise.
func (s *Session) View() *outline.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working != nil {
		return s.working.Clone()
	}
	return s.live
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the positions a commit would currently save.
func (s *Session) Pending() []outline.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working == nil {
		return []outline.Position{}
	}
	return outline.Diff(s.live, s.working)
}

// Journal returns the moves staged since Enter.
func (s *Session) Journal() []outline.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outline.Move{}, s.journal...)
}

// LastError returns the failure of the most recent save, if it has not been
// superseded.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
