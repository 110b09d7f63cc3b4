package resequence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"binder/api/internal/outline"
)

// ErrPersistenceFailed is matched by every *PersistenceError.
var ErrPersistenceFailed = errors.New("persistence failed")

// SaveResult is the gateway's verdict for one node. Err is empty on success.
type SaveResult struct {
	ID  string `json:"id"`
	Err string `json:"error,omitempty"`
}

// Gateway persists node positions. A transport error, a failed entry or a
// missing entry all fail the whole save.
type Gateway interface {
	SavePositions(ctx context.Context, positions []outline.Position) ([]SaveResult, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, positions []outline.Position) ([]SaveResult, error)

func (f GatewayFunc) SavePositions(ctx context.Context, positions []outline.Position) ([]SaveResult, error) {
	return f(ctx, positions)
}

// PersistenceError reports a failed save, with the per-node reasons when the
// gateway answered.
type PersistenceError struct {
	Failures []SaveResult
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrPersistenceFailed, e.Err)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.ID+": "+f.Err)
	}
	return fmt.Sprintf("%v: %s", ErrPersistenceFailed, strings.Join(parts, "; "))
}

func (e *PersistenceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPersistenceFailed, e.Err}
	}
	return []error{ErrPersistenceFailed}
}

// save sends positions and folds the answer into a single error.
func save(ctx context.Context, gateway Gateway, positions []outline.Position) error {
	results, err := gateway.SavePositions(ctx, positions)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	byID := make(map[string]SaveResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	var failures []SaveResult
	for _, p := range positions {
		r, ok := byID[p.ID]
		switch {
		case !ok:
			failures = append(failures, SaveResult{ID: p.ID, Err: "no result returned"})
		case r.Err != "":
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		return &PersistenceError{Failures: failures}
	}
	return nil
}
