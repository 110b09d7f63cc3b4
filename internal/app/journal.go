package app

import (
	"context"
	"log"

	"binder/api/internal/outline"
	"binder/api/internal/session"
)

// draftJournal writes the staged moves of one document to the draft store.
// The session calls it under its lock, so the stored draft follows the
// staging order. Failures are logged; staging goes on in memory.
type draftJournal struct {
	documentID string
	drafts     draftStore
}

func (j draftJournal) Begin(ctx context.Context, base string) {
	ctx = context.WithoutCancel(ctx)
	if err := j.drafts.Begin(ctx, j.documentID, actorFromContext(ctx), base); err != nil {
		log.Printf("drafts: begin %s: %v", j.documentID, err)
	}
}

func (j draftJournal) Append(ctx context.Context, m outline.Move) {
	ctx = context.WithoutCancel(ctx)
	if err := j.drafts.Append(ctx, j.documentID, session.Entry{Move: m, Actor: actorFromContext(ctx)}); err != nil {
		log.Printf("drafts: append %s: %v", j.documentID, err)
	}
}

func (j draftJournal) Clear(ctx context.Context) {
	if err := j.drafts.Clear(context.WithoutCancel(ctx), j.documentID); err != nil {
		log.Printf("drafts: clear %s: %v", j.documentID, err)
	}
}
