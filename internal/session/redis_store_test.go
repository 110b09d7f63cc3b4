package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"binder/api/internal/outline"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://"+s.Addr(), 0)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if store.ttl != defaultTTL {
		t.Errorf("expected default ttl, got %s", store.ttl)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", time.Hour); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestDraftLifecycle(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Begin(ctx, "doc-1", "Avery", "base-1"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	draft, ok, err := store.Load(ctx, "doc-1")
	if err != nil || !ok {
		t.Fatalf("Load after Begin = %v, %v", ok, err)
	}
	if draft.Actor != "Avery" || draft.Base != "base-1" || len(draft.Entries) != 0 {
		t.Fatalf("unexpected draft: %+v", draft)
	}

	moves := []outline.Move{
		{Direction: outline.DirectionDown, NodeID: "a"},
		{Direction: outline.DirectionNextParent, NodeID: "b1"},
	}
	for _, m := range moves {
		if err := store.Append(ctx, "doc-1", Entry{Move: m, Actor: "Avery"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	draft, ok, err = store.Load(ctx, "doc-1")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	got := draft.Moves()
	if len(got) != 2 || got[0] != moves[0] || got[1] != moves[1] {
		t.Fatalf("moves = %+v, want %+v", got, moves)
	}
	if draft.Entries[0].At.IsZero() {
		t.Error("expected entry timestamp to be set")
	}

	if err := store.Clear(ctx, "doc-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, err := store.Load(ctx, "doc-1"); err != nil || ok {
		t.Fatalf("Load after Clear = %v, %v", ok, err)
	}
}

func TestBeginDropsPreviousJournal(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	_ = store.Begin(ctx, "doc-1", "Avery", "base-1")
	_ = store.Append(ctx, "doc-1", Entry{Move: outline.Move{Direction: outline.DirectionUp, NodeID: "x"}})

	if err := store.Begin(ctx, "doc-1", "Jamie", "base-2"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	draft, _, err := store.Load(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if draft.Actor != "Jamie" || draft.Base != "base-2" || len(draft.Entries) != 0 {
		t.Fatalf("unexpected draft after second Begin: %+v", draft)
	}
}

func TestDraftExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	_ = store.Begin(ctx, "doc-1", "Avery", "base-1")
	_ = store.Append(ctx, "doc-1", Entry{Move: outline.Move{Direction: outline.DirectionUp, NodeID: "x"}})

	s.FastForward(2 * time.Hour)

	if _, ok, err := store.Load(ctx, "doc-1"); err != nil || ok {
		t.Fatalf("expected expired draft, got ok=%v err=%v", ok, err)
	}
}

func TestDraftIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	_ = store.Begin(ctx, "doc-1", "Avery", "base-1")
	_ = store.Begin(ctx, "doc-2", "Jamie", "base-2")
	_ = store.Append(ctx, "doc-1", Entry{Move: outline.Move{Direction: outline.DirectionUp, NodeID: "x"}})

	if err := store.Clear(ctx, "doc-2"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	draft, ok, err := store.Load(ctx, "doc-1")
	if err != nil || !ok || len(draft.Entries) != 1 {
		t.Fatalf("doc-1 draft affected by doc-2: ok=%v err=%v %+v", ok, err, draft)
	}
	if err := store.Clear(ctx, "missing"); err != nil {
		t.Errorf("Clear for missing draft failed: %v", err)
	}
}
