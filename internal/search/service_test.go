package search

import (
	"context"
	"errors"
	"testing"

	"binder/api/internal/outline"
)

type fakeIndex struct {
	healthy  bool
	searchFn func(q Query) ([]Result, int, error)
	indexed  [][]NodeRecord
	indexErr error
}

func (f *fakeIndex) Healthy() bool { return f.healthy }

func (f *fakeIndex) Search(q Query) ([]Result, int, error) {
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return nil, 0, nil
}

func (f *fakeIndex) IndexNodes(nodes []NodeRecord) error {
	f.indexed = append(f.indexed, nodes)
	return f.indexErr
}

type fakeFallback struct {
	searchFn func(q Query) ([]Result, int, error)
	records  []NodeRecord
	loadErr  error
	calls    int
}

func (f *fakeFallback) Healthy() bool { return true }

func (f *fakeFallback) Search(q Query) ([]Result, int, error) {
	f.calls++
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return nil, 0, nil
}

func (f *fakeFallback) LoadAllRecords(context.Context) ([]NodeRecord, error) {
	return f.records, f.loadErr
}

func newTestService(primary *fakeIndex, fallback *fakeFallback) *Service {
	s := &Service{async: func(fn func()) { fn() }}
	if primary != nil {
		s.primary = primary
	}
	if fallback != nil {
		s.fallback = fallback
	}
	return s
}

func TestSearchPrefersHealthyPrimary(t *testing.T) {
	primary := &fakeIndex{healthy: true, searchFn: func(q Query) ([]Result, int, error) {
		return []Result{{ID: "a", Name: "Intro"}}, 1, nil
	}}
	fallback := &fakeFallback{}
	svc := newTestService(primary, fallback)

	resp := svc.Search(Query{Text: "intro"})
	if resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times", fallback.calls)
	}
}

func TestSearchFallsBack(t *testing.T) {
	fallbackResults := func(q Query) ([]Result, int, error) {
		return []Result{{ID: "b", Name: "Setup", DocumentID: q.DocumentID}}, 1, nil
	}

	t.Run("primary error", func(t *testing.T) {
		primary := &fakeIndex{healthy: true, searchFn: func(Query) ([]Result, int, error) {
			return nil, 0, errors.New("boom")
		}}
		fallback := &fakeFallback{searchFn: fallbackResults}
		resp := newTestService(primary, fallback).Search(Query{Text: "setup", DocumentID: "doc-1"})
		if len(resp.Results) != 1 || resp.Results[0].DocumentID != "doc-1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("primary unhealthy", func(t *testing.T) {
		fallback := &fakeFallback{searchFn: fallbackResults}
		resp := newTestService(&fakeIndex{}, fallback).Search(Query{Text: "setup"})
		if fallback.calls != 1 || resp.Total != 1 {
			t.Fatalf("expected fallback search, got %+v", resp)
		}
	})

	t.Run("no primary", func(t *testing.T) {
		fallback := &fakeFallback{searchFn: fallbackResults}
		resp := newTestService(nil, fallback).Search(Query{Text: "setup"})
		if fallback.calls != 1 || resp.Total != 1 {
			t.Fatalf("expected fallback search, got %+v", resp)
		}
	})
}

func TestSearchReturnsEmptyResultsOnFailure(t *testing.T) {
	fallback := &fakeFallback{searchFn: func(Query) ([]Result, int, error) {
		return nil, 0, errors.New("db down")
	}}
	resp := newTestService(nil, fallback).Search(Query{Text: "x"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Query != "x" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	resp = newTestService(nil, nil).Search(Query{Text: "x"})
	if resp.Results == nil {
		t.Fatal("expected non-nil results without any backend")
	}
}

func TestIndexNodesSkipsUnhealthyPrimary(t *testing.T) {
	primary := &fakeIndex{}
	svc := newTestService(primary, nil)
	svc.IndexNodes([]NodeRecord{{ID: "a"}})
	if len(primary.indexed) != 0 {
		t.Fatalf("expected no index calls, got %d", len(primary.indexed))
	}

	primary.healthy = true
	svc.IndexNodes(nil)
	if len(primary.indexed) != 0 {
		t.Fatal("expected empty batch to be skipped")
	}
	primary.indexErr = errors.New("rejected")
	svc.IndexNodes([]NodeRecord{{ID: "a", DocumentID: "doc-1"}})
	if len(primary.indexed) != 1 {
		t.Fatalf("expected one index call, got %d", len(primary.indexed))
	}
}

func TestReindexAllFromPG(t *testing.T) {
	primary := &fakeIndex{healthy: true}
	fallback := &fakeFallback{records: []NodeRecord{{ID: "a"}, {ID: "b"}}}
	newTestService(primary, fallback).ReindexAllFromPG(context.Background())
	if len(primary.indexed) != 1 || len(primary.indexed[0]) != 2 {
		t.Fatalf("unexpected reindex batches: %+v", primary.indexed)
	}

	primary = &fakeIndex{healthy: true}
	fallback = &fakeFallback{loadErr: errors.New("db down")}
	newTestService(primary, fallback).ReindexAllFromPG(context.Background())
	if len(primary.indexed) != 0 {
		t.Fatal("expected no indexing after load failure")
	}
}

func TestNewServiceWithoutMeili(t *testing.T) {
	svc := NewService(nil, nil)
	if svc.primary != nil || svc.fallback != nil {
		t.Fatal("expected nil backends to stay unset")
	}
	svc.IndexNodes([]NodeRecord{{ID: "a"}})
}

func TestRecordsFromTree(t *testing.T) {
	root := "root"
	a := "a"
	tree, err := outline.Build([]outline.Record{
		{ID: "root", Name: "Handbook"},
		{ID: "a", Name: "Intro", ParentID: &root},
		{ID: "a1", Name: "Scope", ParentID: &a},
		{ID: "b", Name: "Setup", Order: 1, ParentID: &root},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := RecordsFromTree("doc-1", tree)
	want := []NodeRecord{
		{ID: "root", Name: "Handbook", DocumentID: "doc-1", Path: "Handbook", Level: 0},
		{ID: "a", Name: "Intro", DocumentID: "doc-1", Path: "Handbook / Intro", Level: 1},
		{ID: "a1", Name: "Scope", DocumentID: "doc-1", Path: "Handbook / Intro / Scope", Level: 2},
		{ID: "b", Name: "Setup", DocumentID: "doc-1", Path: "Handbook / Setup", Level: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("RecordsFromTree() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
