package search

import (
	"context"
	"log"
)

type index interface {
	Searcher
	Indexer
}

type recordLoader interface {
	Searcher
	LoadAllRecords(ctx context.Context) ([]NodeRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  index
	fallback recordLoader
	// async runs index writes; tests replace it to run them inline.
	async func(func())
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{async: func(fn func()) { go fn() }}
	if meili != nil {
		s.primary = meili
	}
	if pgfts != nil {
		s.fallback = pgfts
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.primary != nil && s.primary.Healthy() {
		results, total, err := s.primary.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexNodes indexes content nodes (fire-and-forget to Meilisearch).
func (s *Service) IndexNodes(nodes []NodeRecord) {
	if s.primary == nil || !s.primary.Healthy() || len(nodes) == 0 {
		return
	}
	s.async(func() {
		if err := s.primary.IndexNodes(nodes); err != nil {
			log.Printf("search: index %d nodes of %s: %v", len(nodes), nodes[0].DocumentID, err)
		}
	})
}

// ReindexAllFromPG reindexes every content node from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.primary == nil || !s.primary.Healthy() || s.fallback == nil {
		return
	}
	nodes, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.primary.IndexNodes(nodes); err != nil {
		log.Printf("search: reindex contents: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
