package search

import (
	"strings"

	"binder/api/internal/outline"
)

const pathSeparator = " / "

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Snippet    string `json:"snippet"`
	DocumentID string `json:"documentId"`
	Path       string `json:"path"`
	Level      int    `json:"level"`
}

// Query describes a search request.
type Query struct {
	Text       string
	DocumentID string // empty = all documents
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push content nodes into a search index.
type Indexer interface {
	IndexNodes(nodes []NodeRecord) error
}

// NodeRecord is the data we index for a content node.
type NodeRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DocumentID string `json:"documentId"`
	Path       string `json:"path"`
	Level      int    `json:"level"`
}

// RecordsFromTree flattens tree into index records in preorder. Path holds
// the names from the root down to the node.
func RecordsFromTree(documentID string, tree *outline.Tree) []NodeRecord {
	records := make([]NodeRecord, 0, tree.Len())
	var visit func(node *outline.Node, ancestors []string)
	visit = func(node *outline.Node, ancestors []string) {
		names := append(ancestors[:len(ancestors):len(ancestors)], node.Name)
		records = append(records, NodeRecord{
			ID:         node.ID,
			Name:       node.Name,
			DocumentID: documentID,
			Path:       strings.Join(names, pathSeparator),
			Level:      node.Level,
		})
		for _, child := range node.Children {
			visit(child, names)
		}
	}
	visit(tree.Root(), nil)
	return records
}
