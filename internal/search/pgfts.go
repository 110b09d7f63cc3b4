package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ancestryCTE resolves the name path of every content node.
const ancestryCTE = `
	WITH RECURSIVE ancestry AS (
		SELECT c.id, c.name::text AS path
		FROM contents c
		WHERE c.parent_id IS NULL
		UNION ALL
		SELECT c.id, a.path || ' / ' || c.name
		FROM contents c
		JOIN ancestry a ON c.parent_id = a.id
	)`

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches content names with plainto_tsquery and ranks them with ts_rank.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	where := "c.fts @@ " + tsQuery
	if q.DocumentID != "" {
		where += " AND c.document_id = $2"
		args = append(args, q.DocumentID)
	}

	countSQL := fmt.Sprintf(`SELECT count(*) FROM contents c WHERE %s`, where)

	dataSQL := fmt.Sprintf(`%s
		SELECT c.id, c.name,
			ts_headline('english', c.name, %s, 'StartSel=<mark>,StopSel=</mark>') AS snippet,
			c.document_id, a.path, c.level
		FROM contents c
		JOIN ancestry a ON a.id = c.id
		WHERE %s
		ORDER BY ts_rank(c.fts, %s) DESC, c.id
		LIMIT %d OFFSET %d`,
		ancestryCTE, tsQuery, where, tsQuery, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Name, &r.Snippet, &r.DocumentID, &r.Path, &r.Level); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every content node for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]NodeRecord, error) {
	rows, err := p.db.QueryContext(ctx, ancestryCTE+`
		SELECT c.id, c.name, c.document_id, a.path, c.level
		FROM contents c
		JOIN ancestry a ON a.id = c.id
		ORDER BY c.document_id, c.level, c.sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("load contents: %w", err)
	}
	defer rows.Close()

	nodes := make([]NodeRecord, 0)
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(&n.ID, &n.Name, &n.DocumentID, &n.Path, &n.Level); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contents: %w", err)
	}
	return nodes, nil
}
