package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"binder/api/internal/outline"
	"binder/api/internal/resequence"
)

// ErrConflict is returned when an insert collides with an existing row.
var ErrConflict = errors.New("conflict")

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, root_content_id, updated_by_name, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.RootContentID, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, root_content_id, updated_by_name, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.RootContentID, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

// InsertDocument creates a document together with its root content node.
func (s *PostgresStore) InsertDocument(ctx context.Context, item Document, root Content) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, root_content_id, updated_by_name)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.Title, root.ID, item.UpdatedBy); err != nil {
		return insertError("insert document", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO contents (id, document_id, parent_id, name, sort_order, level, updated_by_name)
		VALUES ($1, $2, NULL, $3, 0, 0, $4)
	`, root.ID, item.ID, root.Name, item.UpdatedBy); err != nil {
		return insertError("insert root content", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchDocument(ctx context.Context, documentID, updatedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET updated_by_name=$2, updated_at=NOW() WHERE id=$1
	`, documentID, updatedBy)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentTitle(ctx context.Context, documentID, title, updatedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET title=$2, updated_by_name=$3, updated_at=NOW() WHERE id=$1
	`, documentID, title, updatedBy)
	if err != nil {
		return fmt.Errorf("update document title: %w", err)
	}
	return requireRow(res, "update document title")
}

// RenameContent sets the name of one node. The order columns are untouched.
func (s *PostgresStore) RenameContent(ctx context.Context, documentID, contentID, name, updatedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contents SET name=$3, updated_by_name=$4, updated_at=NOW()
		WHERE document_id=$1 AND id=$2
	`, documentID, contentID, name, updatedBy)
	if err != nil {
		return fmt.Errorf("rename content: %w", err)
	}
	return requireRow(res, "rename content")
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

func (s *PostgresStore) ListContents(ctx context.Context, documentID string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, name, parent_id, sort_order, level, updated_by_name, updated_at
		FROM contents
		WHERE document_id=$1
		ORDER BY level, parent_id NULLS FIRST, sort_order, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	items := make([]Content, 0)
	for rows.Next() {
		var item Content
		var parentID sql.NullString
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Name, &parentID, &item.SortOrder, &item.Level, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		if parentID.Valid {
			value := parentID.String
			item.ParentID = &value
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contents: %w", err)
	}
	return items, nil
}

// LoadOutline reads a document's contents and builds its tree. Stored orders
// and levels are normalised by outline.Build.
func (s *PostgresStore) LoadOutline(ctx context.Context, documentID string) (*outline.Tree, error) {
	contents, err := s.ListContents(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, sql.ErrNoRows
	}
	records := make([]outline.Record, 0, len(contents))
	for _, c := range contents {
		records = append(records, c.Record())
	}
	tree, err := outline.Build(records)
	if err != nil {
		return nil, fmt.Errorf("load outline %s: %w", documentID, err)
	}
	return tree, nil
}

func (s *PostgresStore) InsertContent(ctx context.Context, item Content) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contents (id, document_id, parent_id, name, sort_order, level, updated_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.DocumentID, item.ParentID, item.Name, item.SortOrder, item.Level, item.UpdatedBy)
	if err != nil {
		return insertError("insert content", err)
	}
	return nil
}

// SavePositions rewrites order, level and parent of the given nodes of one
// document in a single transaction. Any failed entry rolls the whole
// transaction back.
func (s *PostgresStore) SavePositions(ctx context.Context, documentID string, positions []outline.Position) ([]resequence.SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save positions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]resequence.SaveResult, 0, len(positions))
	failed := false
	for i, p := range positions {
		res, err := tx.ExecContext(ctx, `
			UPDATE contents
			SET parent_id=$3, sort_order=$4, level=$5, updated_at=NOW()
			WHERE id=$1 AND document_id=$2
		`, p.ID, documentID, p.ParentID, p.Order, p.Level)
		if err != nil {
			// The transaction is aborted; nothing after this entry can run.
			results = append(results, resequence.SaveResult{ID: p.ID, Err: err.Error()})
			for _, rest := range positions[i+1:] {
				results = append(results, resequence.SaveResult{ID: rest.ID, Err: "not attempted"})
			}
			return results, nil
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("save position %s: %w", p.ID, err)
		}
		if affected == 0 {
			failed = true
			results = append(results, resequence.SaveResult{ID: p.ID, Err: "content not found in document"})
			continue
		}
		results = append(results, resequence.SaveResult{ID: p.ID})
	}
	if failed {
		return results, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save positions: %w", err)
	}
	return results, nil
}

// Gateway binds SavePositions to one document.
func (s *PostgresStore) Gateway(documentID string) resequence.Gateway {
	return resequence.GatewayFunc(func(ctx context.Context, positions []outline.Position) ([]resequence.SaveResult, error) {
		return s.SavePositions(ctx, documentID, positions)
	})
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func insertError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
