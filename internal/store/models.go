package store

import (
	"time"

	"binder/api/internal/outline"
)

type Document struct {
	ID            string
	Title         string
	RootContentID string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Content is one row of the contents table: a node of a document outline.
type Content struct {
	ID         string
	DocumentID string
	Name       string
	ParentID   *string
	SortOrder  int
	Level      int
	UpdatedBy  string
	UpdatedAt  time.Time
}

func (c Content) Record() outline.Record {
	return outline.Record{
		ID:       c.ID,
		Name:     c.Name,
		Order:    c.SortOrder,
		Level:    c.Level,
		ParentID: c.ParentID,
	}
}

func ContentFromRecord(documentID string, r outline.Record) Content {
	return Content{
		ID:         r.ID,
		DocumentID: documentID,
		Name:       r.Name,
		ParentID:   r.ParentID,
		SortOrder:  r.Order,
		Level:      r.Level,
	}
}
