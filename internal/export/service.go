package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"binder/api/internal/blob"
	"binder/api/internal/outline"
)

// DataStore defines the interface for data access
type DataStore interface {
	// LiveOutline returns the committed tree of a document.
	LiveOutline(ctx context.Context, documentID string) (*outline.Tree, error)
}

// BodyStore reads node bodies. A missing body is reported as blob.ErrNotFound.
type BodyStore interface {
	GetBody(ctx context.Context, documentID, nodeID string) ([]byte, error)
}

// Service provides outline export functionality
type Service struct {
	store      DataStore
	bodies     BodyStore
	converters map[Format]converter
	now        func() time.Time
}

// NewService creates a new export service. bodies may be nil, in which case
// every section is exported without a body.
func NewService(store DataStore, bodies BodyStore) *Service {
	return &Service{
		store:  store,
		bodies: bodies,
		converters: map[Format]converter{
			FormatPDF:  renderPDF,
			FormatDOCX: renderDOCX,
		},
		now: time.Now,
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	tree, err := s.store.LiveOutline(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load outline: %w", err)
	}
	node, err := tree.Lookup(req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("export node: %w", err)
	}
	path, err := tree.Path(req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("export node: %w", err)
	}

	data := TemplateData{
		Title:       node.Name,
		Path:        strings.Join(path, " / "),
		GeneratedAt: s.now(),
		Sections:    collectSections(node, req.IncludeChildren),
	}
	for i := range data.Sections {
		body, err := s.body(ctx, req.DocumentID, data.Sections[i].ID)
		if err != nil {
			return nil, err
		}
		data.Sections[i].BodyHTML = body
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	format := req.Format
	if format == "" {
		format = FormatHTML
	}
	info, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	out := []byte(html)
	if format != FormatHTML {
		convert, ok := s.converters[format]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
		out, err = convert(ctx, html, pageMeta{Title: node.Name, Path: data.Path, Sections: len(data.Sections)})
		if err != nil {
			return nil, err
		}
	}
	return &Result{
		Data:     out,
		Filename: sanitizeFilename(node.Name) + info.ext,
		MimeType: info.mime,
		Sections: len(data.Sections),
	}, nil
}

func (s *Service) body(ctx context.Context, documentID, nodeID string) (string, error) {
	if s.bodies == nil {
		return "", nil
	}
	data, err := s.bodies.GetBody(ctx, documentID, nodeID)
	if errors.Is(err, blob.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load body %s: %w", nodeID, err)
	}
	return string(data), nil
}

// collectSections lists node and, when withChildren is set, its subtree in
// preorder. Numbers are relative to node, which itself is unnumbered.
func collectSections(node *outline.Node, withChildren bool) []TemplateSection {
	sections := []TemplateSection{newSection(node.ID, node.Name, "", node.Level, 0)}
	if !withChildren {
		return sections
	}
	var visit func(parent *outline.Node, prefix string, depth int)
	visit = func(parent *outline.Node, prefix string, depth int) {
		for i, child := range parent.Children {
			number := prefix + strconv.Itoa(i+1)
			sections = append(sections, newSection(child.ID, child.Name, number+".", child.Level, depth))
			visit(child, number+".", depth+1)
		}
	}
	visit(node, "", 1)
	return sections
}

const maxFilenameLen = 60

// sanitizeFilename keeps ASCII letters and digits. Runs of spaces and
// punctuation become a single dash.
func sanitizeFilename(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range title {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || strings.ContainsRune("-_./", r):
			dash = true
		}
		if b.Len() >= maxFilenameLen {
			break
		}
	}
	name := b.String()
	if name == "" {
		return "document"
	}
	return name
}
