// Package export renders a content node, optionally with its subtree, into a
// single HTML, PDF or DOCX file.
package export

import (
	"context"
	"errors"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

type formatInfo struct {
	ext  string
	mime string
}

var formats = map[Format]formatInfo{
	FormatHTML: {ext: ".html", mime: "text/html; charset=utf-8"},
	FormatPDF:  {ext: ".pdf", mime: "application/pdf"},
	FormatDOCX: {ext: ".docx", mime: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// pageMeta is what a converter needs besides the rendered HTML.
type pageMeta struct {
	Title    string
	Path     string
	Sections int
}

// converter turns the aggregated HTML page into another format.
type converter func(ctx context.Context, html string, meta pageMeta) ([]byte, error)

// ParseFormat accepts the format names of the export endpoint. Empty means HTML.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF, FormatDOCX:
		return Format(raw), nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Request contains parameters for an export operation
type Request struct {
	DocumentID      string
	NodeID          string
	Format          Format
	IncludeChildren bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	Sections int
}

var (
	// ErrUnsupportedFormat indicates the requested output format is unknown.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
