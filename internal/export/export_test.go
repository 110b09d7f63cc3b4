package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"binder/api/internal/blob"
	"binder/api/internal/outline"
)

type fakeStore struct {
	tree *outline.Tree
	err  error
}

func (f fakeStore) LiveOutline(context.Context, string) (*outline.Tree, error) {
	return f.tree, f.err
}

type fakeBodies map[string]string

func (f fakeBodies) GetBody(_ context.Context, documentID, nodeID string) ([]byte, error) {
	if nodeID == "broken" {
		return nil, errors.New("bucket offline")
	}
	body, ok := f[nodeID]
	if !ok {
		return nil, fmt.Errorf("get body %s/%s: %w", documentID, nodeID, blob.ErrNotFound)
	}
	return []byte(body), nil
}

func exportTree(t *testing.T) *outline.Tree {
	t.Helper()
	root, ch1, ch2 := "root", "ch1", "ch2"
	tree, err := outline.Build([]outline.Record{
		{ID: "root", Name: "Handbook"},
		{ID: "ch1", Name: "Getting started", Order: 0, ParentID: &root},
		{ID: "s1", Name: "Install", Order: 0, ParentID: &ch1},
		{ID: "s2", Name: "Configure <env>", Order: 1, ParentID: &ch1},
		{ID: "ch2", Name: "Operations", Order: 1, ParentID: &root},
		{ID: "s3", Name: "Backups", Order: 0, ParentID: &ch2},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tree
}

func newTestService(t *testing.T, bodies BodyStore) *Service {
	svc := NewService(fakeStore{tree: exportTree(t)}, bodies)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportHTMLAggregatesSubtree(t *testing.T) {
	svc := newTestService(t, fakeBodies{
		"ch1": "<p>Chapter intro.</p>",
		"s1":  "<p>Run the installer.</p>",
	})

	res, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "ch1", Format: FormatHTML, IncludeChildren: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Sections != 3 {
		t.Fatalf("Sections = %d, want 3", res.Sections)
	}
	if res.Filename != "Getting-started.html" || !strings.HasPrefix(res.MimeType, "text/html") {
		t.Fatalf("unexpected result metadata: %s %s", res.Filename, res.MimeType)
	}

	html := string(res.Data)
	for _, want := range []string{
		"<title>Getting started</title>",
		"Handbook / Getting started",
		"<h1>Getting started</h1>",
		`<h2><span class="number">1.</span>Install</h2>`,
		`<h2><span class="number">2.</span>Configure &lt;env&gt;</h2>`,
		"<p>Chapter intro.</p>",
		"<p>Run the installer.</p>",
		"Mar 1, 2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "Backups") {
		t.Error("HTML contains a node outside the exported subtree")
	}
	if strings.Index(html, "Install") > strings.Index(html, "Configure") {
		t.Error("sections are not in sibling order")
	}
}

func TestExportSingleNode(t *testing.T) {
	svc := newTestService(t, nil)
	res, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "ch2"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Sections != 1 || strings.Contains(string(res.Data), "Backups") {
		t.Fatalf("expected only the node itself, got %d sections", res.Sections)
	}
	if !strings.Contains(string(res.Data), "No content.") {
		t.Error("expected placeholder for missing body")
	}
}

func TestExportNestedNumbering(t *testing.T) {
	sections := collectSections(exportTree(t).Root(), true)
	got := make([]string, 0, len(sections))
	for _, s := range sections {
		got = append(got, s.Number+s.Name)
	}
	want := "Handbook,1.Getting started,1.1.Install,1.2.Configure <env>,2.Operations,2.1.Backups"
	if strings.Join(got, ",") != want {
		t.Fatalf("sections = %s, want %s", strings.Join(got, ","), want)
	}
	if !strings.HasPrefix(string(sections[2].HeadingHTML), "<h3>") {
		t.Fatalf("unexpected heading for depth 2: %s", sections[2].HeadingHTML)
	}
}

func TestExportErrors(t *testing.T) {
	svc := newTestService(t, fakeBodies{})

	_, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "ghost"})
	if !errors.Is(err, outline.ErrNotFound) {
		t.Fatalf("expected outline.ErrNotFound, got %v", err)
	}

	_, err = svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "ch1", Format: "rtf"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	failing := NewService(fakeStore{err: errors.New("db down")}, nil)
	if _, err := failing.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "ch1"}); err == nil {
		t.Fatal("expected outline load error")
	}
}

func TestExportBodyStoreFailure(t *testing.T) {
	root := "root"
	tree, err := outline.Build([]outline.Record{
		{ID: "root", Name: "Handbook"},
		{ID: "broken", Name: "Broken", ParentID: &root},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	svc := NewService(fakeStore{tree: tree}, fakeBodies{})
	if _, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "root", IncludeChildren: true}); err == nil {
		t.Fatal("expected body store error to fail the export")
	}
}

func TestExportDelegatesPDF(t *testing.T) {
	svc := newTestService(t, nil)
	var rendered string
	var gotMeta pageMeta
	svc.converters[FormatPDF] = func(_ context.Context, html string, meta pageMeta) ([]byte, error) {
		rendered = html
		gotMeta = meta
		return []byte("%PDF"), nil
	}
	res, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "root", Format: FormatPDF, IncludeChildren: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Filename != "Handbook.pdf" || res.MimeType != "application/pdf" || res.Sections != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(rendered, "Backups") {
		t.Fatal("PDF renderer did not receive the aggregated HTML")
	}
	if gotMeta != (pageMeta{Title: "Handbook", Path: "Handbook", Sections: 6}) {
		t.Fatalf("meta = %+v", gotMeta)
	}
}

func TestExportConverterFailure(t *testing.T) {
	svc := newTestService(t, nil)
	svc.converters[FormatDOCX] = func(context.Context, string, pageMeta) ([]byte, error) {
		return nil, ErrDOCXDependencyMissing
	}
	_, err := svc.Export(context.Background(), Request{DocumentID: "doc-1", NodeID: "s1", Format: FormatDOCX})
	if !errors.Is(err, ErrDOCXDependencyMissing) {
		t.Fatalf("expected ErrDOCXDependencyMissing, got %v", err)
	}
}

func TestPandocArgs(t *testing.T) {
	single := strings.Join(pandocArgs(pageMeta{Title: "Install", Path: "Handbook / Getting started / Install", Sections: 1}), " ")
	if !strings.Contains(single, "subtitle=Handbook / Getting started / Install") || strings.Contains(single, "--toc") {
		t.Fatalf("single section args = %s", single)
	}
	tree := strings.Join(pandocArgs(pageMeta{Title: "Handbook", Path: "Handbook", Sections: 6}), " ")
	if strings.Contains(tree, "subtitle=") || !strings.Contains(tree, "--toc") {
		t.Fatalf("subtree args = %s", tree)
	}
	if !strings.HasSuffix(tree, "--output -") {
		t.Fatalf("pandoc must write to stdout: %s", tree)
	}
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatHTML, "html": FormatHTML, "pdf": FormatPDF, "docx": FormatDOCX} {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseFormat("PDF!"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v1-2"},
		{"  Getting   started  ", "Getting-started"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"Café notes", "Caf-notes"},
		{"", "document"},
		{"???", "document"},
		{strings.Repeat("chapter ", 10), "chapter-chapter-chapter-chapter-chapter-chapter-chapter-chap"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestHTMLDataURL(t *testing.T) {
	got := htmlDataURL("<p>café</p>")
	want := "data:text/html;charset=utf-8;base64,PHA+Y2Fmw6k8L3A+"
	if got != want {
		t.Fatalf("htmlDataURL() = %q, want %q", got, want)
	}
}
