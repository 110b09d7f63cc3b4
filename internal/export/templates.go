package export

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// documentTemplate lays out the aggregated page. Section bodies are stored
// HTML and are inserted unescaped.
var documentTemplate = template.Must(template.New("document.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
}).ParseFS(templateFS, "templates/document.html"))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	Path        string
	GeneratedAt time.Time
	Sections    []TemplateSection
}

// TemplateSection is one exported node.
type TemplateSection struct {
	ID          string
	Name        string
	Level       int
	Number      string
	HeadingHTML template.HTML
	BodyHTML    string
}

func newSection(id, name, number string, level, depth int) TemplateSection {
	heading := depth + 1
	if heading > 6 {
		heading = 6
	}
	label := html.EscapeString(name)
	if number != "" {
		label = fmt.Sprintf(`<span class="number">%s</span>%s`, html.EscapeString(number), label)
	}
	return TemplateSection{
		ID:          id,
		Name:        name,
		Level:       level,
		Number:      number,
		HeadingHTML: template.HTML(fmt.Sprintf("<h%d>%s</h%d>", heading, label, heading)),
	}
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
