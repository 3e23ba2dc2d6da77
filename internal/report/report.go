// Package report renders a note and its action items as a Markdown checklist
// and optionally converts it to PDF.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/note"
)

const embeddedTemplateName = "note-report.md.go.tmpl"

//go:embed templates/note-report.md.go.tmpl
var fallbackNoteReportTemplate string

// Data is what the report template is executed with.
type Data struct {
	Note        note.Note
	Items       []actionitem.ActionItem
	GeneratedAt time.Time
}

var funcMap = template.FuncMap{
	"checkbox": func(done bool) string {
		if done {
			return "[x]"
		}
		return "[ ]"
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"doneCount": func(items []actionitem.ActionItem) int {
		count := 0
		for _, item := range items {
			if item.Done {
				count++
			}
		}
		return count
	},
}

// ParseTemplate parses the template at templatePath, falling back to the
// embedded one when the path is empty, missing or unparsable.
func ParseTemplate(templatePath string) (*template.Template, error) {
	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(templatePath)).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			slog.Default().Warn("failed to parse a report template",
				slog.String("templatePath", templatePath),
				slog.Any("error", err),
			)
		}
	}

	tmpl, err := template.New(embeddedTemplateName).
		Funcs(funcMap).
		Parse(fallbackNoteReportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// RenderMarkdown executes tmpl with data into output.
func RenderMarkdown(output io.Writer, tmpl *template.Template, data Data) error {
	if err := tmpl.Execute(output, data); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}

// Writer stores reports as files under a directory.
type Writer struct {
	directory    string
	templatePath string
}

// NewWriter creates a Writer from the outputs configuration.
func NewWriter(cfg config.OutputsConfig) *Writer {
	return &Writer{
		directory:    cfg.ReportDirectory,
		templatePath: cfg.ReportTemplate,
	}
}

// WriteMarkdown writes note-<id>.md and returns its path.
func (w *Writer) WriteMarkdown(data Data) (string, error) {
	tmpl, err := ParseTemplate(w.templatePath)
	if err != nil {
		return "", fmt.Errorf("ParseTemplate() > %w", err)
	}

	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, tmpl, data); err != nil {
		return "", fmt.Errorf("RenderMarkdown() > %w", err)
	}

	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", w.directory, err)
	}
	path := filepath.Join(w.directory, fmt.Sprintf("note-%d.md", data.Note.ID))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return path, nil
}

// ConvertMarkdownToPDF converts a Markdown file into a PDF next to it and
// returns the absolute PDF path.
func ConvertMarkdownToPDF(markdownPath string) (string, error) {
	if !strings.HasSuffix(markdownPath, ".md") {
		return "", fmt.Errorf("input file must have .md extension: %s", markdownPath)
	}

	content, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", markdownPath, err)
	}

	pdfPath := strings.TrimSuffix(markdownPath, ".md") + ".pdf"
	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(content); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}
