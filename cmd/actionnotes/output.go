package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/note"
)

type OutputFlag string

const (
	OutputText OutputFlag = "text"
	OutputYAML OutputFlag = "yaml"
)

var (
	_ pflag.Value = (*OutputFlag)(nil)

	doneColor    = color.New(color.FgGreen)
	pendingColor = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

// Set implements pflag.Value.
func (o *OutputFlag) Set(v string) error {
	switch v {
	case string(OutputText):
		*o = OutputText
	case string(OutputYAML):
		*o = OutputYAML
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, OutputText, OutputYAML)
	}
	return nil
}

// String implements pflag.Value.
func (o *OutputFlag) String() string {
	if o == nil {
		return ""
	}
	return string(*o)
}

// Type implements pflag.Value.
func (o *OutputFlag) Type() string {
	return "OutputFlag"
}

func writeYAML(w io.Writer, value any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encoder.Encode() > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoder.Close() > %w", err)
	}
	return nil
}

func printItems(w io.Writer, items []actionitem.ActionItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No action items.")
		return
	}
	for _, item := range items {
		checkbox := pendingColor.Sprint("[ ]")
		if item.Done {
			checkbox = doneColor.Sprint("[x]")
		}
		fmt.Fprintf(w, "%d %s %s", item.ID, checkbox, item.Text)
		if item.NoteID != nil {
			fmt.Fprint(w, faintColor.Sprintf(" (note %d)", *item.NoteID))
		}
		fmt.Fprintln(w)
	}
}

func printNotes(w io.Writer, notes []note.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "%d %s %s\n", n.ID, faintColor.Sprint(n.CreatedAt.Format("2006-01-02 15:04")), summarize(n.Content, 60))
	}
}

// summarize returns the first line of content cut to at most limit runes.
func summarize(content string, limit int) string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	runes := []rune(strings.TrimSpace(firstLine))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}
