package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/note"
	"github.com/at-ishikawa/actionnotes/internal/report"
)

type noteWithItems struct {
	Note  note.Note               `yaml:"note"`
	Items []actionitem.ActionItem `yaml:"items"`
}

func newNotesCommand(outputFlag *OutputFlag) *cobra.Command {
	notesCommand := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}
	notesCommand.AddCommand(
		newNotesAddCommand(outputFlag),
		newNotesListCommand(outputFlag),
		newNotesShowCommand(outputFlag),
		newNotesExportCommand(),
	)
	return notesCommand
}

func newNotesAddCommand(outputFlag *OutputFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "add [content...]",
		Short: "Save a note from the arguments or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if len(args) > 0 {
				content = strings.Join(args, " ")
			} else {
				var err error
				if content, err = readInput(cmd, nil); err != nil {
					return err
				}
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			created, err := app.service.CreateNote(cmd.Context(), content)
			if err != nil {
				return fmt.Errorf("failed to create a note: %w", err)
			}
			if *outputFlag == OutputYAML {
				return writeYAML(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note %d\n", created.ID)
			return nil
		},
	}
}

func newNotesListCommand(outputFlag *OutputFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			notes, err := app.service.ListNotes(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list notes: %w", err)
			}
			if *outputFlag == OutputYAML {
				return writeYAML(cmd.OutOrStdout(), notes)
			}
			printNotes(cmd.OutOrStdout(), notes)
			return nil
		},
	}
}

func newNotesShowCommand(outputFlag *OutputFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "show <note id>",
		Short: "Show a note and its action items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("note id", args[0])
			if err != nil {
				return err
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			found, items, err := findNoteWithItems(cmd, app, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if *outputFlag == OutputYAML {
				return writeYAML(out, noteWithItems{Note: *found, Items: items})
			}
			fmt.Fprintf(out, "Note %d (%s)\n\n%s\n\n", found.ID, found.CreatedAt.Format("2006-01-02 15:04"), found.Content)
			printItems(out, items)
			return nil
		},
	}
}

func newNotesExportCommand() *cobra.Command {
	var generatePDF bool
	cmd := &cobra.Command{
		Use:   "export <note id>",
		Short: "Write a note and its action items as a Markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("note id", args[0])
			if err != nil {
				return err
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			found, items, err := findNoteWithItems(cmd, app, id)
			if err != nil {
				return err
			}

			mdPath, err := report.NewWriter(app.cfg.Outputs).WriteMarkdown(report.Data{
				Note:        *found,
				Items:       items,
				GeneratedAt: time.Now(),
			})
			if err != nil {
				return fmt.Errorf("failed to write a report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Markdown: %s\n", mdPath)

			if !generatePDF {
				return nil
			}
			pdfPath, err := report.ConvertMarkdownToPDF(mdPath)
			if err != nil {
				return fmt.Errorf("failed to convert to PDF: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PDF: %s\n", pdfPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&generatePDF, "pdf", false, "Also convert the report to PDF")
	return cmd
}

func findNoteWithItems(cmd *cobra.Command, app *application, id int64) (*note.Note, []actionitem.ActionItem, error) {
	found, err := app.service.GetNote(cmd.Context(), id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get the note: %w", err)
	}
	items, err := app.service.ListActionItems(cmd.Context(), &id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list action items: %w", err)
	}
	return found, items, nil
}
