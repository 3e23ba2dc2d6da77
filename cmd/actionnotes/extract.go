package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/actionnotes/internal/service"
)

func newExtractCommand(outputFlag *OutputFlag) *cobra.Command {
	var useModel bool
	var saveNote bool
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract action items from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			var result *service.ExtractResult
			if useModel {
				result, err = app.service.ExtractWithModel(cmd.Context(), text, saveNote)
			} else {
				result, err = app.service.Extract(cmd.Context(), text, saveNote)
			}
			if err != nil {
				return fmt.Errorf("failed to extract action items: %w", err)
			}

			out := cmd.OutOrStdout()
			if *outputFlag == OutputYAML {
				return writeYAML(out, result)
			}
			if result.NoteID != nil {
				fmt.Fprintf(out, "Saved note %d\n", *result.NoteID)
			}
			printItems(out, result.Items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useModel, "model", false, "Use the configured language model instead of the built-in rules")
	cmd.Flags().BoolVar(&saveNote, "save", false, "Save the text as a note and link the items to it")
	return cmd
}
