package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newItemsCommand(outputFlag *OutputFlag) *cobra.Command {
	itemsCommand := &cobra.Command{
		Use:   "items",
		Short: "List and complete action items",
	}
	itemsCommand.AddCommand(
		newItemsListCommand(outputFlag),
		newItemsDoneCommand(outputFlag),
	)
	return itemsCommand
}

func newItemsListCommand(outputFlag *OutputFlag) *cobra.Command {
	var noteIDValue string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List action items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var noteID *int64
			if noteIDValue != "" {
				id, err := parseID("note", noteIDValue)
				if err != nil {
					return err
				}
				noteID = &id
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			items, err := app.service.ListActionItems(cmd.Context(), noteID)
			if err != nil {
				return fmt.Errorf("failed to list action items: %w", err)
			}
			if *outputFlag == OutputYAML {
				return writeYAML(cmd.OutOrStdout(), items)
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().StringVar(&noteIDValue, "note", "", "Only list the items of this note id")
	return cmd
}

func newItemsDoneCommand(outputFlag *OutputFlag) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <action item id>",
		Short: "Mark an action item as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("action item id", args[0])
			if err != nil {
				return err
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.service.MarkActionItemDone(cmd.Context(), id, !undo)
			if err != nil {
				return fmt.Errorf("failed to update the action item: %w", err)
			}
			if *outputFlag == OutputYAML {
				return writeYAML(cmd.OutOrStdout(), result)
			}
			status := pendingColor.Sprint("not done")
			if result.Done {
				status = doneColor.Sprint("done")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action item %d is %s\n", result.ID, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the item as not done")
	return cmd
}
