package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/core"
)

var (
	entryTitle   string
	entryContent string
)

var mentalBoxCmd = &cobra.Command{
	Use:     "mental-box",
	Aliases: []string{"journal"},
	Short:   "Manage mental box journal entries",
}

var mentalBoxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := app.MentalBox.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tTITLE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Title)
		}
		return w.Flush()
	},
}

var mentalBoxShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entry, err := app.MentalBox.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, entry)
	},
}

var mentalBoxAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Write a journal entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entry, err := app.MentalBox.Create(cmd.Context(), core.CreateMentalBoxRequest{
			Title:   entryTitle,
			Content: entryContent,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", entry.ID)
		return nil
	},
}

var mentalBoxEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title or content of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		var req core.UpdateMentalBoxRequest
		if cmd.Flags().Changed("title") {
			req.Title = &entryTitle
		}
		if cmd.Flags().Changed("content") {
			req.Content = &entryContent
		}
		entry, err := app.MentalBox.Update(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printJSON(cmd, entry)
	},
}

var mentalBoxDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		return app.MentalBox.Delete(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(mentalBoxCmd)
	mentalBoxCmd.AddCommand(mentalBoxListCmd, mentalBoxShowCmd, mentalBoxAddCmd, mentalBoxEditCmd, mentalBoxDeleteCmd)
	for _, c := range []*cobra.Command{mentalBoxAddCmd, mentalBoxEditCmd} {
		c.Flags().StringVarP(&entryTitle, "title", "t", "", "Entry title")
		c.Flags().StringVarP(&entryContent, "content", "c", "", "Entry text")
	}
	mentalBoxAddCmd.MarkFlagRequired("title")
}
