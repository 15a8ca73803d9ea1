package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/core"
)

var reframeEntryID string

var reframeCmd = &cobra.Command{
	Use:   "reframe <thought>",
	Short: "Rewrite a stressful thought from three perspectives",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		req := core.CreateReframeRequest{OriginalThought: strings.Join(args, " ")}
		if reframeEntryID != "" {
			req.MentalBoxID = &reframeEntryID
		}
		r, err := app.Reframes.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Stoic:    %s\n", r.StoicReframe)
		fmt.Fprintf(out, "Optimist: %s\n", r.OptimistReframe)
		fmt.Fprintf(out, "Realist:  %s\n", r.RealistReframe)
		return nil
	},
}

var reframeHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous reframes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		reframes, err := app.Reframes.List(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, reframes)
	},
}

func init() {
	rootCmd.AddCommand(reframeCmd)
	reframeCmd.AddCommand(reframeHistoryCmd)
	reframeCmd.Flags().StringVar(&reframeEntryID, "entry", "", "Mental box entry the thought came from")
}
