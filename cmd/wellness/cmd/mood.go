package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/core"
)

var (
	moodStress     int
	moodNote       string
	moodActivities []string
	recentLimit    int
)

var moodCmd = &cobra.Command{
	Use:   "mood",
	Short: "Track moods and stress levels",
}

var moodLogCmd = &cobra.Command{
	Use:       "log <great|good|okay|bad|terrible>",
	Short:     "Record how you feel",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"great", "good", "okay", "bad", "terrible"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		req := core.CreateMoodEntryRequest{
			Mood:        core.MoodType(strings.ToLower(args[0])),
			StressLevel: moodStress,
			Activities:  moodActivities,
		}
		if moodNote != "" {
			req.Note = &moodNote
		}
		entry, err := app.Mood.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s (stress %d)\n", entry.Mood, entry.StressLevel)
		return nil
	},
}

var moodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every mood entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := app.Mood.List(cmd.Context())
		if err != nil {
			return err
		}
		return printMoods(cmd.OutOrStdout(), entries)
	},
}

var moodRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the latest mood entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := app.Mood.Recent(cmd.Context(), recentLimit)
		if err != nil {
			return err
		}
		return printMoods(cmd.OutOrStdout(), entries)
	},
}

var moodStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize mood history",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		stats, err := app.Mood.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Entries:          %d (%d this week)\n", stats.TotalEntries, stats.EntriesThisWeek)
		fmt.Fprintf(out, "Average stress:   %s\n", stats.AverageStress.StringFixed(2))
		fmt.Fprintf(out, "Most common mood: %s\n", stats.MostCommonMood)
		return nil
	},
}

var moodDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a mood entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireSession(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		return app.Mood.Delete(cmd.Context(), args[0])
	},
}

func printMoods(out io.Writer, entries []core.MoodEntry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tMOOD\tSTRESS\tACTIVITIES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Mood, e.StressLevel, strings.Join(e.Activities, ", "))
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(moodCmd)
	moodCmd.AddCommand(moodLogCmd, moodListCmd, moodRecentCmd, moodStatsCmd, moodDeleteCmd)
	moodLogCmd.Flags().IntVarP(&moodStress, "stress", "s", 5, "Stress level from 1 to 10")
	moodLogCmd.Flags().StringVarP(&moodNote, "note", "n", "", "Optional note")
	moodLogCmd.Flags().StringSliceVarP(&moodActivities, "activity", "a", nil, "Activities, repeatable")
	moodRecentCmd.Flags().IntVarP(&recentLimit, "limit", "l", core.DefaultRecentLimit, "Number of entries")
}
