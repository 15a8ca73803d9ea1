package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/breathing"
	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/logger"
)

var breatheCmd = &cobra.Command{
	Use:   "breathe",
	Short: "Run a guided 4-7-8 breathing exercise",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		exercise := breathing.NewExercise(
			breathing.WithInterval(cfg.Breathing.Interval),
			breathing.WithLogger(logger.WithComponent("breathing")),
			breathing.WithOnChange(func(s breathing.State) {
				if s.Completed {
					return
				}
				bar := strings.Repeat("o", int(s.Scale()*10))
				fmt.Fprintf(out, "\rround %d/%d  %-7s %2d  %-15s", s.Round, s.TotalRounds, s.Phase, s.Remaining, bar)
			}),
		)

		err := exercise.Run(cmd.Context())
		switch {
		case err == nil:
			fmt.Fprintln(out, "\nWell done.")
		case errors.Is(err, core.ErrCancelled):
			fmt.Fprintln(out, "\nStopped.")
		default:
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breatheCmd)
}
