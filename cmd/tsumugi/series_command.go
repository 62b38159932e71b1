package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsumugi/internal/series"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Series detection and predecessor lookup",
	}
	seriesCmd.AddCommand(newSeriesDetectCommand())
	seriesCmd.AddCommand(newSeriesPredecessorCommand(ctx))
	return seriesCmd
}

func newSeriesDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "detect <title>",
		Short:       "Parse a title into series name and volume number",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detection, ok := series.DetectSeries(args[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No volume marker detected; treated as a standalone work.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Series: %s\nVolume: %d\n", detection.SeriesTitle, detection.Sequence)
			return nil
		},
	}
}

func newSeriesPredecessorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "predecessor <title>",
		Short: "Find the processed predecessor volume for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			detection, ok := series.DetectSeries(args[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No volume marker detected; a standalone work has no predecessor.")
				return nil
			}

			resolver := series.NewResolver(cfg.Paths.LibraryDir, nil)
			predecessor, err := resolver.FindPredecessor(cmd.Context(), detection.SeriesTitle, detection.Sequence)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if predecessor == nil {
				fmt.Fprintf(out, "No predecessor found for %q volume %d; it would open the series.\n",
					detection.SeriesTitle, detection.Sequence)
				return nil
			}
			fmt.Fprintf(out, "Predecessor: %s (volume %d)\n", predecessor.DocumentID, predecessor.Sequence)
			if predecessor.Sequence != detection.Sequence-1 {
				fmt.Fprintf(out, "Note: volumes %d through %d were never processed.\n",
					predecessor.Sequence+1, detection.Sequence-1)
			}
			return nil
		},
	}
}
