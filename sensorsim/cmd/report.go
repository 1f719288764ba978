package cmd

import (
	"context"
	"fmt"

	"github.com/sarchlab/sensorsim/datarecording"
	"github.com/sarchlab/sensorsim/histogram"
	"github.com/sarchlab/sensorsim/simulation"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <recording>",
		Short: "Print the histograms stored in a recording.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd, datarecording.Filename(args[0]))
		},
	}
}

func report(cmd *cobra.Command, filename string) error {
	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(simulation.RunTable, simulation.RunEntry{})
	reader.MapTable(simulation.HistogramTable, simulation.HistogramEntry{})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, _, err := reader.Query(ctx, simulation.RunTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, r := range runs {
		run := r.(*simulation.RunEntry)

		fmt.Fprintf(out,
			"run %s: %d sensors, %d peers, %s links, %s engine, seed %s, %.3fs\n",
			run.ID, run.Sensors, run.Peers, run.LinkMode, run.Engine,
			run.Seed, run.ElapsedSec)

		entries, _, err := reader.Query(ctx, simulation.HistogramTable,
			datarecording.QueryParams{
				Where:   "RunID = ?",
				Args:    []any{run.ID},
				OrderBy: "Hops ASC",
			})
		if err != nil {
			return err
		}

		rows := make([]histogram.Row, 0, len(entries))
		for _, e := range entries {
			entry := e.(*simulation.HistogramEntry)
			rows = append(rows, histogram.Row{
				Hops:  entry.Hops,
				Count: uint64(entry.Count),
			})
		}

		err = histogram.Render(out, rows)
		if err != nil {
			return err
		}
	}

	return nil
}
