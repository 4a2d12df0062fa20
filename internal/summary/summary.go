package summary

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/cli"
)

// ClientLatencies returns the client-side latency of every trial of c.
func ClientLatencies(c *bench.Case) []int64 {
	out := make([]int64, 0, len(c.Trials))
	for _, t := range c.Trials {
		if v, ok := t.Timings.Get(bench.TotalClientTime); ok {
			out = append(out, v)
		}
	}
	return out
}

// PrintCaseTable prints one row per case with its client latency spread.
func PrintCaseTable(w io.Writer, cases []*bench.Case) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"#", "Path", "Gzip", "Comment", "Trials", "Avg", "P50", "P95", "Min", "Max"}),
	)

	for i, c := range cases {
		stats := CalculateStats(ClientLatencies(c))
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			c.Path,
			strconv.FormatBool(c.Gzip()),
			c.Comment().String(),
			strconv.Itoa(c.TrialCount()),
			cli.FormatMillis(stats.Avg),
			formatMs(stats.P50),
			formatMs(stats.P95),
			formatMs(stats.Low),
			formatMs(stats.High),
		}); err != nil {
			return fmt.Errorf("failed to append case row: %w", err)
		}
	}

	return table.Render()
}

// PrintStageTable prints the averaged server stages of c followed by its
// frame information.
func PrintStageTable(w io.Writer, c *bench.Case) error {
	agg := c.Aggregate()

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Stage", "Avg", "Min", "Max", "Total"}),
	)
	for key, avg := range agg.Averages.All() {
		low, _ := agg.Low.Get(key)
		high, _ := agg.High.Get(key)
		total, _ := agg.Totals.Get(key)
		if err := table.Append([]string{key, cli.FormatMillis(avg), formatMs(low), formatMs(high), formatMs(total)}); err != nil {
			return fmt.Errorf("failed to append stage row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if agg.Info.Len() == 0 {
		return nil
	}

	info := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Frame", "Value"}))
	for key, value := range agg.Info.All() {
		if err := info.Append([]string{key, value}); err != nil {
			return fmt.Errorf("failed to append info row: %w", err)
		}
	}
	return info.Render()
}

func formatMs(ms int64) string {
	return strconv.FormatInt(ms, 10) + "ms"
}
