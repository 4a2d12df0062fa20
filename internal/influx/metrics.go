package influx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"viewer-benchmark/internal/bench"
)

type record struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	ts          time.Time
}

func caseTags(runID string, c *bench.Case) map[string]string {
	return map[string]string{
		"run_id":   runID,
		"instance": c.Spec.Instance,
		"frame":    strconv.Itoa(c.Spec.Frame),
		"quality":  string(c.Spec.Quality),
		"gzip":     strconv.FormatBool(c.Gzip()),
		"comment":  c.Comment().String(),
	}
}

// trialRecords builds one trial_timing record per trial carrying every timing
// key in milliseconds.
func trialRecords(runID string, cases []*bench.Case, base time.Time) []record {
	var out []record
	offset := 0
	for _, c := range cases {
		for i, trial := range c.Trials {
			tags := caseTags(runID, c)
			tags["trial"] = strconv.Itoa(i + 1)

			fields := make(map[string]any, trial.Timings.Len())
			for key, ms := range trial.Timings.All() {
				fields[key] = ms
			}

			out = append(out, record{
				measurement: "trial_timing",
				tags:        tags,
				fields:      fields,
				ts:          base.Add(time.Duration(offset) * time.Microsecond),
			})
			offset++
		}
	}
	return out
}

// caseRecords builds one case_timing record per case with the averaged keys
// and the frame information.
func caseRecords(runID string, cases []*bench.Case, base time.Time) []record {
	out := make([]record, 0, len(cases))
	for i, c := range cases {
		fields := make(map[string]any, c.Averages().Len()+c.Info().Len()+1)
		for key, avg := range c.Averages().All() {
			fields[key] = avg
		}
		for key, value := range c.Info().All() {
			fields["info_"+key] = value
		}
		fields["trials"] = int64(c.TrialCount())

		out = append(out, record{
			measurement: "case_timing",
			tags:        caseTags(runID, c),
			fields:      fields,
			ts:          base.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return out
}

// WriteCases exports every trial and every case aggregate of a run.
func (c *Client) WriteCases(ctx context.Context, runID string, cases []*bench.Case) error {
	if c == nil || len(cases) == 0 {
		return nil
	}

	now := time.Now()
	records := trialRecords(runID, cases, now)
	records = append(records, caseRecords(runID, cases, now)...)

	if err := c.write(ctx, records); err != nil {
		return fmt.Errorf("failed to write points to %s: %w", c.database, err)
	}
	c.logger.Info("influx export done", "run_id", runID, "points", len(records))
	return nil
}
