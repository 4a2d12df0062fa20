package influx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewer-benchmark/internal/bench"
)

func testCase(t *testing.T) *bench.Case {
	t.Helper()
	trial := func(decode, total int64) *bench.Trial {
		tr := &bench.Trial{Timings: bench.NewOrderedMap[int64](), Info: bench.NewOrderedMap[string]()}
		tr.Timings.Set("DECODE", decode)
		tr.Timings.Set(bench.TotalClientTime, total)
		tr.Info.Set("Rows", "512")
		return tr
	}
	spec := bench.CaseSpec{Instance: "I1", Frame: 2, Quality: bench.QualityHigh, Comment: bench.Comment{"CT"}, Gzip: true}
	c, err := bench.NewCase(spec, spec.Path(""), []*bench.Trial{trial(10, 20), trial(12, 22)})
	require.NoError(t, err)
	return c
}

func TestTrialRecords(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := trialRecords("run-1", []*bench.Case{testCase(t)}, base)

	require.Len(t, records, 2)
	assert.Equal(t, "trial_timing", records[0].measurement)
	assert.Equal(t, "run-1", records[0].tags["run_id"])
	assert.Equal(t, "high-quality", records[0].tags["quality"])
	assert.Equal(t, "true", records[0].tags["gzip"])
	assert.Equal(t, "(CT)", records[0].tags["comment"])
	assert.Equal(t, "1", records[0].tags["trial"])
	assert.Equal(t, "2", records[1].tags["trial"])
	assert.Equal(t, int64(12), records[1].fields["DECODE"])
	assert.Equal(t, int64(22), records[1].fields[bench.TotalClientTime])
	assert.True(t, records[1].ts.After(records[0].ts))
}

func TestCaseRecords(t *testing.T) {
	records := caseRecords("run-1", []*bench.Case{testCase(t)}, time.Now())

	require.Len(t, records, 1)
	assert.Equal(t, "case_timing", records[0].measurement)
	assert.InDelta(t, 11.0, records[0].fields["DECODE"], 1e-9)
	assert.InDelta(t, 21.0, records[0].fields[bench.TotalClientTime], 1e-9)
	assert.Equal(t, "512", records[0].fields["info_Rows"])
	assert.Equal(t, int64(2), records[0].fields["trials"])
}

func TestDisabledClient(t *testing.T) {
	c, err := NewClient(Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, c.WriteCases(context.Background(), "run", nil))
	assert.NoError(t, c.Close())
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "20240102-030405", RunID(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}
