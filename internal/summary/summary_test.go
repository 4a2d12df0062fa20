package summary

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewer-benchmark/internal/bench"
)

func newTrial(decode, total int64, rows string) *bench.Trial {
	t := &bench.Trial{Timings: bench.NewOrderedMap[int64](), Info: bench.NewOrderedMap[string]()}
	t.Timings.Set("DECODE", decode)
	t.Timings.Set(bench.TotalClientTime, total)
	t.Info.Set("Rows", rows)
	return t
}

func newCase(t *testing.T) *bench.Case {
	t.Helper()
	spec := bench.CaseSpec{Instance: "I1", Frame: 0, Quality: bench.QualityLow, Comment: bench.Comment{"A", "B"}}
	c, err := bench.NewCase(spec, spec.Path(""), []*bench.Trial{
		newTrial(40, 50, "512"),
		newTrial(44, 60, "512"),
		newTrial(42, 55, "512"),
	})
	require.NoError(t, err)
	return c
}

func TestCalculateStats(t *testing.T) {
	latencies := []int64{30, 10, 20, 40}
	stats := CalculateStats(latencies)

	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 25.0, stats.Avg, 1e-9)
	assert.Equal(t, int64(10), stats.Low)
	assert.Equal(t, int64(40), stats.High)
	assert.Equal(t, int64(30), stats.P50)
	assert.Equal(t, int64(40), stats.P95)
	assert.Equal(t, []int64{30, 10, 20, 40}, latencies)

	assert.Equal(t, &Stats{}, CalculateStats(nil))
}

func TestClientLatencies(t *testing.T) {
	assert.Equal(t, []int64{50, 60, 55}, ClientLatencies(newCase(t)))
}

func TestPrintTables(t *testing.T) {
	c := newCase(t)

	var buf bytes.Buffer
	require.NoError(t, PrintCaseTable(&buf, []*bench.Case{c}))
	out := buf.String()
	assert.Contains(t, out, "/osimis-viewer/images/I1/0/low-quality")
	assert.Contains(t, out, "(A, B)")
	assert.Contains(t, out, "55.0ms")

	buf.Reset()
	require.NoError(t, PrintStageTable(&buf, c))
	out = buf.String()
	assert.Contains(t, out, "DECODE")
	assert.Contains(t, out, "42.0ms")
	assert.Contains(t, out, "126ms")
	assert.Contains(t, out, "Rows")
	assert.Contains(t, out, "512")
}

func TestWriter_ExportResults(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "http://localhost:8042")

	path, err := w.ExportResults([]*bench.Case{newCase(t)}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, w.RunID(), "cases.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got struct {
		Meta  RunMeta `json:"meta"`
		Cases []struct {
			Path     string             `json:"path"`
			Comment  []string           `json:"comment"`
			Averages map[string]float64 `json:"averages"`
			Trials   []json.RawMessage  `json:"trials"`
		} `json:"cases"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, 3, got.Meta.Trials)
	require.Len(t, got.Cases, 1)
	assert.Equal(t, "/osimis-viewer/images/I1/0/low-quality", got.Cases[0].Path)
	assert.Equal(t, []string{"A", "B"}, got.Cases[0].Comment)
	assert.InDelta(t, 42.0, got.Cases[0].Averages["DECODE"], 1e-9)
	assert.Len(t, got.Cases[0].Trials, 3)

	raw := string(data)
	assert.Less(t, bytes.Index(data, []byte(`"DECODE"`)), bytes.Index(data, []byte(`"TOTAL_CLIENT_TIME"`)), raw)
}
