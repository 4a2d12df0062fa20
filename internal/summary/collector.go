package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/server"
)

type RunResults struct {
	Meta  RunMeta       `json:"meta"`
	Cases []CaseSummary `json:"cases"`
}

type RunMeta struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	BaseURL    string    `json:"base_url"`
	Trials     int       `json:"trials"`

	Resources *server.ResourceStats `json:"resources,omitempty"`
}

type CaseSummary struct {
	Path     string                     `json:"path"`
	Instance string                     `json:"instance"`
	Frame    int                        `json:"frame"`
	Quality  bench.Quality              `json:"quality"`
	Comment  bench.Comment              `json:"comment"`
	Gzip     bool                       `json:"gzip"`
	Averages *bench.OrderedMap[float64] `json:"averages"`
	Low      *bench.OrderedMap[int64]   `json:"low"`
	High     *bench.OrderedMap[int64]   `json:"high"`
	Info     *bench.OrderedMap[string]  `json:"info"`
	Client   *Stats                     `json:"client"`
	Trials   []*bench.Trial             `json:"trials"`
}

// Writer stores the JSON results of one run under {resultsDir}/{runID}.
type Writer struct {
	startTime  time.Time
	runID      string
	baseURL    string
	resultsDir string
}

func NewWriter(resultsDir, baseURL string) *Writer {
	start := time.Now()
	return &Writer{
		startTime:  start,
		runID:      start.Format("20060102-150405"),
		baseURL:    baseURL,
		resultsDir: resultsDir,
	}
}

func (w *Writer) RunID() string {
	return w.runID
}

func (w *Writer) Dir() string {
	return filepath.Join(w.resultsDir, w.runID)
}

// ExportResults writes cases.json and returns its path.
func (w *Writer) ExportResults(cases []*bench.Case, trials int, resources *server.ResourceStats) (string, error) {
	results := RunResults{
		Meta: RunMeta{
			RunID:      w.runID,
			Timestamp:  w.startTime,
			DurationMs: time.Since(w.startTime).Milliseconds(),
			BaseURL:    w.baseURL,
			Trials:     trials,
			Resources:  resources,
		},
		Cases: make([]CaseSummary, 0, len(cases)),
	}
	for _, c := range cases {
		results.Cases = append(results.Cases, caseSummary(c))
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	if err = os.MkdirAll(w.Dir(), 0o750); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	path := filepath.Join(w.Dir(), "cases.json")
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	return path, nil
}

func caseSummary(c *bench.Case) CaseSummary {
	agg := c.Aggregate()
	return CaseSummary{
		Path:     c.Path,
		Instance: c.Spec.Instance,
		Frame:    c.Spec.Frame,
		Quality:  c.Spec.Quality,
		Comment:  c.Comment(),
		Gzip:     c.Gzip(),
		Averages: agg.Averages,
		Low:      agg.Low,
		High:     agg.High,
		Info:     agg.Info,
		Client:   CalculateStats(ClientLatencies(c)),
		Trials:   c.Trials,
	}
}
