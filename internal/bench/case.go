package bench

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

const DefaultPathPrefix = "/osimis-viewer/images"

// Quality is the processing profile requested for a frame.
type Quality string

const (
	QualityLow       Quality = "low-quality"
	QualityMedium    Quality = "medium-quality"
	QualityHigh      Quality = "high-quality"
	QualityPixelData Quality = "pixeldata-quality"
)

var Qualities = []Quality{QualityLow, QualityMedium, QualityHigh, QualityPixelData}

func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if !strings.HasSuffix(string(q), "-quality") {
		q += "-quality"
	}
	if !slices.Contains(Qualities, q) {
		return "", fmt.Errorf("unknown quality %q", s)
	}
	return q, nil
}

// Comment is the free-form label tuple attached to a case. It renders as
// (A, B) without quotes. Rows appended to a CSV file written by the older
// Python tooling, which printed ('A', 'B') and False/True, will not match
// those earlier rows textually.
type Comment []string

func (c Comment) String() string {
	return "(" + strings.Join(c, ", ") + ")"
}

// CaseSpec identifies one logical request.
type CaseSpec struct {
	Instance string
	Frame    int
	Quality  Quality
	Comment  Comment
	Gzip     bool
}

func (s CaseSpec) Validate() error {
	if strings.TrimSpace(s.Instance) == "" {
		return fmt.Errorf("instance is required")
	}
	if strings.Contains(s.Instance, "/") {
		return fmt.Errorf("instance %q must not contain '/'", s.Instance)
	}
	if s.Frame < 0 {
		return fmt.Errorf("frame must be >= 0, got %d", s.Frame)
	}
	if !slices.Contains(Qualities, s.Quality) {
		return fmt.Errorf("unknown quality %q", s.Quality)
	}
	return nil
}

// Path builds /{prefix}/{instance}/{frame}/{quality}.
func (s CaseSpec) Path(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = strings.Trim(DefaultPathPrefix, "/")
	}
	return "/" + prefix + "/" + s.Instance + "/" + strconv.Itoa(s.Frame) + "/" + string(s.Quality)
}

// Aggregate is the reduction of all trials of a case.
type Aggregate struct {
	Totals   *OrderedMap[int64]
	Averages *OrderedMap[float64]
	Low      *OrderedMap[int64]
	High     *OrderedMap[int64]
	// Info is taken from the first trial.
	Info *OrderedMap[string]
}

// Reduce validates that every trial reports the same timing key set as the
// first one and sums, averages and bounds each key in first-seen order.
func Reduce(trials []*Trial) (*Aggregate, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("no trials to aggregate")
	}

	agg := &Aggregate{
		Totals:   NewOrderedMap[int64](),
		Averages: NewOrderedMap[float64](),
		Low:      NewOrderedMap[int64](),
		High:     NewOrderedMap[int64](),
		Info:     trials[0].Info,
	}

	for i, trial := range trials {
		if i > 0 {
			if err := checkKeys(trials[0], trial, i); err != nil {
				return nil, err
			}
		}
		for key, value := range trial.Timings.All() {
			total, _ := agg.Totals.Get(key)
			agg.Totals.Set(key, total+value)

			if low, ok := agg.Low.Get(key); !ok || value < low {
				agg.Low.Set(key, value)
			}
			if high, ok := agg.High.Get(key); !ok || value > high {
				agg.High.Set(key, value)
			}
		}
	}

	n := float64(len(trials))
	for key, total := range agg.Totals.All() {
		agg.Averages.Set(key, float64(total)/n)
	}

	return agg, nil
}

func checkKeys(first, trial *Trial, index int) error {
	missing, unexpected := trial.Timings.KeyDiff(first.Timings)
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return &IncompatibleTrialsError{Trial: index, Missing: missing, Unexpected: unexpected}
}

func sameInfo(a, b *Trial) bool {
	if a.Info.Len() != b.Info.Len() {
		return false
	}
	return maps.Equal(maps.Collect(a.Info.All()), maps.Collect(b.Info.All()))
}

// Case is one logical request measured over a fixed number of trials.
type Case struct {
	Spec      CaseSpec
	Path      string
	Trials    []*Trial
	aggregate *Aggregate
}

// NewCase reduces trials into a Case, refusing trials with mismatched keys.
func NewCase(spec CaseSpec, path string, trials []*Trial) (*Case, error) {
	agg, err := Reduce(trials)
	if err != nil {
		return nil, err
	}
	return &Case{Spec: spec, Path: path, Trials: trials, aggregate: agg}, nil
}

func (c *Case) TrialCount() int               { return len(c.Trials) }
func (c *Case) Totals() *OrderedMap[int64]     { return c.aggregate.Totals }
func (c *Case) Averages() *OrderedMap[float64] { return c.aggregate.Averages }
func (c *Case) Info() *OrderedMap[string]      { return c.aggregate.Info }
func (c *Case) Aggregate() *Aggregate          { return c.aggregate }
func (c *Case) Comment() Comment               { return c.Spec.Comment }
func (c *Case) Gzip() bool                     { return c.Spec.Gzip }
