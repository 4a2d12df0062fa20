package bench

import (
	"context"
	"log/slog"
	"math"
	"time"

	"viewer-benchmark/internal/server"
)

const DefaultGrace = time.Second

// Fetcher issues one blocking GET against the server-under-test and returns
// once the response body has been fully received.
type Fetcher interface {
	Get(ctx context.Context, path string, gzip bool) error
}

// Trial is the record of one request: timing markers in milliseconds plus the
// frame information the server logged while handling it.
type Trial struct {
	Timings *OrderedMap[int64]  `json:"timings"`
	Info    *OrderedMap[string] `json:"info"`
}

func newTrial() *Trial {
	return &Trial{
		Timings: NewOrderedMap[int64](),
		Info:    NewOrderedMap[string](),
	}
}

func (t *Trial) apply(m Marker) error {
	switch m.Kind {
	case MarkerTiming:
		if t.Timings.Has(m.Name) {
			return &DuplicateKeyError{Kind: MarkerTiming, Key: m.Name}
		}
		t.Timings.Set(m.Name, m.Millis)
	case MarkerInfo:
		if t.Info.Has(m.Name) {
			return &DuplicateKeyError{Kind: MarkerInfo, Key: m.Name}
		}
		t.Info.Set(m.Name, m.Value)
	}
	return nil
}

func (t *Trial) consume(line string) error {
	m, ok := ParseMarker(line)
	if !ok {
		return nil
	}
	return t.apply(m)
}

// Recorder runs trials against one server: it arms the hub listener, times the
// request and correlates the server lines observed meanwhile.
type Recorder struct {
	Hub     *server.LineHub
	Fetcher Fetcher
	// Grace bounds how long lines are still collected after the response.
	Grace time.Duration
	// EndMarker, when set, ends the grace period as soon as that timing key
	// has been seen.
	EndMarker string
	Buffer    int
	Logger    *slog.Logger
}

type requestResult struct {
	end time.Time
	err error
}

// Record runs a single trial against path.
func (r *Recorder) Record(ctx context.Context, path string, gzip bool) (*Trial, error) {
	listener, err := r.Hub.Listen(r.Buffer)
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	trial := newTrial()
	results := make(chan requestResult, 1)

	start := time.Now()
	go func() {
		err := r.Fetcher.Get(reqCtx, path, gzip)
		results <- requestResult{end: time.Now(), err: err}
	}()

	lines := listener.Lines()
	var grace <-chan time.Time
	var elapsed time.Duration
	responded := false

	for {
		select {
		case line := <-lines:
			if err := trial.consume(line); err != nil {
				return nil, err
			}
			if responded && r.sawEndMarker(trial) {
				return r.finish(listener, trial, path, elapsed)
			}

		case res := <-results:
			if res.err != nil {
				return nil, &TransportError{Path: path, Err: res.err}
			}
			elapsed = res.end.Sub(start)
			responded = true
			results = nil
			if r.sawEndMarker(trial) {
				return r.finish(listener, trial, path, elapsed)
			}
			timer := time.NewTimer(r.grace())
			defer timer.Stop()
			grace = timer.C

		case <-grace:
			return r.finish(listener, trial, path, elapsed)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Recorder) grace() time.Duration {
	if r.Grace <= 0 {
		return DefaultGrace
	}
	return r.Grace
}

func (r *Recorder) sawEndMarker(t *Trial) bool {
	return r.EndMarker != "" && t.Timings.Has(r.EndMarker)
}

// finish drains what the listener already buffered, then stores the client
// latency as the last timing key.
func (r *Recorder) finish(listener *server.Listener, trial *Trial, path string, elapsed time.Duration) (*Trial, error) {
	listener.Close()
	for drained := false; !drained; {
		select {
		case line := <-listener.Lines():
			if err := trial.consume(line); err != nil {
				return nil, err
			}
		default:
			drained = true
		}
	}

	if err := trial.apply(Marker{Kind: MarkerTiming, Name: TotalClientTime, Millis: ceilMillis(elapsed)}); err != nil {
		return nil, err
	}

	if r.Logger != nil {
		r.Logger.Debug("trial recorded",
			"path", path,
			"client_ms", ceilMillis(elapsed),
			"timings", trial.Timings.Len(),
			"info", trial.Info.Len())
	}
	return trial, nil
}

func ceilMillis(d time.Duration) int64 {
	return int64(math.Ceil(float64(d) / float64(time.Millisecond)))
}
