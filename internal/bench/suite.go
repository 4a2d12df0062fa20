package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"viewer-benchmark/internal/server"
)

const DefaultTrialCount = 5

// Server is the process supervisor of the server-under-test.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Lines() *server.LineHub
}

type Options struct {
	TrialCount int
	PathPrefix string
	Grace      time.Duration
	EndMarker  string
	// Buffer is the listener queue size.
	Buffer int
	// OnTrial is called before each trial starts.
	OnTrial func(spec CaseSpec, trial, trials int)
	// Now stamps exported rows.
	Now    func() time.Time
	Logger *slog.Logger
}

// Suite owns the server-under-test and its client for the duration of a run
// and collects every case measured against it.
type Suite struct {
	srv      Server
	recorder *Recorder
	opts     Options

	mu     sync.Mutex
	cases  []*Case
	closed bool
}

// Open launches the server and returns a suite ready to measure cases.
func Open(ctx context.Context, srv Server, fetcher Fetcher, opts Options) (*Suite, error) {
	if opts.TrialCount <= 0 {
		opts.TrialCount = DefaultTrialCount
	}
	if opts.PathPrefix == "" {
		opts.PathPrefix = DefaultPathPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if err := srv.Start(ctx); err != nil {
		return nil, &LaunchError{Err: err}
	}

	return &Suite{
		srv: srv,
		recorder: &Recorder{
			Hub:       srv.Lines(),
			Fetcher:   fetcher,
			Grace:     opts.Grace,
			EndMarker: opts.EndMarker,
			Buffer:    opts.Buffer,
			Logger:    opts.Logger,
		},
		opts: opts,
	}, nil
}

func (s *Suite) TrialCount() int {
	return s.opts.TrialCount
}

// AddCase measures spec over TrialCount sequential trials and appends the
// resulting case. Any trial failure aborts the case.
func (s *Suite) AddCase(ctx context.Context, spec CaseSpec) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSuiteClosed
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}

	path := spec.Path(s.opts.PathPrefix)
	trials := make([]*Trial, 0, s.opts.TrialCount)

	for i := range s.opts.TrialCount {
		if s.opts.OnTrial != nil {
			s.opts.OnTrial(spec, i+1, s.opts.TrialCount)
		}

		trial, err := s.recorder.Record(ctx, path, spec.Gzip)
		if err != nil {
			return nil, fmt.Errorf("%s trial %d: %w", path, i+1, err)
		}

		if i > 0 {
			if err := checkKeys(trials[0], trial, i); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if !sameInfo(trials[0], trial) {
				s.opts.Logger.Warn("frame information differs from first trial",
					"path", path, "trial", i+1)
			}
		}
		trials = append(trials, trial)
	}

	c, err := NewCase(spec, path, trials)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.cases = append(s.cases, c)
	return c, nil
}

// Close stops the server. No case can be added afterwards.
func (s *Suite) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.srv.Stop(ctx); err != nil && !errors.Is(err, server.ErrNotRunning) {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

// Cases returns the measured cases in registration order.
func (s *Suite) Cases() []*Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Case(nil), s.cases...)
}
