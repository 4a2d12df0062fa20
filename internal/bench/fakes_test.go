package bench

import (
	"context"
	"errors"
	"sync"

	"viewer-benchmark/internal/server"
)

type fakeServer struct {
	hub      *server.LineHub
	startErr error

	mu      sync.Mutex
	started int
	stopped int
}

func newFakeServer() *fakeServer {
	return &fakeServer{hub: server.NewLineHub()}
}

func (f *fakeServer) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeServer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started == 0 {
		return server.ErrNotRunning
	}
	f.stopped++
	return nil
}

func (f *fakeServer) Lines() *server.LineHub { return f.hub }

type request struct {
	path string
	gzip bool
}

// scriptedFetcher publishes a scripted set of server lines for every request
// it serves. Lines in after are published once the response was returned.
type scriptedFetcher struct {
	hub *server.LineHub

	mu       sync.Mutex
	scripts  [][]string
	after    [][]string
	err      error
	requests []request
}

func (f *scriptedFetcher) Get(_ context.Context, path string, gzip bool) error {
	f.mu.Lock()
	f.requests = append(f.requests, request{path: path, gzip: gzip})
	idx := len(f.requests) - 1
	var lines, after []string
	if len(f.scripts) > 0 {
		lines = f.scripts[min(idx, len(f.scripts)-1)]
	}
	if len(f.after) > 0 {
		after = f.after[min(idx, len(f.after)-1)]
	}
	err := f.err
	f.mu.Unlock()

	for _, line := range lines {
		f.hub.Publish(line)
	}
	if err != nil {
		return err
	}
	if len(after) > 0 {
		go func() {
			for _, line := range after {
				f.hub.Publish(line)
			}
		}()
	}
	return nil
}

func (f *scriptedFetcher) Requests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

var errConnectionRefused = errors.New("connection refused")
