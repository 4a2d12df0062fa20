package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewer-benchmark/internal/server"
)

const testGrace = 20 * time.Millisecond

func newRecorder(hub *server.LineHub, fetcher Fetcher) *Recorder {
	return &Recorder{Hub: hub, Fetcher: fetcher, Grace: testGrace}
}

func TestRecorder_Record(t *testing.T) {
	hub := server.NewLineHub()
	fetcher := &scriptedFetcher{hub: hub, scripts: [][]string{{
		"I1015 HttpServer.cpp] GET /osimis-viewer/images/I1/0/low-quality",
		"BENCH: GET_FRAME 10",
		"BENCH: [Rows] 512",
		"BENCH: DECODE 42",
		"BENCH: [Columns] 256",
	}}}

	trial, err := newRecorder(hub, fetcher).Record(context.Background(), "/osimis-viewer/images/I1/0/low-quality", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET_FRAME", "DECODE", TotalClientTime}, trial.Timings.Keys())
	decode, _ := trial.Timings.Get("DECODE")
	assert.Equal(t, int64(42), decode)
	total, _ := trial.Timings.Get(TotalClientTime)
	assert.GreaterOrEqual(t, total, int64(0))

	assert.Equal(t, []string{"Rows", "Columns"}, trial.Info.Keys())
	rows, _ := trial.Info.Get("Rows")
	assert.Equal(t, "512", rows)

	assert.Equal(t, []request{{path: "/osimis-viewer/images/I1/0/low-quality", gzip: true}}, fetcher.Requests())
}

func TestRecorder_LinesDuringGrace(t *testing.T) {
	hub := server.NewLineHub()
	fetcher := &scriptedFetcher{
		hub:     hub,
		scripts: [][]string{{"BENCH: DECODE 5"}},
		after:   [][]string{{"BENCH: COMPRESS 7"}},
	}

	rec := newRecorder(hub, fetcher)
	rec.Grace = 200 * time.Millisecond
	trial, err := rec.Record(context.Background(), "/p", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"DECODE", "COMPRESS", TotalClientTime}, trial.Timings.Keys())
}

func TestRecorder_EndMarker(t *testing.T) {
	hub := server.NewLineHub()
	fetcher := &scriptedFetcher{
		hub:     hub,
		scripts: [][]string{{"BENCH: DECODE 5"}},
		after:   [][]string{{"BENCH: ENCODE 9", "BENCH: REQUEST_DONE 20"}},
	}

	rec := newRecorder(hub, fetcher)
	rec.Grace = 10 * time.Second
	rec.EndMarker = "REQUEST_DONE"

	start := time.Now()
	trial, err := rec.Record(context.Background(), "/p", false)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"DECODE", "ENCODE", "REQUEST_DONE", TotalClientTime}, trial.Timings.Keys())
}

func TestRecorder_DuplicateKey(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		kind  MarkerKind
		key   string
	}{
		{name: "timing", lines: []string{"BENCH: DECODE 1", "BENCH: DECODE 2"}, kind: MarkerTiming, key: "DECODE"},
		{name: "info", lines: []string{"BENCH: [Rows] 1", "BENCH: [Rows] 1"}, kind: MarkerInfo, key: "Rows"},
		{name: "client time", lines: []string{"BENCH: TOTAL_CLIENT_TIME 3"}, kind: MarkerTiming, key: TotalClientTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := server.NewLineHub()
			fetcher := &scriptedFetcher{hub: hub, scripts: [][]string{tt.lines}}

			_, err := newRecorder(hub, fetcher).Record(context.Background(), "/p", false)

			var dup *DuplicateKeyError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.kind, dup.Kind)
			assert.Equal(t, tt.key, dup.Key)

			l, err := hub.Listen(0)
			require.NoError(t, err, "listener slot must be released")
			l.Close()
		})
	}
}

func TestRecorder_SameKeyInBothKinds(t *testing.T) {
	hub := server.NewLineHub()
	fetcher := &scriptedFetcher{hub: hub, scripts: [][]string{{"BENCH: Rows 3", "BENCH: [Rows] 512"}}}

	trial, err := newRecorder(hub, fetcher).Record(context.Background(), "/p", false)
	require.NoError(t, err)
	assert.True(t, trial.Timings.Has("Rows"))
	assert.True(t, trial.Info.Has("Rows"))
}

func TestRecorder_TransportError(t *testing.T) {
	hub := server.NewLineHub()
	fetcher := &scriptedFetcher{hub: hub, err: errConnectionRefused, scripts: [][]string{{"BENCH: DECODE 1"}}}

	_, err := newRecorder(hub, fetcher).Record(context.Background(), "/p", false)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "/p", transportErr.Path)
	assert.ErrorIs(t, err, errConnectionRefused)

	l, err := hub.Listen(0)
	require.NoError(t, err)
	l.Close()
}

func TestRecorder_ListenerBusy(t *testing.T) {
	hub := server.NewLineHub()
	held, err := hub.Listen(0)
	require.NoError(t, err)
	defer held.Close()

	_, err = newRecorder(hub, &scriptedFetcher{hub: hub}).Record(context.Background(), "/p", false)
	assert.ErrorIs(t, err, server.ErrListenerBusy)
}

func TestRecorder_Canceled(t *testing.T) {
	hub := server.NewLineHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := fetcherFunc(func(ctx context.Context, _ string, _ bool) error {
		<-ctx.Done()
		return ctx.Err()
	})
	_, err := newRecorder(hub, blocking).Record(ctx, "/p", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorder_IgnoresLinesWhileIdle(t *testing.T) {
	hub := server.NewLineHub()
	hub.Publish("BENCH: STRAY 1")

	fetcher := &scriptedFetcher{hub: hub, scripts: [][]string{{"BENCH: DECODE 1"}}}
	trial, err := newRecorder(hub, fetcher).Record(context.Background(), "/p", false)
	require.NoError(t, err)
	assert.False(t, trial.Timings.Has("STRAY"))
}

func TestCeilMillis(t *testing.T) {
	assert.Equal(t, int64(0), ceilMillis(0))
	assert.Equal(t, int64(1), ceilMillis(time.Microsecond))
	assert.Equal(t, int64(2), ceilMillis(1001*time.Microsecond))
	assert.Equal(t, int64(5), ceilMillis(5*time.Millisecond))
}

type fetcherFunc func(ctx context.Context, path string, gzip bool) error

func (f fetcherFunc) Get(ctx context.Context, path string, gzip bool) error { return f(ctx, path, gzip) }
