package cli

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGzipModes(t *testing.T) {
	assert.Equal(t, []bool{false}, gzipModes(gzipOff))
	assert.Equal(t, []bool{true}, gzipModes(gzipOn))
	assert.Equal(t, []bool{false, true}, gzipModes(gzipBoth))

	assert.Equal(t, gzipOff, gzipModeOf(nil))
	assert.Equal(t, gzipOn, gzipModeOf([]bool{true}))
	assert.Equal(t, gzipBoth, gzipModeOf([]bool{false, true}))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "off, on", FormatGzipModes([]bool{false, true}))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "42.5ms", FormatMillis(42.5))
	assert.Equal(t, "1.25s", FormatMillis(1250))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
}

func TestGradientColor(t *testing.T) {
	assert.Equal(t, gradientStops[0], gradientColor(-1))
	assert.Equal(t, gradientStops[len(gradientStops)-1], gradientColor(2))
	mid := gradientColor(0.5)
	assert.Equal(t, gradientStops[2], mid)
}

func TestFormatResources(t *testing.T) {
	assert.Equal(t, "512KB", FormatMemory(512*1024))
	assert.Equal(t, "12.5MB", FormatMemory(12.5*1024*1024))
	assert.Equal(t, "256MB", FormatMemory(256*1024*1024))
	assert.Equal(t, "n/a", FormatCPU(50, 1))
	assert.Equal(t, "37.5%", FormatCPU(37.5, 10))
}

func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestPrinters(t *testing.T) {
	buf := captureOut(t)

	Successf("%d rows", 3)
	Warnf("slow")
	KeyValuePairs("Cases", "4", "Trials", "5")
	KeyValuePairs("odd")

	assert.Equal(t, "  ✓ 3 rows\n  ⚠ slow\n  Cases: 4  │  Trials: 5\n", buf.String())
}

func TestCaseHeader(t *testing.T) {
	buf := captureOut(t)

	CaseHeader(2, 8, "/osimis-viewer/images/I1/0/low-quality", true)

	assert.Contains(t, buf.String(), "┌─ [2/8] /osimis-viewer/images/I1/0/low-quality (gzip)")
}

func TestProgressSpinner_Status(t *testing.T) {
	p := NewProgressSpinner(&bytes.Buffer{})
	p.started = time.Unix(0, 0)
	p.cases = 2
	p.perCase = 5
	p.UpdateTrial("/p", 1)

	line := p.status(p.started.Add(3 * time.Second))
	assert.Contains(t, line, "[case 1/2] trial 1/5  /p  elapsed 0m03s")
	assert.NotContains(t, line, "eta")

	p.CaseDone(1)
	p.UpdateTrial("/p", 1)
	line = p.status(p.started.Add(10 * time.Second))
	assert.Contains(t, line, "[case 2/2] trial 1/5")
	assert.Contains(t, line, "eta 0m10s")
}

func TestProgressSpinner_StartStop(t *testing.T) {
	var buf syncBuffer
	p := NewProgressSpinner(&buf)
	p.Start(1, 1)
	p.UpdateTrial("/p", 1)
	time.Sleep(3 * spinnerTick)
	p.Stop()
	p.Stop()

	assert.Contains(t, buf.String(), "[case 1/1] trial 1/1")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
