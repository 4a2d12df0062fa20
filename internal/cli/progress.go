package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

const spinnerTick = 100 * time.Millisecond

// ProgressSpinner keeps one status line up to date while trials run:
// current case and trial, elapsed time and a remaining-time estimate.
type ProgressSpinner struct {
	w io.Writer

	mu       sync.Mutex
	frame    int
	started  time.Time
	path     string
	cases    int
	perCase  int
	casesRun int
	trial    int
	running  bool

	stop chan struct{}
	done chan struct{}
}

func NewProgressSpinner(w io.Writer) *ProgressSpinner {
	return &ProgressSpinner{
		w:    w,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start begins rendering for cases cases of trialsPerCase trials each.
func (p *ProgressSpinner) Start(cases, trialsPerCase int) {
	p.mu.Lock()
	p.started = time.Now()
	p.cases = cases
	p.perCase = trialsPerCase
	p.running = true
	p.mu.Unlock()

	go p.loop()
}

func (p *ProgressSpinner) loop() {
	defer close(p.done)
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			fmt.Fprint(p.w, "\r\033[K")
			return
		case <-ticker.C:
			p.mu.Lock()
			if !p.running {
				p.mu.Unlock()
				continue
			}
			line := p.status(time.Now())
			p.frame = (p.frame + 1) % len(spinnerFrames)
			p.mu.Unlock()
			fmt.Fprintf(p.w, "\r\033[K%s", line)
		}
	}
}

// status must be called with mu held.
func (p *ProgressSpinner) status(now time.Time) string {
	elapsed := now.Sub(p.started)
	line := fmt.Sprintf("%s  %c [case %d/%d] trial %d/%d  %s  elapsed %s",
		Indent,
		spinnerFrames[p.frame],
		min(p.casesRun+1, p.cases), p.cases,
		p.trial, p.perCase,
		Truncate(p.path, 50),
		clock(elapsed),
	)
	if eta, ok := p.remaining(elapsed); ok {
		line += "  eta " + clock(eta)
	}
	return line
}

// remaining extrapolates the mean duration of finished trials to the
// trials still to run.
func (p *ProgressSpinner) remaining(elapsed time.Duration) (time.Duration, bool) {
	total := p.cases * p.perCase
	finished := p.casesRun*p.perCase + max(p.trial-1, 0)
	if finished <= 0 || total <= finished {
		return 0, false
	}
	perTrial := elapsed / time.Duration(finished)
	return perTrial * time.Duration(total-finished), true
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// UpdateTrial records the trial about to run.
func (p *ProgressSpinner) UpdateTrial(path string, trial int) {
	p.mu.Lock()
	p.path = path
	p.trial = trial
	p.mu.Unlock()
}

// CaseDone records that done cases have completed.
func (p *ProgressSpinner) CaseDone(done int) {
	p.mu.Lock()
	p.casesRun = done
	p.trial = 0
	p.mu.Unlock()
}

func (p *ProgressSpinner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stop)
	<-p.done
}
