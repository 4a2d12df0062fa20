package server

import (
	"errors"
	"sync"
)

const DefaultListenerBuffer = 256

var ErrListenerBusy = errors.New("a line listener is already armed")

// LineHub hands server output lines to at most one armed Listener.
// Lines published while nobody listens are dropped.
type LineHub struct {
	mu     sync.Mutex
	active *Listener
}

func NewLineHub() *LineHub {
	return &LineHub{}
}

// Listen arms the hub's single listener slot. The slot stays taken until the
// returned Listener is closed.
func (h *LineHub) Listen(buffer int) (*Listener, error) {
	if buffer <= 0 {
		buffer = DefaultListenerBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		return nil, ErrListenerBusy
	}

	l := &Listener{
		hub:   h,
		lines: make(chan string, buffer),
		done:  make(chan struct{}),
	}
	h.active = l
	return l, nil
}

// Publish delivers line to the armed listener, blocking while its buffer is
// full. It must be called from a single goroutine to keep emission order.
func (h *LineHub) Publish(line string) {
	h.mu.Lock()
	l := h.active
	h.mu.Unlock()

	if l != nil {
		l.deliver(line)
	}
}

func (h *LineHub) release(l *Listener) {
	h.mu.Lock()
	if h.active == l {
		h.active = nil
	}
	h.mu.Unlock()
}

// Listener receives the lines published while it is armed.
type Listener struct {
	hub       *LineHub
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
}

// deliver queues line unless the listener is already closed, so nothing
// lands in the buffer after the owner drained it.
func (l *Listener) deliver(line string) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.lines <- line:
	case <-l.done:
	}
}

func (l *Listener) Lines() <-chan string {
	return l.lines
}

// Close frees the hub slot. Lines still buffered can be drained afterwards.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		l.hub.release(l)
		close(l.done)
	})
}
