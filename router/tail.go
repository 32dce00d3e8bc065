package router

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bubblytree/tuicore/diag"
)

// TailBuffer is the bounded line buffer behind log-console widgets. When
// full it drops the oldest line, never the newest, and counts the drops
// so consumers can annotate truncation.
type TailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	dropped int
}

// NewTailBuffer creates a buffer holding at most max lines. max < 1 is
// treated as 1.
func NewTailBuffer(max int) *TailBuffer {
	if max < 1 {
		max = 1
	}
	return &TailBuffer{max: max}
}

// Append adds one line, evicting the oldest when the buffer is full.
func (t *TailBuffer) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == t.max {
		copy(t.lines, t.lines[1:])
		t.lines[len(t.lines)-1] = line
		t.dropped++
		return
	}
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the buffered lines, oldest first.
func (t *TailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// Dropped returns how many lines have been evicted since creation.
func (t *TailBuffer) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// TailSource feeds lines into a TailBuffer until stopped.
type TailSource interface {
	Start(emit func(line string)) (stop func())
}

// TailSourceFactory builds the source a log-console widget tails, given
// its target (a path or a stream name; the widget decides).
type TailSourceFactory func(target string) TailSource

type noopTailSource struct{}

func (noopTailSource) Start(func(line string)) (stop func()) { return func() {} }

var (
	tailFactoryMu      sync.Mutex
	defaultTailFactory TailSourceFactory = func(string) TailSource { return noopTailSource{} }
)

// SetDefaultTailSourceFactory swaps the process-wide default tail-source
// factory; test harnesses use it to feed deterministic lines. Passing
// nil restores the built-in no-op factory. This is the only process-wide
// mutable state the router package holds.
func SetDefaultTailSourceFactory(f TailSourceFactory) {
	tailFactoryMu.Lock()
	defer tailFactoryMu.Unlock()
	if f == nil {
		f = func(string) TailSource { return noopTailSource{} }
	}
	defaultTailFactory = f
}

// DefaultTailSourceFactory returns the current default factory.
func DefaultTailSourceFactory() TailSourceFactory {
	tailFactoryMu.Lock()
	defer tailFactoryMu.Unlock()
	return defaultTailFactory
}

// EventSource wraps a connect function with reconnect pacing: each
// connection attempt passes through a rate limiter so a flapping stream
// cannot spin, and the attempt count is observable.
type EventSource struct {
	connect func(ctx context.Context) error
	limiter *rate.Limiter

	mu       sync.Mutex
	attempts int
}

// NewEventSource creates an EventSource whose reconnect attempts are
// spaced at least reconnectDelay apart. connect should block until the
// stream ends and return why.
func NewEventSource(connect func(ctx context.Context) error, reconnectDelay time.Duration) *EventSource {
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	return &EventSource{
		connect: connect,
		limiter: rate.NewLimiter(rate.Every(reconnectDelay), 1),
	}
}

// Run connects and reconnects until ctx is cancelled. Errors returned by
// connect are reported through the diagnostic guard and never propagate.
func (s *EventSource) Run(ctx context.Context) {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.mu.Lock()
		s.attempts++
		s.mu.Unlock()

		diag.Guard("eventsource", func() error {
			return s.connect(ctx)
		})

		if ctx.Err() != nil {
			return
		}
	}
}

// Attempts returns how many connection attempts have been made.
func (s *EventSource) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
