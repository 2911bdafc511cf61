package dtmf

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout    = 3 * time.Second
	DefaultCodeLength = 2
)

// Dispatcher receives a flushed DTMF command (§4.4 "On flush").
type Dispatcher interface {
	SetVideoFloor(ctx context.Context, arg string) error
	SetLayoutType(ctx context.Context, layoutID string) error
	ToggleSubtitle(ctx context.Context, global bool) error
}

// Aggregator is the per-session DTMF FIFO plus restartable timer described
// in §4.4: digits accumulate until either the fixed code length is reached
// (immediate flush) or the timer expires (flush whatever was collected).
type Aggregator struct {
	mu         sync.Mutex
	queue      []Code
	timer      *time.Timer
	timeout    time.Duration
	codeLength int
	dispatch   Dispatcher
	logger     *slog.Logger
}

type Option func(*Aggregator)

func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

func WithCodeLength(n int) Option {
	return func(a *Aggregator) { a.codeLength = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func New(dispatch Dispatcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		timeout:    DefaultTimeout,
		codeLength: DefaultCodeLength,
		dispatch:   dispatch,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Digit feeds one DTMF character into the aggregator. Non-DTMF runes are
// ignored.
func (a *Aggregator) Digit(ctx context.Context, r rune) {
	code, ok := RuneToCode(r)
	if !ok {
		return
	}

	a.mu.Lock()
	if a.timer == nil {
		a.queue = a.queue[:0]
		a.queue = append(a.queue, code)
		a.startTimerLocked(ctx)
		a.mu.Unlock()
		return
	}

	a.queue = append(a.queue, code)
	if len(a.queue) >= a.codeLength {
		flushed := a.queue
		a.resetLocked()
		a.mu.Unlock()
		a.flush(ctx, flushed)
		return
	}
	a.startTimerLocked(ctx)
	a.mu.Unlock()
}

func (a *Aggregator) startTimerLocked(ctx context.Context) {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.timeout, func() { a.onTimeout(ctx) })
}

func (a *Aggregator) onTimeout(ctx context.Context) {
	a.mu.Lock()
	flushed := a.queue
	a.resetLocked()
	a.mu.Unlock()
	a.flush(ctx, flushed)
}

// resetLocked clears the queue and timer; caller holds a.mu.
func (a *Aggregator) resetLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.queue = nil
}

// Stop cancels any pending timer without flushing, e.g. on session
// teardown.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

// flush dispatches a collected command: the first digit selects the
// command, the rest is its argument (§4.4 "On flush").
func (a *Aggregator) flush(ctx context.Context, queue []Code) {
	if len(queue) == 0 {
		return
	}
	cmd, arg := queue[0], queue[1:]

	switch cmd {
	case Star:
		if len(arg) > 0 {
			switch arg[0] {
			case Digit3:
				_ = a.dispatch.ToggleSubtitle(ctx, true)
				return
			case Digit4:
				_ = a.dispatch.ToggleSubtitle(ctx, false)
				return
			}
		}
		_ = a.dispatch.SetVideoFloor(ctx, codesToString(arg))
	case Pound:
		_ = a.dispatch.SetLayoutType(ctx, codesToString(arg))
	default:
		a.logger.Warn("dtmf: unknown command, discarding", "command", cmd)
	}
}

func codesToString(codes []Code) string {
	var b strings.Builder
	for _, c := range codes {
		if r, ok := CodeToRune(c); ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}
