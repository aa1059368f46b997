package schedule

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned when work is submitted to a closed Loop.
var ErrClosed = errors.New("schedule: loop closed")

// Loop is an actor goroutine that runs posted closures one at a time.
type Loop struct {
	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once
	log       logrus.FieldLogger
}

// NewLoop creates a loop with a queue of size buf. Call Run to start it.
func NewLoop(buf int, log logrus.FieldLogger) *Loop {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Loop{
		ops:  make(chan func(), buf),
		done: make(chan struct{}),
		log:  log,
	}
}

// Run processes posted closures until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case f := <-l.ops:
			l.exec(f)
		}
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("Loop: recovered panic in posted func: %v", r)
		}
	}()
	f()
}

// Post queues f to run on the loop. It blocks while the queue is full and
// reports false once the loop is closed.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ops <- f:
		return true
	case <-l.done:
		return false
	}
}

// Do runs f on the loop and waits for it to finish. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		f()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc schedules f to run on the loop after d. The returned Timer must
// be stopped from the loop goroutine for the no-late-callback guarantee.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return t
}

// Now returns the wall clock.
func (l *Loop) Now() time.Time { return time.Now() }

// Close stops the loop. Pending closures are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.t.Stop()
	return t.stopped.CompareAndSwap(false, true)
}
