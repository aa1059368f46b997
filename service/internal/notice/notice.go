// Package notice manages a single-slot transient message that dismisses
// itself after a fixed time. Showing a new message replaces the current one
// and restarts the timer; nothing is queued.
package notice

import (
	"time"

	"github.com/jason-s-yu/acesup/service/internal/schedule"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 2000 * time.Millisecond

// Observer is told about every change of the slot. visible is false when the
// slot was cleared.
type Observer func(text string, visible bool)

// Scheduler owns one notice slot. It is confined to the goroutine of its
// schedule.Scheduler.
type Scheduler struct {
	sched     schedule.Scheduler
	ttl       time.Duration
	text      string
	timer     schedule.Timer
	gen       uint64
	observers []Observer
	closed    bool
}

// New returns an empty slot whose notices last ttl (DefaultTTL if zero).
func New(sched schedule.Scheduler, ttl time.Duration) *Scheduler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Scheduler{sched: sched, ttl: ttl}
}

// Subscribe registers o for slot changes.
func (s *Scheduler) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Show replaces the current notice with msg and restarts the dismiss timer.
func (s *Scheduler) Show(msg string) {
	if s.closed {
		return
	}
	s.stopTimer()
	s.gen++
	gen := s.gen
	s.text = msg
	s.timer = s.sched.AfterFunc(s.ttl, func() { s.expire(gen) })
	s.notify(msg, true)
}

// Dismiss clears the notice immediately.
func (s *Scheduler) Dismiss() {
	if s.timer == nil && s.text == "" {
		return
	}
	s.stopTimer()
	s.gen++
	s.text = ""
	s.notify("", false)
}

// Current returns the visible notice, if any.
func (s *Scheduler) Current() (string, bool) {
	return s.text, s.timer != nil
}

// Pending reports whether a dismiss timer is outstanding.
func (s *Scheduler) Pending() bool { return s.timer != nil }

// Close cancels the dismiss timer without notifying. Show is ignored afterwards.
func (s *Scheduler) Close() {
	s.stopTimer()
	s.gen++
	s.closed = true
}

func (s *Scheduler) expire(gen uint64) {
	if gen != s.gen {
		return
	}
	s.timer = nil
	s.text = ""
	s.notify("", false)
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) notify(text string, visible bool) {
	for _, o := range s.observers {
		o(text, visible)
	}
}
