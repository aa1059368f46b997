package schedule

import "time"

// Manual is a Scheduler driven by Advance instead of the wall clock.
// Callbacks run synchronously inside Advance, in due order. It is meant for
// tests and is not safe for concurrent use.
type Manual struct {
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m    *Manual
	when time.Time
	seq  uint64
	f    func()
	done bool
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

// AfterFunc schedules f at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Now returns the manual time.
func (m *Manual) Now() time.Time { return m.now }

// Advance moves the clock forward by d, running every timer that falls due,
// including timers scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		t := m.next(end)
		if t == nil {
			break
		}
		m.now = t.when
		t.done = true
		m.remove(t)
		t.f()
	}
	m.now = end
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int { return len(m.timers) }

func (m *Manual) next(end time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.when.After(end) {
			continue
		}
		if best == nil || t.when.Before(best.when) || (t.when.Equal(best.when) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
