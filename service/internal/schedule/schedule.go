// Package schedule provides cancellable timers bound to a single logical
// thread of control.
//
// A table owns one Loop. Everything that touches table state, including
// websocket commands and timer callbacks, runs as a closure on the Loop's
// goroutine, so the engine, the dwell controller and the notice scheduler
// need no locks. A Timer stopped on the loop goroutine never delivers its
// callback afterwards.
package schedule

import "time"

// Timer is the handle of a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs callbacks after a delay on the caller's thread of control.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}
