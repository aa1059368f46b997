// Package dwell implements hover-to-click: a per-target countdown that turns
// sustained pointer presence into one action invocation.
//
// Each attached target is Idle or Counting. OnEnter starts a countdown that
// reports progress every tick; when the configured duration elapses the
// target reports 100, returns to Idle reporting 0, and its action is invoked
// once. OnLeave, SetEnabled, SetDuration and Close cancel countdowns and
// report 0.
//
// A Controller is confined to the goroutine of its Scheduler and is not safe
// for concurrent use.
package dwell

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/schedule"
)

// ErrDurationOutOfRange is returned by SetDuration for values outside the
// configured bounds.
var ErrDurationOutOfRange = errors.New("dwell duration out of range")

// ProgressFunc receives per-target progress, 0 to 100.
type ProgressFunc func(target Target, percent int)

// Options configures a Controller.
type Options struct {
	Duration    time.Duration // time to activation
	Tick        time.Duration // progress interval
	MinDuration time.Duration
	MaxDuration time.Duration
	Enabled     bool
	// Toggle may arm while the controller is disabled, so automation can be
	// switched on by hovering.
	Toggle Target
}

// Defaults for Aces Up.
const (
	DefaultDuration    = 2000 * time.Millisecond
	DefaultTick        = 50 * time.Millisecond
	DefaultMinDuration = 50 * time.Millisecond
	DefaultMaxDuration = 10000 * time.Millisecond
)

type binding struct {
	action   Action
	disabled bool
	count    *countdown
	progress int
}

type countdown struct {
	timer   schedule.Timer
	elapsed time.Duration
}

// Controller runs dwell countdowns for a set of targets.
type Controller struct {
	sched      schedule.Scheduler
	inv        Invoker
	onProgress ProgressFunc
	log        logrus.FieldLogger

	opts    Options
	targets map[Target]*binding
	closed  bool
}

// New creates a controller. Zero option fields take the package defaults.
func New(sched schedule.Scheduler, inv Invoker, opts Options, onProgress ProgressFunc, log logrus.FieldLogger) *Controller {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.MinDuration <= 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if onProgress == nil {
		onProgress = func(Target, int) {}
	}
	return &Controller{
		sched:      sched,
		inv:        inv,
		onProgress: onProgress,
		log:        log,
		opts:       opts,
		targets:    make(map[Target]*binding),
	}
}

// Attach maps target to action. Re-attaching replaces the action and
// cancels any running countdown for the target.
func (c *Controller) Attach(target Target, action Action) {
	if b, ok := c.targets[target]; ok {
		c.cancel(target, b)
		b.action = action
		return
	}
	c.targets[target] = &binding{action: action}
}

// Detach cancels and forgets target.
func (c *Controller) Detach(target Target) {
	if b, ok := c.targets[target]; ok {
		c.cancel(target, b)
		delete(c.targets, target)
	}
}

// SetDisabled marks target as disabled. A disabled target never arms and its
// progress is forced to 0.
func (c *Controller) SetDisabled(target Target, disabled bool) {
	b, ok := c.targets[target]
	if !ok || b.disabled == disabled {
		return
	}
	b.disabled = disabled
	if disabled {
		c.cancel(target, b)
	}
}

// OnEnter starts a fresh countdown for target.
func (c *Controller) OnEnter(target Target) {
	if c.closed {
		return
	}
	b, ok := c.targets[target]
	if !ok {
		c.log.WithField("target", target).Warn("Dwell: enter on unknown target ignored.")
		return
	}
	if !c.opts.Enabled && target != c.opts.Toggle {
		return
	}
	if b.disabled {
		c.onProgress(target, 0)
		return
	}

	c.stop(b)
	cd := &countdown{}
	b.count = cd
	b.progress = 0
	cd.timer = c.sched.AfterFunc(c.nextDelay(cd), func() { c.tick(target, b, cd) })
	c.log.WithField("target", target).Debugf("Dwell: countdown started (%s).", c.opts.Duration)
}

// OnLeave cancels target's countdown and reports 0.
func (c *Controller) OnLeave(target Target) {
	b, ok := c.targets[target]
	if !ok {
		return
	}
	if !c.cancel(target, b) {
		c.onProgress(target, 0)
	}
}

// SetEnabled switches automation on or off, cancelling every countdown.
func (c *Controller) SetEnabled(enabled bool) {
	if c.opts.Enabled == enabled {
		return
	}
	c.opts.Enabled = enabled
	c.cancelAll()
	c.log.Debugf("Dwell: enabled=%v.", enabled)
}

// SetDuration changes the activation time, cancelling every countdown.
func (c *Controller) SetDuration(d time.Duration) error {
	if d < c.opts.MinDuration || d > c.opts.MaxDuration {
		return fmt.Errorf("set dwell duration %s: want %s..%s: %w", d, c.opts.MinDuration, c.opts.MaxDuration, ErrDurationOutOfRange)
	}
	if d == c.opts.Duration {
		return nil
	}
	c.opts.Duration = d
	c.cancelAll()
	return nil
}

// Enabled reports whether automation is on.
func (c *Controller) Enabled() bool { return c.opts.Enabled }

// Duration returns the activation time.
func (c *Controller) Duration() time.Duration { return c.opts.Duration }

// Progress returns target's current progress.
func (c *Controller) Progress(target Target) int {
	if b, ok := c.targets[target]; ok {
		return b.progress
	}
	return 0
}

// Active reports whether target has a running countdown.
func (c *Controller) Active(target Target) bool {
	b, ok := c.targets[target]
	return ok && b.count != nil
}

// Close cancels every countdown. The controller ignores input afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.cancelAll()
	c.closed = true
}

// ---------------------------------------------------------------------------
// Countdown
// ---------------------------------------------------------------------------

func (c *Controller) nextDelay(cd *countdown) time.Duration {
	return min(c.opts.Tick, c.opts.Duration-cd.elapsed)
}

func (c *Controller) tick(target Target, b *binding, cd *countdown) {
	if b.count != cd {
		// Superseded or cancelled.
		return
	}
	cd.elapsed += c.nextDelay(cd)

	pct := int(math.Round(100 * float64(cd.elapsed) / float64(c.opts.Duration)))
	if pct > 100 {
		pct = 100
	}
	if pct > b.progress {
		b.progress = pct
		c.onProgress(target, pct)
	}

	if cd.elapsed < c.opts.Duration {
		cd.timer = c.sched.AfterFunc(c.nextDelay(cd), func() { c.tick(target, b, cd) })
		return
	}

	b.count = nil
	b.progress = 0
	c.onProgress(target, 0)
	c.log.WithField("target", target).Debugf("Dwell: completed, invoking %s.", b.action)
	c.inv.Invoke(b.action)
}

// stop cancels a running countdown without reporting.
func (c *Controller) stop(b *binding) bool {
	if b.count == nil {
		return false
	}
	b.count.timer.Stop()
	b.count = nil
	b.progress = 0
	return true
}

// cancel stops target's countdown and reports 0 if one was running.
func (c *Controller) cancel(target Target, b *binding) bool {
	if !c.stop(b) {
		return false
	}
	c.onProgress(target, 0)
	return true
}

func (c *Controller) cancelAll() {
	for t, b := range c.targets {
		c.cancel(t, b)
	}
}
