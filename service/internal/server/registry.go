package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/game"
	"github.com/jason-s-yu/acesup/service/internal/schedule"
)

var (
	// ErrUnknownVariant is returned by Create for a variant with no factory.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrTooManyTables is returned by Create once MaxTables tables are open.
	ErrTooManyTables = errors.New("too many open tables")
)

const (
	loopQueue      = 256
	shutdownBudget = 2 * time.Second
)

// TableFactory builds a session bound to deps. It runs on the table's loop.
type TableFactory func(id uuid.UUID, deps game.Deps) (game.Table, error)

// Factories builds the factory set for both variants.
func Factories(acesUp game.AcesUpOptions, stripJack game.StripJackOptions) map[string]TableFactory {
	return map[string]TableFactory{
		game.VariantAcesUp: func(id uuid.UUID, deps game.Deps) (game.Table, error) {
			return game.NewAcesUp(id, acesUp, deps), nil
		},
		game.VariantStripJack: func(id uuid.UUID, deps game.Deps) (game.Table, error) {
			s, err := game.NewStripJack(id, stripJack, deps)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Factories   map[string]TableFactory
	Historian   game.Historian   // optional
	Results     game.ResultStore // optional
	IdleTimeout time.Duration    // close tables with no viewers after this long
	MaxTables   int
	Log         logrus.FieldLogger
}

// Registry owns every open table and the loop goroutine that drives it.
type Registry struct {
	opts RegistryOptions
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tables map[uuid.UUID]*Handle
}

// NewRegistry returns an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Minute
	}
	if opts.MaxTables <= 0 {
		opts.MaxTables = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		tables: make(map[uuid.UUID]*Handle),
	}
}

// Create opens a table of the given variant and starts its loop.
func (r *Registry) Create(ctx context.Context, variant string) (*Handle, error) {
	factory, ok := r.opts.Factories[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	if r.Len() >= r.opts.MaxTables {
		return nil, ErrTooManyTables
	}

	id := uuid.New()
	h := &Handle{
		id:      id,
		variant: variant,
		loop:    schedule.NewLoop(loopQueue, r.log.WithField("table", id)),
		subs:    make(map[*subscriber]struct{}),
		idle:    r.opts.IdleTimeout,
		onIdle:  func() { go r.Remove(id) },
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = h.loop.Run(r.ctx)
	}()

	deps := game.Deps{
		Sched:     h.loop,
		Broadcast: h.broadcast,
		Historian: r.opts.Historian,
		Results:   r.opts.Results,
		Log:       r.log,
	}
	var ferr error
	err := h.loop.Do(ctx, func() {
		h.table, ferr = factory(id, deps)
		if ferr == nil {
			h.armIdle()
		}
	})
	if err == nil {
		err = ferr
	}
	if err != nil {
		h.loop.Close()
		return nil, fmt.Errorf("create %s table: %w", variant, err)
	}

	r.mu.Lock()
	if len(r.tables) >= r.opts.MaxTables {
		r.mu.Unlock()
		h.shutdown(r.log)
		return nil, ErrTooManyTables
	}
	r.tables[id] = h
	r.mu.Unlock()

	r.log.Infof("Registry: opened %s table %s.", variant, id)
	return h, nil
}

// Get looks up an open table.
func (r *Registry) Get(id uuid.UUID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tables[id]
	return h, ok
}

// Len is the number of open tables.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables)
}

// Remove closes a table and disconnects its viewers. It must not be called
// from a table loop.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	h, ok := r.tables[id]
	delete(r.tables, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.shutdown(r.log)
	r.log.Infof("Registry: closed table %s.", id)
	return true
}

// Close removes every table and waits for their loops to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.tables))
	for id := range r.tables {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Remove(id)
	}
	r.cancel()
	r.wg.Wait()
}

// Handle is an open table together with its loop and viewers.
type Handle struct {
	id      uuid.UUID
	variant string
	table   game.Table
	loop    *schedule.Loop

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	// loop-confined
	idle      time.Duration
	idleTimer schedule.Timer
	onIdle    func()
}

// ID returns the table id.
func (h *Handle) ID() uuid.UUID { return h.id }

// Variant returns the table's variant name.
func (h *Handle) Variant() string { return h.variant }

// Post queues f against the table on its loop. It reports false once the
// table is closed.
func (h *Handle) Post(f func(t game.Table)) bool {
	return h.loop.Post(func() { f(h.table) })
}

// Do runs f against the table on its loop and waits for it.
func (h *Handle) Do(ctx context.Context, f func(t game.Table)) error {
	return h.loop.Do(ctx, func() { f(h.table) })
}

// Viewers is the number of attached subscribers.
func (h *Handle) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Handle) subscribe(buf int) *subscriber {
	sub := newSubscriber(buf)
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	h.loop.Post(h.stopIdle)
	return sub
}

func (h *Handle) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()
	if n == 0 {
		h.loop.Post(h.armIdle)
	}
}

// broadcast runs on the loop.
func (h *Handle) broadcast(ev game.GameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		sub.send(ev)
	}
}

func (h *Handle) armIdle() {
	h.stopIdle()
	h.idleTimer = h.loop.AfterFunc(h.idle, func() {
		h.idleTimer = nil
		if h.Viewers() == 0 {
			h.onIdle()
		}
	})
}

func (h *Handle) stopIdle() {
	if h.idleTimer != nil {
		h.idleTimer.Stop()
		h.idleTimer = nil
	}
}

func (h *Handle) shutdown(log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()
	err := h.loop.Do(ctx, func() {
		h.stopIdle()
		if h.table != nil {
			h.table.Close()
		}
	})
	if err != nil {
		log.Warnf("Registry: table %s did not close cleanly: %v", h.id, err)
	}
	h.loop.Close()

	h.mu.Lock()
	for sub := range h.subs {
		sub.drop(closeTableGone)
	}
	clear(h.subs)
	h.mu.Unlock()
}
