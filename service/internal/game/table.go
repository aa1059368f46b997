// Package game hosts interactive table sessions. A session owns an engine
// game, its hover-to-click controller and its notice slots, and turns client
// commands into engine operations and outgoing GameEvents.
//
// Every session is confined to the goroutine of the schedule.Scheduler it was
// built with. Callers post commands onto that goroutine.
package game

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/cache"
	"github.com/jason-s-yu/acesup/service/internal/database"
	"github.com/jason-s-yu/acesup/service/internal/schedule"
)

// Variant names.
const (
	VariantAcesUp    = "acesup"
	VariantStripJack = "stripjack"
)

// ErrUnknownCommand is returned by Handle for unrecognised command types.
var ErrUnknownCommand = errors.New("unknown command")

// Historian receives every logged table action.
type Historian interface {
	PublishAction(ctx context.Context, rec cache.ActionRecord) error
}

// ResultStore receives every finished game.
type ResultStore interface {
	SaveResult(ctx context.Context, res database.GameResult) error
}

// Table is the variant-independent surface the transport drives.
type Table interface {
	ID() uuid.UUID
	Variant() string
	Handle(cmd Command) error
	Sync()
	Close()
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Sched     schedule.Scheduler
	Broadcast func(ev GameEvent)
	Historian Historian   // optional
	Results   ResultStore // optional
	Log       logrus.FieldLogger
}

// table is embedded by each session.
type table struct {
	id      uuid.UUID
	gameID  uuid.UUID
	variant string

	sched     schedule.Scheduler
	broadcast func(ev GameEvent)
	historian Historian
	results   ResultStore
	log       logrus.FieldLogger

	actionIndex int
	moves       int
	startedAt   time.Time
	recorded    bool
	closed      bool
}

func newTable(id uuid.UUID, variant string, deps Deps) table {
	if id == uuid.Nil {
		id = uuid.New()
	}
	log := deps.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return table{
		id:        id,
		variant:   variant,
		sched:     deps.Sched,
		broadcast: deps.Broadcast,
		historian: deps.Historian,
		results:   deps.Results,
		log:       log.WithFields(logrus.Fields{"table": id, "variant": variant}),
	}
}

// ID returns the table's identifier.
func (t *table) ID() uuid.UUID { return t.id }

// Variant returns the table's game variant.
func (t *table) Variant() string { return t.variant }

// GameID identifies the current game. It changes on every new game.
func (t *table) GameID() uuid.UUID { return t.gameID }

// beginGame starts bookkeeping for a fresh game.
func (t *table) beginGame() {
	t.gameID = uuid.New()
	t.moves = 0
	t.recorded = false
	t.startedAt = t.sched.Now()
}

// fireEvent broadcasts ev via the Broadcast callback.
func (t *table) fireEvent(ev GameEvent) {
	ev.TableID = t.id
	if t.broadcast != nil {
		t.broadcast(ev)
	} else {
		t.log.Warnf("Table %s: Broadcast is nil, cannot send event type %s.", t.id, ev.Type)
	}
}

func (t *table) playSound(name string) {
	t.fireEvent(GameEvent{Type: EventPlaySound, Payload: map[string]interface{}{"sound": name}})
}

func (t *table) setFocus(target string) {
	t.fireEvent(GameEvent{Type: EventSetFocus, Target: target})
}

// logAction records an action with the historian. Publishing is asynchronous
// and failures are only logged.
func (t *table) logAction(actionType string, src Source, payload map[string]interface{}) {
	t.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if t.historian == nil {
		return
	}
	rec := cache.ActionRecord{
		TableID:     t.id,
		GameID:      t.gameID,
		Variant:     t.variant,
		ActionIndex: t.actionIndex,
		ActionType:  actionType,
		Source:      string(src),
		Payload:     payload,
		Timestamp:   t.sched.Now().UnixMilli(),
	}
	h, log := t.historian, t.log
	go func(rec cache.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.PublishAction(ctx, rec); err != nil {
			log.Errorf("Table %s: Failed publishing action %d ('%s'): %v", rec.TableID, rec.ActionIndex, rec.ActionType, err)
		}
	}(rec)
}

// recordResult stores a finished game once. Saving is asynchronous.
func (t *table) recordResult(outcome, winner string, discarded int) {
	if t.recorded {
		return
	}
	t.recorded = true
	if t.results == nil {
		return
	}
	res := database.GameResult{
		ID:        t.gameID,
		TableID:   t.id,
		Variant:   t.variant,
		Outcome:   outcome,
		Winner:    winner,
		Discarded: discarded,
		Moves:     t.moves,
		StartedAt: t.startedAt,
		EndedAt:   t.sched.Now(),
	}
	store, log := t.results, t.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SaveResult(ctx, res); err != nil {
			log.Errorf("Table %s: Failed saving result for game %s: %v", res.TableID, res.ID, err)
		}
	}()
}
