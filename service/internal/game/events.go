package game

import (
	"github.com/google/uuid"
)

// GameEventType represents the type of a table event streamed to the client.
type GameEventType string

const (
	EventTableState    GameEventType = "table_state"    // Full state sync after every change.
	EventDwellProgress GameEventType = "dwell_progress" // Per-target hover progress, 0-100.
	EventNotice        GameEventType = "notice"         // Toast or status slot changed.
	EventPlaySound     GameEventType = "play_sound"     // Fire-and-forget sound request.
	EventSetFocus      GameEventType = "set_focus"      // Move keyboard focus to a control.
	EventNavigate      GameEventType = "navigate"       // Leave the table for a route.
	EventBackground    GameEventType = "background"     // Background image index changed.
	EventGameEnd       GameEventType = "game_end"       // Game reached a terminal state.
	EventStripJackTurn GameEventType = "stripjack_turn" // One card turned in Strip Jack Naked.
	EventError         GameEventType = "error"          // A command was rejected; sent to the sender only.
)

// Notice slots carried in EventNotice payloads.
const (
	SlotToast  = "toast"
	SlotStatus = "status"
)

// Sounds requested via EventPlaySound.
const (
	SoundGameWin  = "game-win"
	SoundGameLose = "game-lose"
	SoundRoundWin = "round-win"
)

// Source records what triggered an action.
type Source string

const (
	SourceClick Source = "click"
	SourceDwell Source = "dwell"
	SourceKey   Source = "key"
)

// GameEvent is the envelope for everything a table streams to its client.
type GameEvent struct {
	Type    GameEventType `json:"type"`
	TableID uuid.UUID     `json:"tableId"`
	Target  string        `json:"target,omitempty"` // Control the event concerns, if any.

	Payload map[string]interface{} `json:"payload,omitempty"`

	State interface{} `json:"state,omitempty"` // AcesUpState or StripJackState for sync events.
}
