package game

import (
	"errors"
	"fmt"
)

// ErrTableClosed is returned by Handle once a table has been closed.
var ErrTableClosed = errors.New("table closed")

// CommandType names a client command.
type CommandType string

const (
	CmdNewGame          CommandType = "new_game" // show the confirmation
	CmdConfirmNewGame   CommandType = "confirm_new_game"
	CmdCancelNewGame    CommandType = "cancel_new_game"
	CmdDeal             CommandType = "deal"
	CmdDispatch         CommandType = "dispatch" // click a pile
	CmdDiscard          CommandType = "discard"
	CmdMoveToEmpty      CommandType = "move_to_empty"
	CmdDiscardAll       CommandType = "discard_all"
	CmdUndo             CommandType = "undo"
	CmdPointerEnter     CommandType = "pointer_enter"
	CmdPointerLeave     CommandType = "pointer_leave"
	CmdSetAutoplay      CommandType = "set_autoplay"
	CmdSetHoverDelay    CommandType = "set_hover_delay"
	CmdKey              CommandType = "key"
	CmdOpenRules        CommandType = "open_rules"
	CmdCloseRules       CommandType = "close_rules"
	CmdChangeBackground CommandType = "change_background"
	CmdNavigateHome     CommandType = "navigate_home"
	CmdStartGame        CommandType = "start_game"
	CmdPlayCard         CommandType = "play_card"
	CmdSync             CommandType = "sync"
)

// Command is one client request read from the table stream.
type Command struct {
	Type    CommandType `json:"type"`
	Pile    int         `json:"pile,omitempty"`
	Target  string      `json:"target,omitempty"`
	Key     string      `json:"key,omitempty"`
	Enabled bool        `json:"enabled,omitempty"`
	// Value is the raw hover delay input. A missing value is reported as out
	// of range.
	Value *string `json:"value,omitempty"`
}

func unknownCommand(variant string, t CommandType) error {
	return fmt.Errorf("%s: command %q: %w", variant, t, ErrUnknownCommand)
}
