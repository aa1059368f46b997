package dwell

import (
	"fmt"
	"strconv"
	"strings"
)

// Target identifies a hoverable control.
type Target string

const (
	TargetDeal       Target = "deal"
	TargetUndo       Target = "undo"
	TargetNewGame    Target = "new-game"
	TargetConfirmYes Target = "confirm-new-yes"
	TargetConfirmNo  Target = "confirm-new-no"
	TargetAutoplay   Target = "autoplay-toggle"
	TargetPlayCard   Target = "play-card"
	TargetStartGame  Target = "start-game"
	TargetHome       Target = "home"
	TargetRules      Target = "rules"
	TargetBackground Target = "background"
	TargetCloseRules Target = "close-rules"
)

const pilePrefix = "pile:"

// PileTarget returns the target of tableau pile i.
func PileTarget(i int) Target { return Target(pilePrefix + strconv.Itoa(i)) }

// Pile returns the pile index of a pile target.
func (t Target) Pile() (int, bool) {
	s, ok := strings.CutPrefix(string(t), pilePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ActionKind enumerates what a completed dwell does.
type ActionKind uint8

const (
	ActionPile ActionKind = iota + 1 // click the pile in Action.Pile
	ActionDeal
	ActionUndo
	ActionNewGame // show the new-game confirmation
	ActionConfirmNewGame
	ActionCancelNewGame
	ActionToggleAutoplay
	ActionPlayCard
	ActionStartGame
)

func (k ActionKind) String() string {
	switch k {
	case ActionPile:
		return "pile"
	case ActionDeal:
		return "deal"
	case ActionUndo:
		return "undo"
	case ActionNewGame:
		return "new_game"
	case ActionConfirmNewGame:
		return "confirm_new_game"
	case ActionCancelNewGame:
		return "cancel_new_game"
	case ActionToggleAutoplay:
		return "toggle_autoplay"
	case ActionPlayCard:
		return "play_card"
	case ActionStartGame:
		return "start_game"
	}
	return fmt.Sprintf("ActionKind(%d)", k)
}

// Action is the typed payload invoked when a dwell completes. Pile is only
// meaningful for ActionPile.
type Action struct {
	Kind ActionKind
	Pile int
}

func (a Action) String() string {
	if a.Kind == ActionPile {
		return fmt.Sprintf("pile(%d)", a.Pile)
	}
	return a.Kind.String()
}

// Invoker receives completed dwell actions.
type Invoker interface {
	Invoke(Action)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(Action)

func (f InvokerFunc) Invoke(a Action) { f(a) }
