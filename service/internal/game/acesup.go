package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/acesup/engine"
	"github.com/jason-s-yu/acesup/service/internal/dwell"
	"github.com/jason-s-yu/acesup/service/internal/notice"
)

// Hover delay bounds accepted from the client, in milliseconds.
const (
	MinHoverDelayMs = 50
	MaxHoverDelayMs = 10000
)

// BackgroundCount is the size of the background catalogue.
const BackgroundCount = 6

// HomeRoute is where EventNavigate sends the client.
const HomeRoute = "/"

// ErrHoverDelay is returned by SetHoverDelay for rejected input.
var ErrHoverDelay = errors.New("invalid hover delay")

// User-facing messages.
const (
	msgIllegalMove  = "This card cannot be discarded."
	msgStaleUndo    = "Unable to undo that move."
	msgDelayRange   = "Please enter a value between 50 and 10000 ms."
	msgDelayNumber  = "Please enter a valid number."
	msgWin          = "You Win!"
	msgLose         = "Game Over"
	msgAutoplayOn   = "Auto-play enabled"
	msgAutoplayOff  = "Auto-play disabled"
	msgHoverExempt  = "Hover-to-click is intentionally disabled for the %s button."
	msgInvalidIndex = "Internal error: invalid pile index %d"
)

// hoverExempt maps navigation controls that never arm to their display names.
var hoverExempt = map[dwell.Target]string{
	dwell.TargetHome:       "Home",
	dwell.TargetRules:      "Rules",
	dwell.TargetBackground: "Background",
}

// AcesUpOptions configures an Aces Up session.
type AcesUpOptions struct {
	Seed      uint64 // 0 picks a random seed
	Rules     engine.HouseRules
	Dwell     dwell.Options
	NoticeTTL time.Duration
}

// AcesUp is one single-player Aces Up table.
type AcesUp struct {
	table

	game   *engine.Game
	hover  *dwell.Controller
	toast  *notice.Scheduler
	status *notice.Scheduler
	rng    *rand.Rand

	confirmNew bool
	rulesOpen  bool
	delayError string
	background int
	progress   map[dwell.Target]int
}

// NewAcesUp deals a fresh game. deps.Sched must be the goroutine the session
// is driven from.
func NewAcesUp(id uuid.UUID, opts AcesUpOptions, deps Deps) *AcesUp {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := &AcesUp{
		table:    newTable(id, VariantAcesUp, deps),
		game:     engine.New(seed, opts.Rules),
		rng:      rand.New(rand.NewPCG(seed^0x5bd1e995, seed)),
		progress: make(map[dwell.Target]int),
	}
	s.beginGame()

	s.toast = notice.New(s.sched, opts.NoticeTTL)
	s.toast.Subscribe(s.noticeObserver(SlotToast))
	s.status = notice.New(s.sched, opts.NoticeTTL)
	s.status.Subscribe(s.noticeObserver(SlotStatus))

	dopts := opts.Dwell
	dopts.Toggle = dwell.TargetAutoplay
	s.hover = dwell.New(s.sched, s, dopts, s.onProgress, s.log)
	for i := 0; i < engine.NumPiles; i++ {
		s.hover.Attach(dwell.PileTarget(i), dwell.Action{Kind: dwell.ActionPile, Pile: i})
	}
	s.hover.Attach(dwell.TargetDeal, dwell.Action{Kind: dwell.ActionDeal})
	s.hover.Attach(dwell.TargetUndo, dwell.Action{Kind: dwell.ActionUndo})
	s.hover.Attach(dwell.TargetNewGame, dwell.Action{Kind: dwell.ActionNewGame})
	s.hover.Attach(dwell.TargetConfirmYes, dwell.Action{Kind: dwell.ActionConfirmNewGame})
	s.hover.Attach(dwell.TargetConfirmNo, dwell.Action{Kind: dwell.ActionCancelNewGame})
	s.hover.Attach(dwell.TargetAutoplay, dwell.Action{Kind: dwell.ActionToggleAutoplay})
	s.refreshTargets()

	s.log.Infof("Table %s: Aces Up game %s dealt (deal policy %s).", s.id, s.gameID, opts.Rules.DealPolicy)
	s.logAction("new_game", "", map[string]interface{}{"dealPolicy": opts.Rules.DealPolicy.String()})
	return s
}

// Engine exposes the underlying game for inspection.
func (s *AcesUp) Engine() *engine.Game { return s.game }

// Handle routes a client command.
func (s *AcesUp) Handle(cmd Command) error {
	if s.closed {
		return ErrTableClosed
	}
	switch cmd.Type {
	case CmdNewGame:
		s.RequestNewGame(SourceClick)
	case CmdConfirmNewGame:
		s.ConfirmNewGame(SourceClick)
	case CmdCancelNewGame:
		s.CancelNewGame(SourceClick)
	case CmdDeal:
		s.Deal(SourceClick)
	case CmdDispatch:
		s.Dispatch(cmd.Pile, SourceClick)
	case CmdDiscard:
		s.DiscardCard(cmd.Pile, SourceClick)
	case CmdMoveToEmpty:
		s.MoveToEmpty(cmd.Pile, SourceClick)
	case CmdDiscardAll:
		s.DiscardAll(SourceClick)
	case CmdUndo:
		s.Undo(SourceClick)
	case CmdPointerEnter:
		s.PointerEnter(dwell.Target(cmd.Target))
	case CmdPointerLeave:
		s.PointerLeave(dwell.Target(cmd.Target))
	case CmdSetAutoplay:
		s.SetAutoplay(cmd.Enabled, SourceClick)
	case CmdSetHoverDelay:
		return s.SetHoverDelay(cmd.Value)
	case CmdKey:
		s.Key(cmd.Key)
	case CmdOpenRules:
		s.SetRulesOpen(true)
	case CmdCloseRules:
		s.SetRulesOpen(false)
	case CmdChangeBackground:
		s.ChangeBackground()
	case CmdNavigateHome:
		s.NavigateHome()
	case CmdSync:
		s.Sync()
	default:
		return unknownCommand(s.variant, cmd.Type)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Game actions
// ---------------------------------------------------------------------------

// NewGame reshuffles and deals immediately.
func (s *AcesUp) NewGame(src Source) {
	out := s.game.NewGame()
	s.beginGame()
	s.confirmNew = false
	s.log.Infof("Table %s: new game %s.", s.id, s.gameID)
	s.logAction("new_game", src, nil)
	s.apply(out)
}

// RequestNewGame shows the new-game confirmation.
func (s *AcesUp) RequestNewGame(src Source) {
	s.confirmNew = true
	s.logAction("new_game_prompt", src, nil)
	s.refreshTargets()
	s.setFocus(string(dwell.TargetConfirmYes))
	s.Sync()
}

// ConfirmNewGame accepts a pending confirmation.
func (s *AcesUp) ConfirmNewGame(src Source) {
	if !s.confirmNew {
		return
	}
	s.NewGame(src)
	s.setFocus(string(dwell.TargetNewGame))
}

// CancelNewGame dismisses a pending confirmation.
func (s *AcesUp) CancelNewGame(src Source) {
	if !s.confirmNew {
		return
	}
	s.confirmNew = false
	s.logAction("new_game_cancel", src, nil)
	s.refreshTargets()
	s.setFocus(string(dwell.TargetNewGame))
	s.Sync()
}

// Deal deals the next row. It does nothing when dealing is not allowed.
func (s *AcesUp) Deal(src Source) {
	out := s.game.DealNext()
	if !out.Changed {
		return
	}
	s.moves++
	s.logAction(out.Action.String(), src, map[string]interface{}{"stock": s.game.StockCount()})
	s.apply(out)
}

// Dispatch is the "click a card" action on pile i.
func (s *AcesUp) Dispatch(i int, src Source) {
	out, err := s.game.Dispatch(i)
	s.finishMove(out, err, i, src)
}

// DiscardCard discards the top of pile i.
func (s *AcesUp) DiscardCard(i int, src Source) {
	out, err := s.game.DiscardCard(i)
	s.finishMove(out, err, i, src)
}

// MoveToEmpty relocates the top of pile i to the first empty pile. Moves
// that are not possible are ignored.
func (s *AcesUp) MoveToEmpty(i int, src Source) {
	s.finishMove(s.game.TryMoveToEmpty(i), nil, i, src)
}

// DiscardAll discards every discardable card at once.
func (s *AcesUp) DiscardAll(src Source) {
	out := s.game.DiscardAll()
	if !out.Changed {
		return
	}
	s.moves++
	s.logAction(out.Action.String(), src, map[string]interface{}{"count": len(out.Cards)})
	s.apply(out)
}

// Undo reverses the last discard or relocate.
func (s *AcesUp) Undo(src Source) {
	out, err := s.game.Undo()
	if err != nil {
		s.reportError(err, -1)
		// The stale record is gone either way.
		s.refreshTargets()
		s.Sync()
		return
	}
	if !out.Changed {
		return
	}
	s.moves++
	s.logAction(out.Action.String(), src, map[string]interface{}{"pile": out.Pile})
	s.apply(out)
}

func (s *AcesUp) finishMove(out engine.Outcome, err error, i int, src Source) {
	if err != nil {
		s.reportError(err, i)
		return
	}
	if !out.Changed {
		return
	}
	s.moves++
	payload := map[string]interface{}{"pile": out.Pile}
	if out.Target >= 0 {
		payload["target"] = out.Target
	}
	s.logAction(out.Action.String(), src, payload)
	s.apply(out)
}

// reportError turns an engine error into a notice. The table is unchanged.
func (s *AcesUp) reportError(err error, pile int) {
	switch {
	case errors.Is(err, engine.ErrIllegalMove):
		s.toast.Show(msgIllegalMove)
	case errors.Is(err, engine.ErrStaleUndo):
		s.log.Warnf("Table %s: %v", s.id, err)
		s.toast.Show(msgStaleUndo)
	case errors.Is(err, engine.ErrInvalidIndex):
		s.log.Warnf("Table %s: %v", s.id, err)
		s.toast.Show(fmt.Sprintf(msgInvalidIndex, pile))
	default:
		s.log.Errorf("Table %s: unexpected engine error: %v", s.id, err)
	}
}

// apply publishes the effects of a changed outcome.
func (s *AcesUp) apply(out engine.Outcome) {
	s.refreshTargets()
	if out.Ended {
		s.onGameEnd(out.Status)
	}
	s.Sync()
}

func (s *AcesUp) onGameEnd(status engine.Status) {
	msg, sound := msgLose, SoundGameLose
	if status == engine.StatusWon {
		msg, sound = msgWin, SoundGameWin
	}
	s.log.Infof("Table %s: game %s ended %s with %d discarded.", s.id, s.gameID, status, s.game.Discarded)
	s.playSound(sound)
	s.fireEvent(GameEvent{
		Type: EventGameEnd,
		Payload: map[string]interface{}{
			"status":    status.String(),
			"message":   msg,
			"discarded": s.game.Discarded,
			"moves":     s.moves,
		},
	})
	s.logAction("game_end", "", map[string]interface{}{"status": status.String(), "discarded": s.game.Discarded})
	s.recordResult(status.String(), "", s.game.Discarded)
}

// ---------------------------------------------------------------------------
// Hover-to-click
// ---------------------------------------------------------------------------

// Invoke runs a completed dwell action.
func (s *AcesUp) Invoke(a dwell.Action) {
	switch a.Kind {
	case dwell.ActionPile:
		s.Dispatch(a.Pile, SourceDwell)
	case dwell.ActionDeal:
		s.Deal(SourceDwell)
	case dwell.ActionToggleAutoplay:
		on := !s.hover.Enabled()
		s.SetAutoplay(on, SourceDwell)
		if on {
			s.toast.Show("Auto-play enabled via hover")
		} else {
			s.toast.Show("Auto-play disabled via hover")
		}
	case dwell.ActionNewGame:
		s.RequestNewGame(SourceDwell)
		s.toast.Show("New game confirmation shown via hover")
	case dwell.ActionConfirmNewGame:
		s.ConfirmNewGame(SourceDwell)
		s.toast.Show("New game started via hover")
	case dwell.ActionCancelNewGame:
		s.CancelNewGame(SourceDwell)
		s.toast.Show("New game cancelled via hover")
	case dwell.ActionUndo:
		if s.game.CanUndo() {
			s.Undo(SourceDwell)
			s.toast.Show("Undo triggered via hover")
		}
	default:
		s.log.Warnf("Table %s: dwell action %s has no handler.", s.id, a)
	}
}

// PointerEnter forwards pointer presence to the dwell controller. Navigation
// controls never arm and announce that instead.
func (s *AcesUp) PointerEnter(target dwell.Target) {
	if s.closed {
		return
	}
	if name, ok := hoverExempt[target]; ok {
		text := fmt.Sprintf(msgHoverExempt, name)
		s.status.Show(text)
		s.toast.Show(text)
		return
	}
	s.hover.OnEnter(target)
}

// PointerLeave cancels target's countdown.
func (s *AcesUp) PointerLeave(target dwell.Target) {
	s.hover.OnLeave(target)
}

// SetAutoplay switches hover-to-click on or off.
func (s *AcesUp) SetAutoplay(enabled bool, src Source) {
	s.hover.SetEnabled(enabled)
	if enabled {
		s.status.Show(msgAutoplayOn)
	} else {
		s.status.Show(msgAutoplayOff)
	}
	s.logAction("set_autoplay", src, map[string]interface{}{"enabled": enabled})
	s.Sync()
}

// SetHoverDelay validates raw delay input and applies it. Rejected input is
// kept in the state as an error message and the old delay stays in force.
func (s *AcesUp) SetHoverDelay(input *string) error {
	err := s.setHoverDelay(input)
	if err != nil {
		s.log.Debugf("Table %s: %v", s.id, err)
	}
	s.Sync()
	return err
}

func (s *AcesUp) setHoverDelay(input *string) error {
	d, msg, err := parseHoverDelay(input)
	if err == nil {
		err = s.hover.SetDuration(d)
		msg = msgDelayRange
	}
	if err != nil {
		s.delayError = msg
		return err
	}
	s.delayError = ""
	s.logAction("set_hover_delay", SourceClick, map[string]interface{}{"ms": d.Milliseconds()})
	return nil
}

// parseHoverDelay validates raw delay input. On failure it also returns the
// message to show next to the input.
func parseHoverDelay(input *string) (time.Duration, string, error) {
	if input == nil {
		return 0, msgDelayRange, fmt.Errorf("hover delay missing: %w", ErrHoverDelay)
	}
	ms, err := strconv.Atoi(*input)
	if err != nil {
		return 0, msgDelayNumber, fmt.Errorf("hover delay %q: %w", *input, ErrHoverDelay)
	}
	if ms < MinHoverDelayMs || ms > MaxHoverDelayMs {
		return 0, msgDelayRange, fmt.Errorf("hover delay %d ms: %w", ms, ErrHoverDelay)
	}
	return time.Duration(ms) * time.Millisecond, "", nil
}

// refreshTargets disables controls whose action is currently unavailable.
func (s *AcesUp) refreshTargets() {
	for i := 0; i < engine.NumPiles; i++ {
		s.hover.SetDisabled(dwell.PileTarget(i), s.game.Piles[i].Empty())
	}
	s.hover.SetDisabled(dwell.TargetDeal, !s.game.CanDeal())
	s.hover.SetDisabled(dwell.TargetUndo, !s.game.CanUndo())
	s.hover.SetDisabled(dwell.TargetConfirmYes, !s.confirmNew)
	s.hover.SetDisabled(dwell.TargetConfirmNo, !s.confirmNew)
}

func (s *AcesUp) onProgress(target dwell.Target, pct int) {
	if pct == 0 {
		delete(s.progress, target)
	} else {
		s.progress[target] = pct
	}
	s.fireEvent(GameEvent{
		Type:    EventDwellProgress,
		Target:  string(target),
		Payload: map[string]interface{}{"percent": pct},
	})
}

func (s *AcesUp) noticeObserver(slot string) notice.Observer {
	return func(text string, visible bool) {
		s.fireEvent(GameEvent{
			Type:    EventNotice,
			Target:  slot,
			Payload: map[string]interface{}{"text": text, "visible": visible},
		})
	}
}

// ---------------------------------------------------------------------------
// Keyboard and page controls
// ---------------------------------------------------------------------------

// Key handles a keyboard shortcut: n opens the new-game confirmation, d
// deals and 1-4 click the matching pile. Other keys are ignored.
func (s *AcesUp) Key(key string) bool {
	switch key {
	case "n", "N":
		s.RequestNewGame(SourceKey)
	case "d", "D":
		s.Deal(SourceKey)
	case "1", "2", "3", "4":
		s.Dispatch(int(key[0]-'1'), SourceKey)
	default:
		return false
	}
	return true
}

// SetRulesOpen shows or hides the rules dialog.
func (s *AcesUp) SetRulesOpen(open bool) {
	if s.rulesOpen == open {
		return
	}
	s.rulesOpen = open
	s.Sync()
}

// ChangeBackground picks a random background from the catalogue.
func (s *AcesUp) ChangeBackground() {
	s.background = s.rng.IntN(BackgroundCount)
	s.fireEvent(GameEvent{Type: EventBackground, Payload: map[string]interface{}{"index": s.background}})
	s.Sync()
}

// NavigateHome asks the client to leave the table.
func (s *AcesUp) NavigateHome() {
	s.fireEvent(GameEvent{Type: EventNavigate, Payload: map[string]interface{}{"route": HomeRoute}})
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State builds the client snapshot.
func (s *AcesUp) State() AcesUpState {
	snap := s.game.Snapshot()
	st := AcesUpState{
		TableID:        s.id,
		GameID:         s.gameID,
		StockCount:     snap.StockCount,
		Discarded:      snap.Discarded,
		Status:         snap.Status,
		Discardable:    snap.Discardable,
		CanUndo:        snap.CanUndo,
		CanDeal:        snap.CanDeal,
		CanDiscard:     snap.CanDiscard,
		CanMoveToEmpty: snap.CanMoveToEmpty,
		DealPolicy:     s.game.Rules.DealPolicy.String(),
		ConfirmNewGame: s.confirmNew,
		RulesOpen:      s.rulesOpen,
		Background:     s.background,
		StartedAt:      s.startedAt,
		Dwell: DwellView{
			Enabled:    s.hover.Enabled(),
			DurationMs: s.hover.Duration().Milliseconds(),
			Progress:   make(map[string]int, len(s.progress)),
			DelayError: s.delayError,
		},
	}
	for i, p := range snap.Piles {
		st.Piles[i] = viewCards(p)
	}
	switch snap.Status {
	case engine.StatusWon:
		st.Message = msgWin
	case engine.StatusLost:
		st.Message = msgLose
	}
	st.Toast.Text, st.Toast.Visible = s.toast.Current()
	st.StatusNotice.Text, st.StatusNotice.Visible = s.status.Current()
	for t, p := range s.progress {
		st.Dwell.Progress[string(t)] = p
	}
	return st
}

// Sync broadcasts the full state.
func (s *AcesUp) Sync() {
	st := s.State()
	s.fireEvent(GameEvent{Type: EventTableState, State: st})
}

// Close cancels every dwell countdown and notice timer.
func (s *AcesUp) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.hover.Close()
	s.toast.Close()
	s.status.Close()
	s.log.Infof("Table %s: closed after %d actions.", s.id, s.actionIndex)
}
