package game

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/acesup/engine"
	"github.com/jason-s-yu/acesup/engine/stripjack"
	"github.com/jason-s-yu/acesup/service/internal/dwell"
	"github.com/jason-s-yu/acesup/service/internal/notice"
)

// Quick-draw dwell defaults for Strip Jack Naked.
const (
	StripJackDwell = 50 * time.Millisecond
	StripJackTick  = 10 * time.Millisecond
)

// StripJackOptions configures a Strip Jack Naked session.
type StripJackOptions struct {
	Seed      uint64        // 0 picks a random seed
	Players   []string      // defaults to "You" and "Computer"
	Dwell     dwell.Options // zero value means enabled with quick-draw timing
	NoticeTTL time.Duration
}

// StripJack is one Strip Jack Naked table.
type StripJack struct {
	table

	game     *stripjack.Game
	hover    *dwell.Controller
	toast    *notice.Scheduler
	progress map[dwell.Target]int
	delayErr string
}

// NewStripJack seats the players. The game starts on CmdStartGame.
func NewStripJack(id uuid.UUID, opts StripJackOptions, deps Deps) (*StripJack, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	names := opts.Players
	if len(names) == 0 {
		names = []string{"You", "Computer"}
	}
	g, err := stripjack.New(engine.NewDeck(seed), names)
	if err != nil {
		return nil, err
	}
	s := &StripJack{
		table:    newTable(id, VariantStripJack, deps),
		game:     g,
		progress: make(map[dwell.Target]int),
	}
	s.toast = notice.New(s.sched, opts.NoticeTTL)
	s.toast.Subscribe(func(text string, visible bool) {
		s.fireEvent(GameEvent{
			Type:    EventNotice,
			Target:  SlotToast,
			Payload: map[string]interface{}{"text": text, "visible": visible},
		})
	})

	dopts := opts.Dwell
	if dopts == (dwell.Options{}) {
		dopts.Enabled = true
	}
	if dopts.Duration <= 0 {
		dopts.Duration = StripJackDwell
	}
	if dopts.Tick <= 0 {
		dopts.Tick = StripJackTick
	}
	s.hover = dwell.New(s.sched, s, dopts, s.onProgress, s.log)
	s.hover.Attach(dwell.TargetPlayCard, dwell.Action{Kind: dwell.ActionPlayCard})
	s.hover.Attach(dwell.TargetStartGame, dwell.Action{Kind: dwell.ActionStartGame})
	s.refreshTargets()

	s.log.Infof("Table %s: Strip Jack Naked seated %d players.", s.id, len(names))
	return s, nil
}

// Engine exposes the underlying game for inspection.
func (s *StripJack) Engine() *stripjack.Game { return s.game }

// Handle routes a client command.
func (s *StripJack) Handle(cmd Command) error {
	if s.closed {
		return ErrTableClosed
	}
	switch cmd.Type {
	case CmdStartGame, CmdNewGame:
		s.StartGame(SourceClick)
	case CmdPlayCard:
		s.PlayCard(SourceClick)
	case CmdPointerEnter:
		s.PointerEnter(dwell.Target(cmd.Target))
	case CmdPointerLeave:
		s.hover.OnLeave(dwell.Target(cmd.Target))
	case CmdSetAutoplay:
		s.hover.SetEnabled(cmd.Enabled)
		s.logAction("set_autoplay", SourceClick, map[string]interface{}{"enabled": cmd.Enabled})
		s.Sync()
	case CmdSetHoverDelay:
		return s.SetHoverDelay(cmd.Value)
	case CmdNavigateHome:
		s.fireEvent(GameEvent{Type: EventNavigate, Payload: map[string]interface{}{"route": HomeRoute}})
	case CmdSync:
		s.Sync()
	default:
		return unknownCommand(s.variant, cmd.Type)
	}
	return nil
}

// StartGame deals a fresh game to the seated players.
func (s *StripJack) StartGame(src Source) {
	if err := s.game.Start(); err != nil {
		s.log.Errorf("Table %s: failed to start: %v", s.id, err)
		return
	}
	s.beginGame()
	s.log.Infof("Table %s: Strip Jack Naked game %s started.", s.id, s.gameID)
	s.logAction("game_start", src, nil)
	s.refreshTargets()
	s.Sync()
}

// PlayCard turns the current player's next card.
func (s *StripJack) PlayCard(src Source) {
	turn, err := s.game.PlayCard()
	if err != nil {
		switch {
		case errors.Is(err, stripjack.ErrNotStarted):
			s.toast.Show("Start a game first.")
		case errors.Is(err, stripjack.ErrGameOver):
			s.toast.Show("The game is over.")
		default:
			s.log.Errorf("Table %s: play card: %v", s.id, err)
		}
		return
	}
	s.moves++
	player := s.game.Players[turn.Player].Name
	s.logAction("play_card", src, map[string]interface{}{"player": turn.Player, "card": turn.Card.String()})
	s.fireEvent(GameEvent{
		Type: EventStripJackTurn,
		Payload: map[string]interface{}{
			"turn":   turn,
			"player": player,
			"card":   viewCard(turn.Card),
		},
	})
	if turn.Collected && !turn.Ended {
		s.log.Debugf("Table %s: %s collects %d cards.", s.id, s.game.Players[turn.Collector].Name, turn.PileSize)
		s.playSound(SoundRoundWin)
	}
	if turn.Ended {
		winner := s.game.Players[turn.Winner].Name
		s.log.Infof("Table %s: game %s won by %s after %d turns.", s.id, s.gameID, winner, s.game.Turns)
		s.playSound(SoundGameWin)
		s.fireEvent(GameEvent{
			Type:    EventGameEnd,
			Payload: map[string]interface{}{"status": stripjack.StatusFinished.String(), "winner": winner, "turns": s.game.Turns},
		})
		s.logAction("game_end", "", map[string]interface{}{"winner": winner})
		s.recordResult(stripjack.StatusFinished.String(), winner, 0)
		s.refreshTargets()
	}
	s.Sync()
}

// Invoke runs a completed dwell action.
func (s *StripJack) Invoke(a dwell.Action) {
	switch a.Kind {
	case dwell.ActionPlayCard:
		s.PlayCard(SourceDwell)
	case dwell.ActionStartGame:
		s.StartGame(SourceDwell)
	default:
		s.log.Warnf("Table %s: dwell action %s has no handler.", s.id, a)
	}
}

// PointerEnter arms the hovered control. Navigation controls never arm.
func (s *StripJack) PointerEnter(target dwell.Target) {
	if s.closed {
		return
	}
	if _, ok := hoverExempt[target]; ok {
		return
	}
	s.hover.OnEnter(target)
}

// SetHoverDelay validates raw delay input and applies it.
func (s *StripJack) SetHoverDelay(input *string) error {
	d, msg, err := parseHoverDelay(input)
	if err == nil {
		err = s.hover.SetDuration(d)
		msg = msgDelayRange
	}
	if err != nil {
		s.delayErr = msg
	} else {
		s.delayErr = ""
	}
	s.Sync()
	return err
}

func (s *StripJack) refreshTargets() {
	playing := s.game.Status() == stripjack.StatusInProgress
	s.hover.SetDisabled(dwell.TargetPlayCard, !playing)
	s.hover.SetDisabled(dwell.TargetStartGame, playing)
}

func (s *StripJack) onProgress(target dwell.Target, pct int) {
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

// State builds the client snapshot.
func (s *StripJack) State() StripJackState {
	snap := s.game.Snapshot()
	st := StripJackState{
		TableID:    s.id,
		GameID:     s.gameID,
		Players:    snap.Players,
		PileCount:  snap.PileCount,
		Current:    snap.Current,
		Challenger: snap.Challenger,
		Owed:       snap.Owed,
		Status:     snap.Status,
		Turns:      snap.Turns,
		Dwell: DwellView{
			Enabled:    s.hover.Enabled(),
			DurationMs: s.hover.Duration().Milliseconds(),
			Progress:   make(map[string]int, len(s.progress)),
			DelayError: s.delayErr,
		},
	}
	if snap.PileTop != nil {
		top := viewCard(*snap.PileTop)
		st.PileTop = &top
	}
	if snap.Winner >= 0 && snap.Winner < len(snap.Players) {
		st.Winner = snap.Players[snap.Winner].Name
	}
	st.Toast.Text, st.Toast.Visible = s.toast.Current()
	for t, p := range s.progress {
		st.Dwell.Progress[string(t)] = p
	}
	return st
}

// Sync broadcasts the full state.
func (s *StripJack) Sync() {
	st := s.State()
	s.fireEvent(GameEvent{Type: EventTableState, State: st})
}

// Close cancels every dwell countdown and notice timer.
func (s *StripJack) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.hover.Close()
	s.toast.Close()
	s.log.Infof("Table %s: closed after %d actions.", s.id, s.actionIndex)
}
