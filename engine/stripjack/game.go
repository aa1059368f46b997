// Package stripjack implements Strip Jack Naked (Beggar-my-neighbour) on top
// of the engine card and deck types.
//
// Players take turns turning the front card of their hand onto a shared
// pile. A face card (J, Q, K, A) demands a penalty of 1, 2, 3 or 4 cards from
// the next player holding cards. If the payer turns up a face card the
// obligation passes on; if the penalty is paid without one, or the payer runs
// out, the player who laid the last face card collects the pile onto the
// back of their hand. A player with no cards who is not owed the pile is out,
// and the last player standing wins.
package stripjack

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/acesup/engine"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

var (
	// ErrNotStarted reports a play before Start.
	ErrNotStarted = errors.New("game not started")
	// ErrGameOver reports a play after a winner was decided.
	ErrGameOver = errors.New("game over")
)

// Status is the lifecycle stage of a game.
type Status uint8

const (
	StatusWaiting Status = iota
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusInProgress:
		return "in_progress"
	case StatusFinished:
		return "finished"
	}
	return fmt.Sprintf("Status(%d)", s)
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Penalty returns the number of cards a face card demands, or 0.
func Penalty(r engine.Rank) int {
	switch r {
	case engine.RankJack:
		return 1
	case engine.RankQueen:
		return 2
	case engine.RankKing:
		return 3
	case engine.RankAce:
		return 4
	}
	return 0
}

// Player is a seat at the table. Hand is played from the front and
// collected piles are added to the back.
type Player struct {
	Name string
	Hand []engine.Card
	Out  bool
}

// Turn describes the effect of one PlayCard call.
type Turn struct {
	Player     int         `json:"player"`
	Card       engine.Card `json:"card"`
	Penalty    int         `json:"penalty"`    // penalty still owed after this card
	Collected  bool        `json:"collected"`  // the pile was collected
	Collector  int         `json:"collector"`  // -1 unless Collected
	PileSize   int         `json:"pileSize"`   // cards collected, or pile size if not collected
	Eliminated []int       `json:"eliminated"` // players knocked out by this turn
	Ended      bool        `json:"ended"`
	Winner     int         `json:"winner"` // -1 unless Ended
}

// Game is a Strip Jack Naked table. It is not safe for concurrent use.
type Game struct {
	Players    []*Player
	Pile       []engine.Card
	Current    int // player to turn the next card
	Challenger int // player owed the pile, -1 when no penalty is running
	Owed       int // cards Current still owes Challenger
	Winner     int
	Turns      int

	status Status
	deck   *engine.Deck
}

// Status reports the lifecycle stage.
func (g *Game) Status() Status { return g.status }

// New seats the named players. Cards are dealt by Start.
func New(deck *engine.Deck, names []string) (*Game, error) {
	if len(names) < MinPlayers || len(names) > MaxPlayers {
		return nil, fmt.Errorf("strip jack: %d players, want %d-%d: %w", len(names), MinPlayers, MaxPlayers, engine.ErrInvalidArgument)
	}
	g := &Game{deck: deck, Challenger: -1, Winner: -1}
	for _, n := range names {
		g.Players = append(g.Players, &Player{Name: n})
	}
	return g, nil
}

// Start deals the whole deck round-robin and hands the first turn to
// player 0. Calling Start again begins a fresh game.
func (g *Game) Start() error {
	hands, err := g.deck.DealToPlayers(len(g.Players))
	if err != nil {
		return fmt.Errorf("strip jack: start: %w", err)
	}
	return g.Load(hands)
}

// Load starts a game from explicit hands, front card first. Used for
// fixtures and replays.
func (g *Game) Load(hands [][]engine.Card) error {
	if len(hands) != len(g.Players) {
		return fmt.Errorf("strip jack: load %d hands for %d players: %w", len(hands), len(g.Players), engine.ErrInvalidArgument)
	}
	seen := make(map[uint8]bool)
	for _, h := range hands {
		for _, c := range h {
			if seen[c.Key()] {
				return fmt.Errorf("strip jack: load: duplicate card %v: %w", c, engine.ErrInvalidArgument)
			}
			seen[c.Key()] = true
		}
	}
	for i, p := range g.Players {
		p.Hand = append([]engine.Card(nil), hands[i]...)
		p.Out = false
	}
	g.Pile = nil
	g.Current = 0
	g.Challenger = -1
	g.Owed = 0
	g.Winner = -1
	g.Turns = 0
	g.status = StatusInProgress
	g.eliminate()
	if w, done := g.lastStanding(); done {
		g.finish(w, &Turn{})
	} else if len(g.Players[0].Hand) == 0 {
		g.Current = g.nextHolder(0)
	}
	return nil
}

// PlayCard turns the current player's front card onto the pile and applies
// the penalty rules.
func (g *Game) PlayCard() (Turn, error) {
	switch g.status {
	case StatusWaiting:
		return Turn{}, ErrNotStarted
	case StatusFinished:
		return Turn{}, ErrGameOver
	}

	p := g.Current
	hand := g.Players[p].Hand
	c := hand[0]
	c.FaceUp = true
	g.Players[p].Hand = hand[1:]
	g.Pile = append(g.Pile, c)
	g.Turns++

	t := Turn{Player: p, Card: c, Collector: -1, Winner: -1}
	advance := true
	switch {
	case c.Rank.IsFace():
		g.Challenger = p
		g.Owed = Penalty(c.Rank)
	case g.Owed > 0:
		// The payer keeps turning cards until the debt is settled.
		advance = false
		g.Owed--
		if g.Owed == 0 || len(g.Players[p].Hand) == 0 {
			g.collect(g.Challenger, &t)
		}
	}

	t.Eliminated = g.eliminate()
	if w, done := g.lastStanding(); done {
		g.finish(w, &t)
		return t, nil
	}
	if advance {
		if next := g.nextHolder(p); next >= 0 {
			g.Current = next
		}
	}
	t.Penalty = g.Owed
	if !t.Collected {
		t.PileSize = len(g.Pile)
	}
	return t, nil
}

// collect moves the pile to the back of player i's hand and gives them the lead.
func (g *Game) collect(i int, t *Turn) {
	t.Collected = true
	t.Collector = i
	t.PileSize = len(g.Pile)
	for _, c := range g.Pile {
		c.FaceUp = false
		g.Players[i].Hand = append(g.Players[i].Hand, c)
	}
	g.Pile = nil
	g.Owed = 0
	g.Challenger = -1
	g.Current = i
}

// eliminate marks players with no cards who are not owed the pile and
// returns the newly eliminated indexes.
func (g *Game) eliminate() []int {
	var out []int
	for i, p := range g.Players {
		if !p.Out && len(p.Hand) == 0 && i != g.Challenger {
			p.Out = true
			out = append(out, i)
		}
	}
	return out
}

// lastStanding returns the only remaining player, if exactly one is left.
func (g *Game) lastStanding() (int, bool) {
	w, n := -1, 0
	for i, p := range g.Players {
		if !p.Out {
			w = i
			n++
		}
	}
	return w, n == 1
}

// finish awards the pile to the winner and ends the game.
func (g *Game) finish(w int, t *Turn) {
	if len(g.Pile) > 0 {
		g.collect(w, t)
	}
	g.Challenger = -1
	g.Owed = 0
	g.Current = w
	g.Winner = w
	g.status = StatusFinished
	t.Ended = true
	t.Winner = w
}

// nextHolder returns the next player after from holding cards, or -1.
func (g *Game) nextHolder(from int) int {
	n := len(g.Players)
	for k := 1; k < n; k++ {
		i := (from + k) % n
		if len(g.Players[i].Hand) > 0 {
			return i
		}
	}
	return -1
}

// CardCount returns the number of cards held by players and the pile.
func (g *Game) CardCount() int {
	n := len(g.Pile)
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	return n
}

// PlayerView is the public state of one seat.
type PlayerView struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"`
	Out   bool   `json:"out"`
}

// Snapshot is a read-only copy of the table for rendering.
type Snapshot struct {
	Players    []PlayerView `json:"players"`
	PileTop    *engine.Card `json:"pileTop,omitempty"`
	PileCount  int          `json:"pileCount"`
	Current    int          `json:"current"`
	Challenger int          `json:"challenger"`
	Owed       int          `json:"owed"`
	Status     Status       `json:"status"`
	Winner     int          `json:"winner"`
	Turns      int          `json:"turns"`
}

// Snapshot copies the current table.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		PileCount:  len(g.Pile),
		Current:    g.Current,
		Challenger: g.Challenger,
		Owed:       g.Owed,
		Status:     g.status,
		Winner:     g.Winner,
		Turns:      g.Turns,
	}
	for _, p := range g.Players {
		s.Players = append(s.Players, PlayerView{Name: p.Name, Cards: len(p.Hand), Out: p.Out})
	}
	if n := len(g.Pile); n > 0 {
		top := g.Pile[n-1]
		s.PileTop = &top
	}
	return s
}
