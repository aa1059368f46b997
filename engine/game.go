// Package engine implements the Aces Up patience rules.
//
// The engine is a plain state machine with no I/O and no timers. Every
// mutating operation returns an Outcome describing what changed, so the
// session layer can render, announce and record it without reading engine
// fields directly. A Game is not safe for concurrent use; callers serialize
// access (the service runs each table on a single event loop).
package engine

import "fmt"

// NumPiles is the fixed number of tableau piles.
const NumPiles = 4

// Status is the derived game status.
type Status uint8

const (
	StatusInProgress Status = iota
	StatusWon
	StatusLost
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	}
	return fmt.Sprintf("Status(%d)", s)
}

// Terminal reports whether s is Won or Lost.
func (s Status) Terminal() bool { return s != StatusInProgress }

// MoveKind tags the variant held by an UndoRecord.
type MoveKind uint8

const (
	MoveDiscard  MoveKind = iota + 1 // card removed from From's top
	MoveRelocate                     // card moved from From onto empty To
)

// UndoRecord is the single most recent reversible action.
type UndoRecord struct {
	Kind MoveKind
	From int
	To   int // MoveRelocate only
	Card Card
}

// Game holds the complete Aces Up table state.
type Game struct {
	Piles     [NumPiles]Pile
	Stock     []Card // front (index 0) is dealt first
	Discarded int
	Rules     HouseRules

	status Status // set only by NewGame, Load, Undo and checkGameEnd

	deck *Deck
	undo *UndoRecord
}

// Status reports whether the game is running, won or lost. It is derived
// from the table after every operation and cannot be set directly.
func (g *Game) Status() Status { return g.status }

// New creates a game using a deck seeded with seed and deals the first row.
func New(seed uint64, rules HouseRules) *Game {
	return NewWithDeck(NewDeck(seed), rules)
}

// NewWithDeck creates a game backed by deck and deals the first row.
func NewWithDeck(deck *Deck, rules HouseRules) *Game {
	g := &Game{Rules: rules, deck: deck}
	g.NewGame()
	return g
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// NewGame reshuffles and replaces all prior state: four face-up cards, one
// per pile, and the remaining 48 in stock.
func (g *Game) NewGame() Outcome {
	g.deck.Reset()
	all, err := g.deck.Deal(DeckSize)
	if err != nil {
		// Reset always leaves a full deck.
		panic(fmt.Sprintf("engine: new game: %v", err))
	}

	for i := range g.Piles {
		g.Piles[i] = make(Pile, 0, 13)
	}
	for i := 0; i < NumPiles; i++ {
		c := all[i]
		c.FaceUp = true
		g.Piles[i].Push(c)
	}
	g.Stock = all[NumPiles:]
	g.Discarded = 0
	g.status = StatusInProgress
	g.undo = nil

	return Outcome{Action: ActNewGame, Changed: true, Pile: -1, Target: -1, Status: g.status}
}

// DealNext deals one face-up card onto each pile from the stock. It is a
// silent no-op when CanDeal is false. Deals are not undoable.
func (g *Game) DealNext() Outcome {
	out := Outcome{Action: ActDeal, Pile: -1, Target: -1, Status: g.status}
	if !g.CanDeal() {
		return out
	}
	g.undo = nil
	out.Cards = make([]Card, 0, NumPiles)
	for i := 0; i < NumPiles; i++ {
		c := g.Stock[0]
		g.Stock = g.Stock[1:]
		c.FaceUp = true
		g.Piles[i].Push(c)
		out.Cards = append(out.Cards, c)
	}
	out.Changed = true
	return g.finish(out)
}

// Load replaces the table with an explicit position. Tableau cards are
// turned face up. The position must account for all 52 cards exactly once
// and the stock must hold whole rows. Used for fixtures and replays.
func (g *Game) Load(piles [NumPiles][]Card, stock []Card, discarded int) error {
	seen := make(map[uint8]bool, DeckSize)
	total := discarded
	check := func(c Card) error {
		if int(c.Suit) >= NumSuits || int(c.Rank) >= NumRanks {
			return fmt.Errorf("load: malformed card %v: %w", c, ErrInvalidArgument)
		}
		if seen[c.Key()] {
			return fmt.Errorf("load: duplicate card %v: %w", c, ErrInvalidArgument)
		}
		seen[c.Key()] = true
		total++
		return nil
	}
	for _, p := range piles {
		for _, c := range p {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	for _, c := range stock {
		if err := check(c); err != nil {
			return err
		}
	}
	if discarded < 0 || total != DeckSize {
		return fmt.Errorf("load: position accounts for %d cards, want %d: %w", total, DeckSize, ErrInvalidArgument)
	}
	if len(stock)%NumPiles != 0 {
		return fmt.Errorf("load: stock of %d cards is not whole rows: %w", len(stock), ErrInvalidArgument)
	}

	for i := range g.Piles {
		g.Piles[i] = make(Pile, 0, len(piles[i]))
		for _, c := range piles[i] {
			c.FaceUp = true
			g.Piles[i].Push(c)
		}
	}
	g.Stock = make([]Card, len(stock))
	copy(g.Stock, stock)
	for i := range g.Stock {
		g.Stock[i].FaceUp = false
	}
	g.Discarded = discarded
	g.status = StatusInProgress
	g.undo = nil
	g.checkGameEnd()
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Top returns the top card of pile i.
func (g *Game) Top(i int) (Card, bool) {
	if i < 0 || i >= NumPiles {
		return Card{}, false
	}
	return g.Piles[i].Peek()
}

// StockCount returns the number of cards waiting in stock.
func (g *Game) StockCount() int { return len(g.Stock) }

// LastMove returns a copy of the undo record, if any.
func (g *Game) LastMove() (UndoRecord, bool) {
	if g.undo == nil {
		return UndoRecord{}, false
	}
	return *g.undo, true
}

// Verify checks the card-conservation invariant: stock, piles and the
// discard count always account for 52 distinct cards.
func (g *Game) Verify() error {
	seen := make(map[uint8]bool, DeckSize)
	live := 0
	visit := func(c Card) error {
		if seen[c.Key()] {
			return fmt.Errorf("duplicate live card %v", c)
		}
		seen[c.Key()] = true
		live++
		return nil
	}
	for i := range g.Piles {
		for _, c := range g.Piles[i] {
			if err := visit(c); err != nil {
				return err
			}
		}
	}
	for _, c := range g.Stock {
		if err := visit(c); err != nil {
			return err
		}
	}
	if live+g.Discarded != DeckSize {
		return fmt.Errorf("card count %d live + %d discarded != %d", live, g.Discarded, DeckSize)
	}
	return nil
}

func validPile(i int) bool { return i >= 0 && i < NumPiles }

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
