package engine

import "fmt"

// ActionKind identifies the engine operation that produced an Outcome.
type ActionKind uint8

const (
	ActNewGame ActionKind = iota
	ActDeal
	ActDiscard
	ActDiscardAll
	ActMoveToEmpty
	ActUndo
)

func (a ActionKind) String() string {
	switch a {
	case ActNewGame:
		return "new_game"
	case ActDeal:
		return "deal"
	case ActDiscard:
		return "discard"
	case ActDiscardAll:
		return "discard_all"
	case ActMoveToEmpty:
		return "move_to_empty"
	case ActUndo:
		return "undo"
	}
	return fmt.Sprintf("ActionKind(%d)", a)
}

// Outcome describes the effect of one engine operation.
type Outcome struct {
	Action  ActionKind
	Changed bool   // false for no-ops
	Pile    int    // source pile, -1 when not applicable
	Target  int    // destination pile of a relocate (or undo of one), -1 otherwise
	Cards   []Card // cards dealt, discarded, moved or restored
	Status  Status // status after the operation
	Ended   bool   // the operation moved the game into Won or Lost
}

// DiscardCard discards the top card of pile i if it is discardable and
// records it for undo. A non-discardable card yields ErrIllegalMove and
// leaves the table untouched.
func (g *Game) DiscardCard(i int) (Outcome, error) {
	out := Outcome{Action: ActDiscard, Pile: i, Target: -1, Status: g.status}
	if !validPile(i) {
		return out, fmt.Errorf("discard pile %d: %w", i, ErrInvalidIndex)
	}
	if !g.IsDiscardable(i) {
		return out, fmt.Errorf("discard pile %d: card is not discardable: %w", i, ErrIllegalMove)
	}

	c, _ := g.Piles[i].Pop()
	g.Discarded++
	g.undo = &UndoRecord{Kind: MoveDiscard, From: i, To: -1, Card: c}

	out.Cards = []Card{c}
	out.Changed = true
	return g.finish(out), nil
}

// DiscardAll removes every currently discardable card in one step. The
// discardable set is computed once before anything is removed. Bulk discards
// are not undoable and clear any held undo record.
func (g *Game) DiscardAll() Outcome {
	out := Outcome{Action: ActDiscardAll, Pile: -1, Target: -1, Status: g.status}
	targets := g.DiscardableCards()
	if len(targets) == 0 {
		return out
	}
	for _, d := range targets {
		c, _ := g.Piles[d.Pile].Pop()
		g.Discarded++
		out.Cards = append(out.Cards, c)
	}
	g.undo = nil
	out.Changed = true
	return g.finish(out)
}

// TryMoveToEmpty moves pile i's top card onto the lowest-indexed empty pile.
// Any top card may move regardless of discardability. Invalid indexes, an
// empty source or a full tableau make it a silent no-op.
func (g *Game) TryMoveToEmpty(i int) Outcome {
	out := Outcome{Action: ActMoveToEmpty, Pile: i, Target: -1, Status: g.status}
	if !g.canMoveFrom(i) {
		return out
	}
	to := g.firstEmptyPile()
	c, _ := g.Piles[i].Pop()
	g.Piles[to].Push(c)
	g.undo = &UndoRecord{Kind: MoveRelocate, From: i, To: to, Card: c}

	out.Target = to
	out.Cards = []Card{c}
	out.Changed = true
	return g.finish(out)
}

// Dispatch is the "click a card" action: discard when legal, otherwise move
// to an empty pile when possible, otherwise nothing. Discard wins when both
// are legal.
func (g *Game) Dispatch(i int) (Outcome, error) {
	if !validPile(i) {
		return Outcome{Action: ActDiscard, Pile: i, Target: -1, Status: g.status},
			fmt.Errorf("dispatch pile %d: %w", i, ErrInvalidIndex)
	}
	if g.IsDiscardable(i) {
		return g.DiscardCard(i)
	}
	return g.TryMoveToEmpty(i), nil
}

// Undo reverses the last discard or relocate. Without a record it is a
// no-op. A relocate is only reversed if the moved card is still on top of
// its destination; otherwise the record is dropped and ErrStaleUndo is
// returned. A successful undo clears the record and reopens a finished game.
func (g *Game) Undo() (Outcome, error) {
	out := Outcome{Action: ActUndo, Pile: -1, Target: -1, Status: g.status}
	rec := g.undo
	if rec == nil {
		return out, nil
	}
	g.undo = nil

	switch rec.Kind {
	case MoveDiscard:
		if !validPile(rec.From) || g.Discarded == 0 {
			return out, fmt.Errorf("undo discard from pile %d: %w", rec.From, ErrStaleUndo)
		}
		g.Piles[rec.From].Push(rec.Card)
		g.Discarded--
		out.Pile = rec.From

	case MoveRelocate:
		if !validPile(rec.From) || !validPile(rec.To) {
			return out, fmt.Errorf("undo move %d->%d: %w", rec.From, rec.To, ErrStaleUndo)
		}
		top, ok := g.Piles[rec.To].Peek()
		if !ok || !top.Same(rec.Card) {
			return out, fmt.Errorf("undo move %d->%d: %v no longer on top: %w", rec.From, rec.To, rec.Card, ErrStaleUndo)
		}
		g.Piles[rec.To].Pop()
		g.Piles[rec.From].Push(rec.Card)
		out.Pile = rec.To
		out.Target = rec.From

	default:
		return out, fmt.Errorf("undo: unknown move kind %d: %w", rec.Kind, ErrStaleUndo)
	}

	g.status = StatusInProgress
	out.Cards = []Card{rec.Card}
	out.Changed = true
	out.Status = g.status
	return out, nil
}
