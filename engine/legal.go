package engine

// Discard names a pile whose top card may be discarded.
type Discard struct {
	Pile int
	Card Card
}

// DiscardableCards returns, in pile order, every top card that shares its
// suit with at least one other top card and is lower than the highest top
// card of that suit. Aces can never be discarded. The result is computed
// from the current tableau on every call.
func (g *Game) DiscardableCards() []Discard {
	var (
		count [NumSuits]int
		best  [NumSuits]int
	)
	for i := range g.Piles {
		top, ok := g.Piles[i].Peek()
		if !ok {
			continue
		}
		count[top.Suit]++
		if v := top.Value(); v > best[top.Suit] {
			best[top.Suit] = v
		}
	}

	var out []Discard
	for i := range g.Piles {
		top, ok := g.Piles[i].Peek()
		if !ok {
			continue
		}
		if count[top.Suit] > 1 && top.Value() < best[top.Suit] {
			out = append(out, Discard{Pile: i, Card: top})
		}
	}
	return out
}

// IsDiscardable reports whether pile i's top card is currently discardable.
func (g *Game) IsDiscardable(i int) bool {
	for _, d := range g.DiscardableCards() {
		if d.Pile == i {
			return true
		}
	}
	return false
}

// CanDiscard reports whether any top card is discardable.
func (g *Game) CanDiscard() bool { return len(g.DiscardableCards()) > 0 }

// CanMoveToEmpty reports whether at least one pile is empty and at least one
// pile holds cards.
func (g *Game) CanMoveToEmpty() bool {
	empty, occupied := false, false
	for i := range g.Piles {
		if g.Piles[i].Empty() {
			empty = true
		} else {
			occupied = true
		}
	}
	return empty && occupied
}

// canMoveFrom reports whether pile i can be relocated to an empty pile.
func (g *Game) canMoveFrom(i int) bool {
	return validPile(i) && !g.Piles[i].Empty() && g.firstEmptyPile() >= 0
}

// HasMoves reports whether a discard or a move-to-empty is available.
func (g *Game) HasMoves() bool { return g.CanDiscard() || g.CanMoveToEmpty() }

// CanDeal reports whether DealNext would deal. Under DealWhenStuck a deal is
// also refused while any move remains.
func (g *Game) CanDeal() bool {
	if g.status != StatusInProgress || len(g.Stock) < NumPiles {
		return false
	}
	if g.Rules.DealPolicy == DealWhenStuck && g.HasMoves() {
		return false
	}
	return true
}

// CanUndo reports whether an undo record is held.
func (g *Game) CanUndo() bool { return g.undo != nil }

// firstEmptyPile returns the lowest index of an empty pile, or -1.
func (g *Game) firstEmptyPile() int {
	for i := range g.Piles {
		if g.Piles[i].Empty() {
			return i
		}
	}
	return -1
}
