package engine

// Pile is a last-in-first-out stack of cards. The top card is the last element.
type Pile []Card

// Len returns the number of cards in the pile.
func (p Pile) Len() int { return len(p) }

// Empty reports whether the pile holds no cards.
func (p Pile) Empty() bool { return len(p) == 0 }

// Peek returns the top card without removing it.
func (p Pile) Peek() (Card, bool) {
	if len(p) == 0 {
		return Card{}, false
	}
	return p[len(p)-1], true
}

// Push places c on top of the pile.
func (p *Pile) Push(c Card) { *p = append(*p, c) }

// Pop removes and returns the top card.
func (p *Pile) Pop() (Card, bool) {
	n := len(*p)
	if n == 0 {
		return Card{}, false
	}
	c := (*p)[n-1]
	*p = (*p)[:n-1]
	return c, true
}

// Clone returns an independent copy of the pile.
func (p Pile) Clone() Pile {
	if p == nil {
		return nil
	}
	out := make(Pile, len(p))
	copy(out, p)
	return out
}
