package engine

// Snapshot is a read-only copy of the table for rendering.
type Snapshot struct {
	Piles          [NumPiles][]Card `json:"piles"`
	StockCount     int              `json:"stockCount"`
	Discarded      int              `json:"discarded"`
	Status         Status           `json:"status"`
	Discardable    [NumPiles]bool   `json:"discardable"`
	CanUndo        bool             `json:"canUndo"`
	CanDeal        bool             `json:"canDeal"`
	CanDiscard     bool             `json:"canDiscard"`
	CanMoveToEmpty bool             `json:"canMoveToEmpty"`
}

// Snapshot copies the current table. Later mutations do not affect it.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		StockCount:     len(g.Stock),
		Discarded:      g.Discarded,
		Status:         g.status,
		CanUndo:        g.CanUndo(),
		CanDeal:        g.CanDeal(),
		CanMoveToEmpty: g.CanMoveToEmpty(),
	}
	for i := range g.Piles {
		s.Piles[i] = []Card(g.Piles[i].Clone())
		if s.Piles[i] == nil {
			s.Piles[i] = []Card{}
		}
	}
	for _, d := range g.DiscardableCards() {
		s.Discardable[d.Pile] = true
		s.CanDiscard = true
	}
	return s
}
