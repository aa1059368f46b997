package engine

// checkGameEnd ends the game once the stock is exhausted and no discard or
// move-to-empty remains. The game is won only when each of the four piles
// holds a single Ace. It returns true when this call ended the game.
func (g *Game) checkGameEnd() bool {
	if g.status != StatusInProgress {
		return false
	}
	if len(g.Stock) > 0 || g.HasMoves() {
		return false
	}
	if g.allAces() {
		g.status = StatusWon
	} else {
		g.status = StatusLost
	}
	return true
}

// allAces reports whether every pile is exactly one Ace.
func (g *Game) allAces() bool {
	for i := range g.Piles {
		if g.Piles[i].Len() != 1 {
			return false
		}
		if top, _ := g.Piles[i].Peek(); top.Rank != RankAce {
			return false
		}
	}
	return true
}

// finish re-evaluates the terminal status after a mutating operation and
// stamps the outcome.
func (g *Game) finish(out Outcome) Outcome {
	out.Ended = g.checkGameEnd()
	out.Status = g.status
	return out
}
