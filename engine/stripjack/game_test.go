package stripjack

import (
	"errors"
	"testing"

	"github.com/jason-s-yu/acesup/engine"
)

func c(s engine.Suit, r engine.Rank) engine.Card { return engine.NewCard(s, r) }

func loaded(t *testing.T, hands ...[]engine.Card) *Game {
	t.Helper()
	names := []string{"Ann", "Bob", "Cy", "Di"}[:len(hands)]
	g, err := New(engine.NewDeck(1), names)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.Load(hands); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

func mustPlay(t *testing.T, g *Game) Turn {
	t.Helper()
	turn, err := g.PlayCard()
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	return turn
}

func TestPenaltyValues(t *testing.T) {
	want := map[engine.Rank]int{
		engine.RankJack:  1,
		engine.RankQueen: 2,
		engine.RankKing:  3,
		engine.RankAce:   4,
		engine.RankTen:   0,
		engine.RankTwo:   0,
	}
	for r, n := range want {
		if got := Penalty(r); got != n {
			t.Errorf("Penalty(%v) = %d, want %d", r, got, n)
		}
	}
}

func TestNewPlayerCount(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		names := make([]string, n)
		if _, err := New(engine.NewDeck(1), names); !errors.Is(err, engine.ErrInvalidArgument) {
			t.Errorf("New with %d players error = %v, want ErrInvalidArgument", n, err)
		}
	}
}

func TestStartDealsWholeDeck(t *testing.T) {
	g, err := New(engine.NewDeck(3), []string{"Ann", "Bob", "Cy"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.PlayCard(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("PlayCard before Start error = %v, want ErrNotStarted", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sizes := []int{18, 17, 17}
	for i, p := range g.Players {
		if len(p.Hand) != sizes[i] {
			t.Errorf("player %d holds %d cards, want %d", i, len(p.Hand), sizes[i])
		}
	}
	if g.Status() != StatusInProgress || g.Current != 0 || g.CardCount() != engine.DeckSize {
		t.Errorf("status=%v current=%d cards=%d", g.Status(), g.Current, g.CardCount())
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	g, _ := New(engine.NewDeck(1), []string{"Ann", "Bob"})
	dup := [][]engine.Card{
		{c(engine.SuitHearts, engine.RankTwo)},
		{c(engine.SuitHearts, engine.RankTwo)},
	}
	if err := g.Load(dup); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("Load duplicate error = %v, want ErrInvalidArgument", err)
	}
	if err := g.Load(dup[:1]); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("Load short error = %v, want ErrInvalidArgument", err)
	}
}

func TestNumberCardsAlternate(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitHearts, engine.RankTwo), c(engine.SuitHearts, engine.RankThree)},
		[]engine.Card{c(engine.SuitHearts, engine.RankFour), c(engine.SuitHearts, engine.RankFive)},
	)
	turn := mustPlay(t, g)
	if turn.Player != 0 || g.Current != 1 || turn.Collected {
		t.Fatalf("turn = %+v, current = %d", turn, g.Current)
	}
	turn = mustPlay(t, g)
	if turn.Player != 1 || g.Current != 0 || turn.PileSize != 2 {
		t.Errorf("turn = %+v, current = %d", turn, g.Current)
	}
}

func TestJackPaidCollects(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitSpades, engine.RankJack), c(engine.SuitHearts, engine.RankTwo)},
		[]engine.Card{c(engine.SuitHearts, engine.RankThree), c(engine.SuitHearts, engine.RankFour)},
	)
	turn := mustPlay(t, g)
	if turn.Penalty != 1 || g.Challenger != 0 || g.Current != 1 {
		t.Fatalf("after jack: turn=%+v challenger=%d current=%d", turn, g.Challenger, g.Current)
	}

	turn = mustPlay(t, g)
	if !turn.Collected || turn.Collector != 0 || turn.PileSize != 2 {
		t.Fatalf("after payment: %+v", turn)
	}
	want := []engine.Card{
		c(engine.SuitHearts, engine.RankTwo),
		c(engine.SuitSpades, engine.RankJack),
		c(engine.SuitHearts, engine.RankThree),
	}
	hand := g.Players[0].Hand
	if len(hand) != len(want) {
		t.Fatalf("collector hand = %v, want %v", hand, want)
	}
	for i := range want {
		if !hand[i].Same(want[i]) || hand[i].FaceUp {
			t.Errorf("hand[%d] = %v (faceUp=%v), want %v face down", i, hand[i], hand[i].FaceUp, want[i])
		}
	}
	if g.Current != 0 || g.Challenger != -1 || len(g.Pile) != 0 {
		t.Errorf("current=%d challenger=%d pile=%d", g.Current, g.Challenger, len(g.Pile))
	}
}

func TestFaceCardPassesPenalty(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitSpades, engine.RankQueen), c(engine.SuitHearts, engine.RankTwo)},
		[]engine.Card{c(engine.SuitHearts, engine.RankThree), c(engine.SuitDiamonds, engine.RankKing), c(engine.SuitHearts, engine.RankFour)},
	)
	mustPlay(t, g) // Q♠
	turn := mustPlay(t, g)
	if turn.Penalty != 1 || g.Current != 1 {
		t.Fatalf("after first payment: turn=%+v current=%d", turn, g.Current)
	}
	turn = mustPlay(t, g) // K♦
	if turn.Penalty != 3 || g.Challenger != 1 || g.Current != 0 {
		t.Errorf("after king: turn=%+v challenger=%d current=%d", turn, g.Challenger, g.Current)
	}
}

// TestPayerRunsOut verifies the challenger collects when the payer empties
// their hand, and that a card-less challenger is not eliminated.
func TestPayerRunsOut(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitSpades, engine.RankAce)},
		[]engine.Card{c(engine.SuitHearts, engine.RankTwo), c(engine.SuitHearts, engine.RankThree)},
	)
	turn := mustPlay(t, g)
	if g.Players[0].Out || len(turn.Eliminated) != 0 {
		t.Fatalf("challenger eliminated while owed the pile: %+v", turn)
	}
	mustPlay(t, g)
	turn = mustPlay(t, g)
	if !turn.Collected || turn.Collector != 0 {
		t.Errorf("pile not collected by challenger: %+v", turn)
	}
	if len(turn.Eliminated) != 1 || turn.Eliminated[0] != 1 {
		t.Errorf("Eliminated = %v, want [1]", turn.Eliminated)
	}
	if !turn.Ended || turn.Winner != 0 || g.Status() != StatusFinished {
		t.Errorf("turn=%+v status=%v, want ended with winner 0", turn, g.Status())
	}
	if len(g.Players[0].Hand) != 3 {
		t.Errorf("winner holds %d cards, want 3", len(g.Players[0].Hand))
	}
	if _, err := g.PlayCard(); !errors.Is(err, ErrGameOver) {
		t.Errorf("PlayCard after end error = %v, want ErrGameOver", err)
	}
}

func TestLastNumberCardEliminates(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitHearts, engine.RankTwo)},
		[]engine.Card{c(engine.SuitHearts, engine.RankThree), c(engine.SuitHearts, engine.RankFour)},
	)
	turn := mustPlay(t, g)
	if !turn.Ended || turn.Winner != 1 {
		t.Fatalf("turn = %+v, want player 1 to win", turn)
	}
	if len(g.Players[1].Hand) != 3 || len(g.Pile) != 0 {
		t.Errorf("winner hand=%d pile=%d, want 3 and 0", len(g.Players[1].Hand), len(g.Pile))
	}
}

func TestEliminatedPlayersAreSkipped(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitHearts, engine.RankTwo)},
		[]engine.Card{c(engine.SuitHearts, engine.RankThree), c(engine.SuitHearts, engine.RankFive)},
		[]engine.Card{c(engine.SuitHearts, engine.RankFour), c(engine.SuitHearts, engine.RankSix)},
	)
	turn := mustPlay(t, g)
	if len(turn.Eliminated) != 1 || turn.Eliminated[0] != 0 || turn.Ended {
		t.Fatalf("turn = %+v, want player 0 out and play to continue", turn)
	}
	mustPlay(t, g)
	mustPlay(t, g)
	if g.Current != 1 {
		t.Errorf("Current = %d, want 1 after skipping player 0", g.Current)
	}
}

// TestRandomGamesConserveCards plays seeded games and checks that no card
// is lost or duplicated.
func TestRandomGamesConserveCards(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		players := int(seed%3) + 2
		g, err := New(engine.NewDeck(seed), []string{"a", "b", "c", "d"}[:players])
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := g.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		for step := 0; step < 5000 && g.Status() == StatusInProgress; step++ {
			if _, err := g.PlayCard(); err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
			if n := g.CardCount(); n != engine.DeckSize {
				t.Fatalf("seed %d step %d: %d cards in play", seed, step, n)
			}
			if len(g.Players[g.Current].Hand) == 0 && g.Status() == StatusInProgress {
				t.Fatalf("seed %d step %d: current player %d has no cards", seed, step, g.Current)
			}
		}
		if g.Status() == StatusFinished && len(g.Players[g.Winner].Hand) != engine.DeckSize {
			t.Errorf("seed %d: winner holds %d cards", seed, len(g.Players[g.Winner].Hand))
		}
	}
}

func TestSnapshot(t *testing.T) {
	g := loaded(t,
		[]engine.Card{c(engine.SuitSpades, engine.RankKing), c(engine.SuitHearts, engine.RankTwo)},
		[]engine.Card{c(engine.SuitHearts, engine.RankThree)},
	)
	mustPlay(t, g)
	s := g.Snapshot()
	if s.PileCount != 1 || s.PileTop == nil || !s.PileTop.Same(c(engine.SuitSpades, engine.RankKing)) {
		t.Errorf("pile in snapshot = %d %v", s.PileCount, s.PileTop)
	}
	if s.Owed != 3 || s.Challenger != 0 || s.Current != 1 || len(s.Players) != 2 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Players[0].Cards != 1 || s.Players[1].Cards != 1 {
		t.Errorf("player counts = %+v", s.Players)
	}
}
