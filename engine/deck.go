package engine

import (
	"fmt"
	"math/rand/v2"
)

// DeckSize is the number of cards in a standard French deck.
const DeckSize = NumSuits * NumRanks

// CanonicalCards returns the 52 cards in suit-major, rank-minor order.
func CanonicalCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for s := Suit(0); s < NumSuits; s++ {
		for r := Rank(0); r < NumRanks; r++ {
			cards = append(cards, NewCard(s, r))
		}
	}
	return cards
}

// Deck owns the canonical card set and hands out shuffled deals.
// Dealing is destructive: a dealt card is gone until the next Reset.
// A Deck is not safe for concurrent use.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck returns an unshuffled deck driven by a PCG source seeded with seed.
func NewDeck(seed uint64) *Deck {
	return NewDeckWithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewDeckWithRand returns an unshuffled deck using rng for every shuffle.
func NewDeckWithRand(rng *rand.Rand) *Deck {
	return &Deck{cards: CanonicalCards(), rng: rng}
}

// Reset rebuilds all 52 cards in canonical order and shuffles them.
func (d *Deck) Reset() {
	d.cards = CanonicalCards()
	d.Shuffle()
}

// Shuffle applies a uniform random permutation (Fisher-Yates) to the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int { return len(d.cards) }

// Deal removes and returns the first n cards in order.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n <= 0 {
		return nil, fmt.Errorf("deal %d cards: count must be greater than zero: %w", n, ErrInvalidArgument)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d cards: only %d remaining: %w", n, len(d.cards), ErrInvalidArgument)
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// DealToPlayers resets and shuffles the deck, then deals every card
// round-robin into playerCount hands starting with hand 0.
func (d *Deck) DealToPlayers(playerCount int) ([][]Card, error) {
	if playerCount <= 0 {
		return nil, fmt.Errorf("deal to %d players: player count must be greater than zero: %w", playerCount, ErrInvalidArgument)
	}
	d.Reset()

	hands := make([][]Card, playerCount)
	for i := range hands {
		hands[i] = make([]Card, 0, DeckSize/playerCount+1)
	}
	for i, c := range d.cards {
		hands[i%playerCount] = append(hands[i%playerCount], c)
	}
	d.cards = d.cards[:0]
	return hands, nil
}
