package engine

import "fmt"

// Suit is one of the four French suits.
type Suit uint8

const (
	SuitHearts Suit = iota
	SuitDiamonds
	SuitClubs
	SuitSpades
)

// NumSuits is the number of suits in a standard deck.
const NumSuits = 4

var suitNames = [NumSuits]string{"Heart", "Diamond", "Club", "Spade"}
var suitSymbols = [NumSuits]string{"♥", "♦", "♣", "♠"}

// Name returns the singular suit name used in image keys ("Heart").
func (s Suit) Name() string {
	if int(s) >= NumSuits {
		return "Unknown"
	}
	return suitNames[s]
}

// String returns the suit symbol.
func (s Suit) String() string {
	if int(s) >= NumSuits {
		return "?"
	}
	return suitSymbols[s]
}

// Rank is a card rank ordered from Two up to Ace.
type Rank uint8

const (
	RankTwo Rank = iota
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
)

// NumRanks is the number of ranks per suit.
const NumRanks = 13

var rankNames = [NumRanks]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// String returns the short rank label ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	if int(r) >= NumRanks {
		return "?"
	}
	return rankNames[r]
}

// Value returns the comparison value of the rank: 2..10, J=11, Q=12, K=13, A=14.
func (r Rank) Value() int { return int(r) + 2 }

// IsFace reports whether the rank is a court card or an Ace.
func (r Rank) IsFace() bool { return r >= RankJack }

// Card is a playing card. Suit and Rank never change once the card is built;
// FaceUp is display state only and never takes part in rule checks.
type Card struct {
	Suit   Suit `json:"suit"`
	Rank   Rank `json:"rank"`
	FaceUp bool `json:"faceUp"`
}

// NewCard constructs a face-down card.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value is the rank value, Ace high (14).
func (c Card) Value() int { return c.Rank.Value() }

// Same reports whether c and o are the same physical card, ignoring FaceUp.
func (c Card) Same(o Card) bool { return c.Suit == o.Suit && c.Rank == o.Rank }

// Key returns a compact identity usable as a map key.
func (c Card) Key() uint8 { return uint8(c.Suit)<<4 | uint8(c.Rank) }

// ImageRef is the display key of the card face, e.g. "/cards/Cards-10-Spade.svg".
func (c Card) ImageRef() string {
	return fmt.Sprintf("/cards/Cards-%s-%s.svg", c.Rank, c.Suit.Name())
}

// String renders the card as rank followed by suit symbol, e.g. "10♠".
func (c Card) String() string { return c.Rank.String() + c.Suit.String() }
