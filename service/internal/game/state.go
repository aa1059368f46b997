package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/acesup/engine"
	"github.com/jason-s-yu/acesup/engine/stripjack"
)

// CardView is a card as the client renders it.
type CardView struct {
	Rank   string `json:"rank"`
	Suit   string `json:"suit"`
	Value  int    `json:"value"`
	Image  string `json:"image"`
	FaceUp bool   `json:"faceUp"`
}

func viewCard(c engine.Card) CardView {
	return CardView{
		Rank:   c.Rank.String(),
		Suit:   c.Suit.Name(),
		Value:  c.Value(),
		Image:  c.ImageRef(),
		FaceUp: c.FaceUp,
	}
}

func viewCards(cards []engine.Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = viewCard(c)
	}
	return out
}

// NoticeView is the visible content of one notice slot.
type NoticeView struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// DwellView is the hover-to-click configuration and live progress.
type DwellView struct {
	Enabled    bool           `json:"enabled"`
	DurationMs int64          `json:"durationMs"`
	Progress   map[string]int `json:"progress"` // only targets with progress > 0
	DelayError string         `json:"delayError,omitempty"`
}

// AcesUpState is the full Aces Up table snapshot.
type AcesUpState struct {
	TableID        uuid.UUID                   `json:"tableId"`
	GameID         uuid.UUID                   `json:"gameId"`
	Piles          [engine.NumPiles][]CardView `json:"piles"`
	StockCount     int                         `json:"stockCount"`
	Discarded      int                         `json:"discarded"`
	Status         engine.Status               `json:"status"`
	Discardable    [engine.NumPiles]bool       `json:"discardable"`
	CanUndo        bool                        `json:"canUndo"`
	CanDeal        bool                        `json:"canDeal"`
	CanDiscard     bool                        `json:"canDiscard"`
	CanMoveToEmpty bool                        `json:"canMoveToEmpty"`
	DealPolicy     string                      `json:"dealPolicy"`
	Message        string                      `json:"message,omitempty"` // "You Win!" or "Game Over" once ended
	Toast          NoticeView                  `json:"toast"`
	StatusNotice   NoticeView                  `json:"statusNotice"`
	Dwell          DwellView                   `json:"dwell"`
	ConfirmNewGame bool                        `json:"confirmNewGame"`
	RulesOpen      bool                        `json:"rulesOpen"`
	Background     int                         `json:"background"`
	StartedAt      time.Time                   `json:"startedAt"`
}

// StripJackState is the full Strip Jack Naked table snapshot.
type StripJackState struct {
	TableID    uuid.UUID              `json:"tableId"`
	GameID     uuid.UUID              `json:"gameId"`
	Players    []stripjack.PlayerView `json:"players"`
	PileTop    *CardView              `json:"pileTop,omitempty"`
	PileCount  int                    `json:"pileCount"`
	Current    int                    `json:"current"`
	Challenger int                    `json:"challenger"`
	Owed       int                    `json:"owed"`
	Status     stripjack.Status       `json:"status"`
	Winner     string                 `json:"winner,omitempty"`
	Turns      int                    `json:"turns"`
	Toast      NoticeView             `json:"toast"`
	Dwell      DwellView              `json:"dwell"`
}
