package table

import (
	"github.com/cardroomhq/cardroom/internal/deck"
)

// SeatView is the externally visible state of one seat.
type SeatView struct {
	Index        int         `json:"index"`
	PlayerID     string      `json:"playerId"`
	Name         string      `json:"name"`
	Chips        int         `json:"chips"`
	Bet          int         `json:"bet"`
	TotalBet     int         `json:"totalBet"`
	Status       string      `json:"status"`
	HasHoleCards bool        `json:"hasHoleCards"`
	HoleCards    []deck.Card `json:"holeCards,omitempty"`
}

// PotView is the externally visible state of one pot.
type PotView struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// Snapshot is a complete, self-contained view of table state, built by
// the table actor. It starts unredacted (every seat's hole cards
// included); RedactFor produces the per-recipient view that actually
// goes on the wire.
type Snapshot struct {
	TableID      string      `json:"tableId"`
	HandID       string      `json:"handId,omitempty"`
	HandNumber   int         `json:"handNumber,omitempty"`
	Status       string      `json:"status"`
	Street       string      `json:"street,omitempty"`
	Board        []deck.Card `json:"board,omitempty"`
	Pot          int         `json:"pot"`
	Pots         []PotView   `json:"pots,omitempty"`
	CurrentBet   int         `json:"currentBet"`
	MinRaise     int         `json:"minRaise"`
	Dealer       int         `json:"dealer"`
	TurnSeat     int         `json:"turnSeat"`
	TurnTimeLeft float64     `json:"turnTimeLeft,omitempty"` // seconds
	Revealed     bool        `json:"revealed"`
	Seats        []SeatView  `json:"seats"`
}

// RedactFor returns a copy of the snapshot as the given player is allowed
// to see it: their own hole cards in clear, everyone else's hidden unless
// the hand reached showdown (folded seats stay hidden even then).
// Redaction is recomputed per recipient on every publish.
func (s Snapshot) RedactFor(playerID string) Snapshot {
	out := s
	out.Seats = make([]SeatView, len(s.Seats))
	for i, sv := range s.Seats {
		if sv.PlayerID != playerID && !(s.Revealed && sv.Status != SeatFolded.String()) {
			sv.HoleCards = nil
		} else if sv.HoleCards != nil {
			sv.HoleCards = append([]deck.Card{}, sv.HoleCards...)
		}
		out.Seats[i] = sv
	}
	out.Board = append([]deck.Card{}, s.Board...)
	return out
}
