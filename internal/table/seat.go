package table

import "github.com/cardroomhq/cardroom/internal/deck"

// SeatStatus represents a seated player's standing within the current hand.
type SeatStatus int

const (
	SeatActive SeatStatus = iota
	SeatFolded
	SeatAllIn
	SeatSittingOut
)

func (s SeatStatus) String() string {
	switch s {
	case SeatActive:
		return "active"
	case SeatFolded:
		return "folded"
	case SeatAllIn:
		return "all-in"
	case SeatSittingOut:
		return "sitting-out"
	default:
		return "unknown"
	}
}

// Seat holds one seated player. Owned exclusively by the table actor;
// Chips is the only field that survives a hand.
type Seat struct {
	Index     int
	PlayerID  string
	Name      string
	Chips     int
	HoleCards []deck.Card
	Bet       int // chips committed this betting round
	TotalBet  int // chips committed this hand, needed for side-pot math
	Status    SeatStatus
	HasActed  bool
}

// inHand reports whether the seat still holds a claim on the pot.
func (s *Seat) inHand() bool {
	return s.Status == SeatActive || s.Status == SeatAllIn
}

// canAct reports whether the seat can still take betting actions.
func (s *Seat) canAct() bool {
	return s.Status == SeatActive
}

// commit moves up to n chips from the stack into the current bet,
// converting an over-commit into all-in. It returns the amount actually
// committed.
func (s *Seat) commit(n int) int {
	if n >= s.Chips {
		n = s.Chips
		s.Status = SeatAllIn
	}
	s.Chips -= n
	s.Bet += n
	s.TotalBet += n
	return n
}
