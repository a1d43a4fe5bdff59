package table

import "sort"

// Pot is a main or side pot. Eligible holds the seat indexes of players
// who contributed to this pot level and have not folded, in seat order.
type Pot struct {
	Amount   int
	Eligible []int
}

// buildPots derives the pot structure from scratch out of each seat's
// total commitment. Deriving rather than accumulating means a new all-in
// changing the threshold set within a betting round can never leave a
// stale pot split behind: every call reflects the current commitments.
//
// Each distinct all-in commitment forms a tier; the pot at a tier is
// (tier - previous tier) x (players who contributed at least that much),
// counting folded players' dead money but excluding them from
// eligibility. Chips committed above the highest matched tier form a
// final pot; when only one player contributed there, that pot is their
// uncalled bet and comes straight back to them at resolution.
func buildPots(seats []*Seat) []Pot {
	levels := make([]int, 0, len(seats))
	seen := make(map[int]bool)
	for _, s := range seats {
		if s.Status == SeatAllIn && s.TotalBet > 0 && !seen[s.TotalBet] {
			levels = append(levels, s.TotalBet)
			seen[s.TotalBet] = true
		}
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	addTier := func(cap int) {
		pot := Pot{}
		for _, s := range seats {
			contrib := s.TotalBet - prev
			if contrib <= 0 {
				continue
			}
			if cap > 0 && contrib > cap-prev {
				contrib = cap - prev
			}
			pot.Amount += contrib
			if s.inHand() && (cap == 0 || s.TotalBet >= cap) {
				pot.Eligible = append(pot.Eligible, s.Index)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
	}

	for _, level := range levels {
		if level <= prev {
			continue
		}
		addTier(level)
		prev = level
	}
	// Remainder above the highest all-in tier (cap 0 = unbounded).
	overMax := false
	for _, s := range seats {
		if s.TotalBet > prev {
			overMax = true
			break
		}
	}
	if overMax {
		addTier(0)
	}

	if len(pots) == 0 {
		return []Pot{{}}
	}
	return pots
}
