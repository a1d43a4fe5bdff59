// Package eval ranks poker hands. Given 5-7 cards it finds the best
// 5-card hand by enumerating every 5-card combination and keeping the
// highest packed rank. Ranks from different hands compare directly with
// <, >, ==: the category occupies the high bits and the tiebreak values
// (rank groups descending, then kickers) occupy the low nibbles.
package eval

import (
	"fmt"
	"sort"

	"github.com/cardroomhq/cardroom/internal/deck"
)

// Category is the class of a 5-card poker hand, weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
	RoyalFlush
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "high card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two pair"
	case Trips:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case Quads:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	case RoyalFlush:
		return "royal flush"
	default:
		return "unknown"
	}
}

// Rank is a totally ordered hand strength. Layout, high to low:
// 4 bits of category, then five 4-bit tiebreak values (card ranks 2-14,
// most significant first). Hands built from identical card multisets
// always produce equal Ranks regardless of input order.
type Rank uint32

// Category extracts the hand category from a rank.
func (r Rank) Category() Category {
	return Category(r >> 20)
}

// String renders the rank's category.
func (r Rank) String() string {
	return r.Category().String()
}

func packRank(cat Category, tiebreaks ...int) Rank {
	r := Rank(cat) << 20
	for i, tb := range tiebreaks {
		if i >= 5 {
			break
		}
		r |= Rank(tb) << uint(16-4*i)
	}
	return r
}

// Evaluate returns the best 5-card rank reachable from the given cards.
// It requires between 5 and 7 cards (2 hole + up to 5 community).
func Evaluate(cards []deck.Card) (Rank, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return 0, fmt.Errorf("eval: need 5-7 cards, got %d", len(cards))
	}

	best := Rank(0)
	combo := [5]deck.Card{}
	n := len(cards)

	// C(7,5)=21 at most, so brute enumeration is fine.
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						combo[0], combo[1], combo[2], combo[3], combo[4] =
							cards[a], cards[b], cards[c], cards[d], cards[e]
						if r := evaluate5(combo); r > best {
							best = r
						}
					}
				}
			}
		}
	}

	return best, nil
}

// evaluate5 scores exactly five cards.
func evaluate5(cards [5]deck.Card) Rank {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = int(c.Rank)
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh, isStraight := straightHighCard(ranks)

	switch {
	case flush && isStraight && straightHigh == int(deck.Ace):
		return packRank(RoyalFlush)
	case flush && isStraight:
		return packRank(StraightFlush, straightHigh)
	}

	// Group ranks by multiplicity: counts sorted by (count desc, rank desc).
	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}
	type group struct{ rank, count int }
	groups := make([]group, 0, 5)
	for r, c := range counts {
		groups = append(groups, group{r, c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	tiebreaks := make([]int, 0, 5)
	for _, g := range groups {
		tiebreaks = append(tiebreaks, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return packRank(Quads, tiebreaks...)
	case groups[0].count == 3 && groups[1].count == 2:
		return packRank(FullHouse, tiebreaks...)
	case flush:
		return packRank(Flush, ranks...)
	case isStraight:
		return packRank(Straight, straightHigh)
	case groups[0].count == 3:
		return packRank(Trips, tiebreaks...)
	case groups[0].count == 2 && groups[1].count == 2:
		return packRank(TwoPair, tiebreaks...)
	case groups[0].count == 2:
		return packRank(Pair, tiebreaks...)
	default:
		return packRank(HighCard, ranks...)
	}
}

// straightHighCard reports whether the descending ranks form a straight
// and, if so, its high card. The wheel (A-5-4-3-2) counts as a 5-high
// straight, ranking below the 6-high straight.
func straightHighCard(desc []int) (int, bool) {
	run := true
	for i := 1; i < 5; i++ {
		if desc[i] != desc[i-1]-1 {
			run = false
			break
		}
	}
	if run {
		return desc[0], true
	}

	// Ace-low: A,5,4,3,2 sorted descending.
	if desc[0] == int(deck.Ace) && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
		return 5, true
	}
	return 0, false
}
