package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrInsufficientCards is returned when a deal asks for more cards than the
// deck holds. With 52 cards and at most 9 seats this cannot happen during a
// well-formed hand, so callers treat it as an invariant violation rather
// than a recoverable error.
var ErrInsufficientCards = errors.New("deck: insufficient cards")

// Deck represents an ordered sequence of playing cards. Dealing pops from
// the end of the slice.
type Deck struct {
	cards []Card
}

// New creates a full 52-card deck in canonical order (unshuffled).
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	return d
}

// Shuffle performs a Fisher-Yates shuffle from the end of the deck using
// the provided RNG. The RNG is passed in so tests can make shuffles
// deterministic; production callers seed one independently per shuffle.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns n cards from the top of the deck.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrInsufficientCards
	}
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		cards[i] = d.cards[len(d.cards)-1]
		d.cards = d.cards[:len(d.cards)-1]
	}
	return cards, nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
