package deck

import (
	"errors"
	"testing"

	"github.com/cardroomhq/cardroom/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	t.Parallel()

	d := New()
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}

	cards, err := d.Deal(52)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}

	seen := make(map[Card]bool, 52)
	for _, c := range cards {
		if seen[c] {
			t.Errorf("duplicate card %v", c)
		}
		seen[c] = true
	}
}

func TestShufflePreservesCardSet(t *testing.T) {
	t.Parallel()

	d := New()
	d.Shuffle(randutil.New(42))

	cards, err := d.Deal(52)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}

	seen := make(map[Card]bool, 52)
	for _, c := range cards {
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Errorf("shuffle lost cards: %d unique", len(seen))
	}
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.Shuffle(randutil.New(7))
	b.Shuffle(randutil.New(7))

	ca, _ := a.Deal(52)
	cb, _ := b.Deal(52)
	for i := range ca {
		if ca[i] != cb[i] {
			t.Fatalf("card %d differs: %v vs %v", i, ca[i], cb[i])
		}
	}
}

func TestDealUnderflow(t *testing.T) {
	t.Parallel()

	d := New()
	if _, err := d.Deal(53); !errors.Is(err, ErrInsufficientCards) {
		t.Errorf("expected ErrInsufficientCards, got %v", err)
	}

	// Underflow must not consume any cards.
	if d.Remaining() != 52 {
		t.Errorf("failed deal consumed cards: %d remaining", d.Remaining())
	}

	if _, err := d.Deal(50); err != nil {
		t.Fatalf("deal 50: %v", err)
	}
	if _, err := d.Deal(3); !errors.Is(err, ErrInsufficientCards) {
		t.Errorf("expected ErrInsufficientCards near empty, got %v", err)
	}
}
