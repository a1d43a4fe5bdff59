package table

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/cardroomhq/cardroom/internal/deck"
	"github.com/cardroomhq/cardroom/internal/eval"
	"github.com/google/uuid"
)

// ActionRecord is one entry in the hand's action log.
type ActionRecord struct {
	PlayerID string
	Street   Street
	Action   Action
	Amount   int
	Source   Source
	At       time.Time
}

// Winner describes one payout at hand end.
type Winner struct {
	PlayerID string
	Seat     int
	Amount   int
	Category string // empty when the hand ended without a showdown
}

// Hand owns the state of a single hand from blinds to payout. It is
// created fresh each hand and only ever touched by the table actor.
type Hand struct {
	ID     string
	Number int

	deck   *deck.Deck
	seats  []*Seat // participants in seat-index order
	Board  []deck.Card
	Street Street

	CurrentBet int
	MinRaise   int
	bigBlind   int

	Dealer     int // seat index
	SmallBlind int
	BigBlind   int
	TurnSeat   int // seat index of the player to act, -1 when none

	Log []ActionRecord

	complete bool
	winners  []Winner
	showdown bool

	// startTotal is the chip sum at hand start, checked after every
	// mutation to catch pot math bugs before they spread. startStacks
	// remembers each stack as of the last ledger-visible state so an
	// aborted hand refunds known amounts instead of guesses.
	startTotal  int
	startStacks map[int]int
}

// newHand builds a hand for the given participants, posts blinds and
// deals hole cards. The dealer is a seat index that must belong to one of
// the participants. The RNG seeds the shuffle and nothing else.
func newHand(number int, seats []*Seat, dealer, smallBlind, bigBlind int, rng *rand.Rand) (*Hand, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("hand needs at least 2 players, got %d", len(seats))
	}

	h := &Hand{
		ID:       uuid.NewString(),
		Number:   number,
		seats:    seats,
		Street:   Preflop,
		MinRaise: bigBlind,
		bigBlind: bigBlind,
		Dealer:   dealer,
		TurnSeat: -1,
	}

	h.startStacks = make(map[int]int, len(seats))
	for _, s := range seats {
		s.Bet = 0
		s.TotalBet = 0
		s.HasActed = false
		s.HoleCards = nil
		s.Status = SeatActive
		h.startTotal += s.Chips
		h.startStacks[s.Index] = s.Chips
	}

	d := deck.New()
	d.Shuffle(rng)
	h.deck = d

	// Heads-up: the dealer posts the small blind and acts first preflop.
	if len(seats) == 2 {
		h.SmallBlind = dealer
		h.BigBlind = h.nextSeatFrom(dealer)
	} else {
		h.SmallBlind = h.nextSeatFrom(dealer)
		h.BigBlind = h.nextSeatFrom(h.SmallBlind)
	}

	h.seatAt(h.SmallBlind).commit(smallBlind)
	h.seatAt(h.BigBlind).commit(bigBlind)
	h.CurrentBet = bigBlind

	for _, s := range seats {
		cards, err := h.deck.Deal(2)
		if err != nil {
			return nil, err
		}
		s.HoleCards = cards
	}

	h.TurnSeat = h.nextActorFrom(h.nextSeatFrom(h.BigBlind))

	// Blinds can put a short stack all-in before anyone acts.
	if h.TurnSeat == -1 || h.countActors() <= 1 && h.allBetsMatched() {
		h.finishBettingRound()
	}

	return h, nil
}

func (h *Hand) seatAt(index int) *Seat {
	for _, s := range h.seats {
		if s.Index == index {
			return s
		}
	}
	return nil
}

// nextSeatFrom returns the next participating seat index clockwise after
// the given one, regardless of status.
func (h *Hand) nextSeatFrom(index int) int {
	pos := 0
	for i, s := range h.seats {
		if s.Index == index {
			pos = i
			break
		}
	}
	return h.seats[(pos+1)%len(h.seats)].Index
}

// nextActorFrom returns the first seat at or after the given index
// (clockwise) that can still act, or -1.
func (h *Hand) nextActorFrom(index int) int {
	start := 0
	for i, s := range h.seats {
		if s.Index >= index {
			start = i
			break
		}
	}
	for i := 0; i < len(h.seats); i++ {
		s := h.seats[(start+i)%len(h.seats)]
		if s.canAct() {
			return s.Index
		}
	}
	return -1
}

func (h *Hand) countActors() int {
	n := 0
	for _, s := range h.seats {
		if s.canAct() {
			n++
		}
	}
	return n
}

func (h *Hand) countInHand() int {
	n := 0
	for _, s := range h.seats {
		if s.inHand() {
			n++
		}
	}
	return n
}

func (h *Hand) allBetsMatched() bool {
	for _, s := range h.seats {
		if s.canAct() && s.Bet != h.CurrentBet {
			return false
		}
	}
	return true
}

// Complete reports whether the hand has been fully resolved.
func (h *Hand) Complete() bool { return h.complete }

// Winners returns the payouts, valid once Complete.
func (h *Hand) Winners() []Winner { return h.winners }

// WentToShowdown reports whether hole cards were revealed at resolution.
func (h *Hand) WentToShowdown() bool { return h.showdown }

// Pots returns the current pot structure derived from commitments.
func (h *Hand) Pots() []Pot { return buildPots(h.seats) }

// PotTotal returns the total chips committed to the hand so far.
func (h *Hand) PotTotal() int {
	total := 0
	for _, s := range h.seats {
		total += s.TotalBet
	}
	return total
}

// apply validates and executes one betting action for the given seat.
// Validation order: turn, status, legality. On rejection the hand state
// is untouched.
func (h *Hand) apply(seat *Seat, action Action, amount int, src Source, now time.Time) error {
	if h.complete {
		return reject(ReasonHandAlreadyAdvanced, "hand %d is complete", h.Number)
	}
	if seat.Index != h.TurnSeat {
		return reject(ReasonNotYourTurn, "turn belongs to seat %d", h.TurnSeat)
	}
	if !seat.canAct() {
		return reject(ReasonNotActive, "seat %d is %s", seat.Index, seat.Status)
	}

	switch action {
	case Fold:
		seat.Status = SeatFolded

	case Check:
		if seat.Bet != h.CurrentBet {
			return reject(ReasonIllegalCheck, "must call %d", h.CurrentBet-seat.Bet)
		}

	case Call:
		seat.commit(h.CurrentBet - seat.Bet)

	case Raise:
		total := amount // resulting total bet for this round
		if total > seat.Chips+seat.Bet {
			return reject(ReasonInsufficientChips, "raise to %d exceeds stack of %d", total, seat.Chips+seat.Bet)
		}
		if total <= h.CurrentBet {
			return reject(ReasonRaiseBelowMinimum, "raise to %d does not exceed current bet %d", total, h.CurrentBet)
		}
		if total < h.CurrentBet+h.MinRaise && total != seat.Chips+seat.Bet {
			// A short all-in raise is allowed; anything else must meet
			// the minimum.
			return reject(ReasonRaiseBelowMinimum, "minimum raise is to %d", h.CurrentBet+h.MinRaise)
		}
		h.MinRaise = total - h.CurrentBet
		h.CurrentBet = total
		seat.commit(total - seat.Bet)
		h.reopenBetting(seat)

	case AllIn:
		seat.commit(seat.Chips)
		if seat.Bet > h.CurrentBet {
			h.MinRaise = seat.Bet - h.CurrentBet
			h.CurrentBet = seat.Bet
			h.reopenBetting(seat)
		}
	}

	seat.HasActed = true
	h.Log = append(h.Log, ActionRecord{
		PlayerID: seat.PlayerID,
		Street:   h.Street,
		Action:   action,
		Amount:   seat.Bet,
		Source:   src,
		At:       now,
	})

	h.afterMutation(seat)
	return nil
}

// forceFold folds a seat out of turn. Used when a seated player leaves
// mid-hand; regular disconnects keep the seat and let the turn timer act.
func (h *Hand) forceFold(seat *Seat, now time.Time) {
	if h.complete || !seat.inHand() {
		return
	}
	seat.Status = SeatFolded
	seat.HasActed = true
	h.Log = append(h.Log, ActionRecord{
		PlayerID: seat.PlayerID,
		Street:   h.Street,
		Action:   Fold,
		Source:   SourcePlayer,
		At:       now,
	})
	h.afterMutation(seat)
}

// reopenBetting resets acted flags after a raise so everyone else gets to
// respond.
func (h *Hand) reopenBetting(raiser *Seat) {
	for _, s := range h.seats {
		if s != raiser {
			s.HasActed = false
		}
	}
}

// afterMutation advances the turn and the street as far as the new state
// allows.
func (h *Hand) afterMutation(acted *Seat) {
	if h.countInHand() <= 1 {
		h.resolveFoldOut()
		return
	}

	if h.maybeAdvance() {
		return
	}

	if acted.Index == h.TurnSeat {
		h.TurnSeat = h.nextActorFrom(h.nextSeatFrom(acted.Index))
	}
}

// maybeAdvance moves to the next street if and only if the betting round
// is complete; otherwise it is a no-op.
func (h *Hand) maybeAdvance() bool {
	if h.complete || !h.bettingRoundComplete() {
		return false
	}
	h.finishBettingRound()
	return true
}

// bettingRoundComplete applies the completion rule: every seat that can
// still act has acted and matched the current bet. A lone remaining actor
// must still match the bet (covering raises left standing by all-ins).
func (h *Hand) bettingRoundComplete() bool {
	for _, s := range h.seats {
		if !s.canAct() {
			continue
		}
		if !s.HasActed || s.Bet != h.CurrentBet {
			return false
		}
	}
	return true
}

// finishBettingRound collects the round and advances the street,
// fast-forwarding to showdown when nobody is left to act.
func (h *Hand) finishBettingRound() {
	for {
		for _, s := range h.seats {
			s.Bet = 0
			s.HasActed = false
		}
		h.CurrentBet = 0
		h.MinRaise = h.bigBlind

		if !h.advanceStreet() {
			return // reached showdown, resolved
		}

		h.TurnSeat = h.nextActorFrom(h.nextSeatFrom(h.Dealer))
		if h.TurnSeat != -1 && h.countActors() > 1 {
			return
		}
		// Everyone is all-in (or a single actor has no one to bet
		// against): run out the remaining streets.
		h.TurnSeat = -1
	}
}

// advanceStreet deals the next street's community cards. It returns false
// once the hand has reached showdown and been resolved.
func (h *Hand) advanceStreet() bool {
	switch h.Street {
	case Preflop:
		h.Street = Flop
		h.dealBoard(3)
	case Flop:
		h.Street = Turn
		h.dealBoard(1)
	case Turn:
		h.Street = River
		h.dealBoard(1)
	case River:
		h.Street = Showdown
		h.TurnSeat = -1
		h.resolveShowdown()
		return false
	}
	return true
}

func (h *Hand) dealBoard(n int) {
	cards, err := h.deck.Deal(n)
	if err != nil {
		// 52 cards cover 9 players plus the board; running out mid-hand
		// is a corrupted deck, not a recoverable condition.
		panic(fmt.Sprintf("deal %d board cards: %v", n, err))
	}
	h.Board = append(h.Board, cards...)
}

// resolveFoldOut awards all pots to the last seat standing without
// evaluating or revealing anything.
func (h *Hand) resolveFoldOut() {
	var last *Seat
	for _, s := range h.seats {
		if s.inHand() {
			last = s
			break
		}
	}
	if last == nil {
		return
	}

	total := 0
	for _, s := range h.seats {
		total += s.TotalBet
		s.TotalBet = 0
	}
	last.Chips += total

	h.winners = []Winner{{PlayerID: last.PlayerID, Seat: last.Index, Amount: total}}
	h.showdown = false
	h.TurnSeat = -1
	h.complete = true
}

// resolveShowdown evaluates the remaining hands and distributes each pot
// to its eligible winners, ties split evenly with any remainder going to
// the first eligible seat clockwise from the dealer.
func (h *Hand) resolveShowdown() {
	pots := buildPots(h.seats)

	ranks := make(map[int]eval.Rank, len(h.seats))
	for _, s := range h.seats {
		if !s.inHand() {
			continue
		}
		r, err := eval.Evaluate(append(append([]deck.Card{}, s.HoleCards...), h.Board...))
		if err != nil {
			panic(fmt.Sprintf("evaluate seat %d: %v", s.Index, err))
		}
		ranks[s.Index] = r
	}

	payouts := make(map[int]int)
	categories := make(map[int]string)

	for _, pot := range pots {
		if len(pot.Eligible) == 0 || pot.Amount == 0 {
			continue
		}

		best := eval.Rank(0)
		var winners []int
		for _, idx := range pot.Eligible {
			r := ranks[idx]
			if r > best {
				best = r
				winners = []int{idx}
			} else if r == best {
				winners = append(winners, idx)
			}
		}

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for _, idx := range winners {
			payouts[idx] += share
			categories[idx] = best.Category().String()
		}
		if remainder > 0 {
			payouts[h.firstClockwiseFromDealer(winners)] += remainder
		}
	}

	for _, s := range h.seats {
		s.TotalBet = 0
		if amount, ok := payouts[s.Index]; ok {
			s.Chips += amount
		}
	}

	h.winners = h.winners[:0]
	for _, s := range h.seats {
		if amount, ok := payouts[s.Index]; ok {
			h.winners = append(h.winners, Winner{
				PlayerID: s.PlayerID,
				Seat:     s.Index,
				Amount:   amount,
				Category: categories[s.Index],
			})
		}
	}

	h.showdown = true
	h.complete = true
}

// firstClockwiseFromDealer picks the candidate seat closest clockwise
// from the dealer, giving odd-chip assignment a deterministic order.
func (h *Hand) firstClockwiseFromDealer(candidates []int) int {
	idx := h.Dealer
	for i := 0; i < len(h.seats); i++ {
		idx = h.nextSeatFrom(idx)
		for _, c := range candidates {
			if c == idx {
				return c
			}
		}
	}
	return candidates[0]
}

// cashOutSeat removes a departing player's uncommitted stack from the
// hand's conservation scope. Chips already committed stay in the pot as
// dead money.
func (h *Hand) cashOutSeat(seat *Seat) int {
	chips := seat.Chips
	seat.Chips = 0
	h.startTotal -= chips
	delete(h.startStacks, seat.Index)
	return chips
}

// refundToStart restores every remaining participant's stack to its
// value at hand start. Used when an invariant violation makes the
// in-hand totals untrustworthy.
func (h *Hand) refundToStart() {
	for _, s := range h.seats {
		if chips, ok := h.startStacks[s.Index]; ok {
			s.Chips = chips
		}
		s.Bet = 0
		s.TotalBet = 0
		s.HasActed = false
		s.HoleCards = nil
		if s.Status != SeatSittingOut {
			s.Status = SeatActive
		}
	}
	h.complete = true
	h.TurnSeat = -1
}

// checkConservation verifies the chip sum is unchanged since hand start.
func (h *Hand) checkConservation() error {
	total := 0
	for _, s := range h.seats {
		total += s.Chips + s.TotalBet
	}
	if total != h.startTotal {
		return fmt.Errorf("chip conservation violated: have %d, started with %d", total, h.startTotal)
	}
	return nil
}
