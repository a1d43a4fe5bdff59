package table

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/cardroomhq/cardroom/internal/randutil"
)

// Config holds constructor-time table parameters. None of them change at
// runtime.
type Config struct {
	SmallBlind    int
	BigBlind      int
	MinBuyIn      int
	MaxBuyIn      int
	MaxSeats      int
	TurnTimeout   time.Duration
	NextHandDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.SmallBlind == 0 {
		c.SmallBlind = 5
	}
	if c.BigBlind == 0 {
		c.BigBlind = c.SmallBlind * 2
	}
	if c.MinBuyIn == 0 {
		c.MinBuyIn = c.BigBlind * 20
	}
	if c.MaxBuyIn == 0 {
		c.MaxBuyIn = c.BigBlind * 100
	}
	if c.MaxSeats == 0 {
		c.MaxSeats = 9
	}
	if c.MaxSeats < 2 {
		c.MaxSeats = 2
	}
	if c.MaxSeats > 9 {
		c.MaxSeats = 9
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = 12 * time.Second
	}
	if c.NextHandDelay == 0 {
		c.NextHandDelay = 3 * time.Second
	}
	return c
}

// Option configures a Table at construction.
type Option func(*Table)

// WithClock injects a clock, letting tests drive timers deterministically.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithListener subscribes a listener to table events.
func WithListener(l Listener) Option {
	return func(t *Table) { t.listener = l }
}

// WithLedger sets the external chip accounting boundary.
func WithLedger(l Ledger) Option {
	return func(t *Table) { t.ledger = l }
}

// WithRNG overrides the per-shuffle RNG source.
func WithRNG(fn func() *rand.Rand) Option {
	return func(t *Table) { t.newRNG = fn }
}

// WithID sets a fixed table ID instead of a generated one.
func WithID(id string) Option {
	return func(t *Table) { t.id = id }
}

// Table is the authoritative owner of one poker table. A single actor
// goroutine serializes every mutation: player operations, timer expiries
// and snapshots all pass through the same command channel, so no two
// actions for the same table ever interleave. Tables are independent of
// each other and of the connection registry.
type Table struct {
	id       string
	cfg      Config
	logger   *log.Logger
	clock    quartz.Clock
	ledger   Ledger
	listener Listener
	newRNG   func() *rand.Rand

	seats       []*Seat // fixed size, nil when empty
	status      Status
	hand        *Hand
	handCounter int
	dealer      int // last hand's dealer seat index, -1 before the first hand

	turnDeadline  time.Time
	turnTimer     *quartz.Timer
	nextHandTimer *quartz.Timer

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a table and starts its actor goroutine.
func New(cfg Config, logger *log.Logger, opts ...Option) *Table {
	t := &Table{
		id:       uuid.NewString(),
		cfg:      cfg.withDefaults(),
		clock:    quartz.NewReal(),
		listener: nopListener{},
		newRNG:   randutil.NewTimeSeeded,
		dealer:   -1,
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.seats = make([]*Seat, t.cfg.MaxSeats)
	t.logger = logger.WithPrefix("table").With("table", t.id)
	if t.ledger == nil {
		t.ledger = &LogLedger{Logger: t.logger}
	}
	go t.run()
	return t
}

// ID returns the table identifier.
func (t *Table) ID() string { return t.id }

// Config returns the table's immutable configuration.
func (t *Table) Config() Config { return t.cfg }

// Close shuts the actor down, cancelling any pending timers. Pending and
// future operations fail with ErrTableClosed.
func (t *Table) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) run() {
	for {
		select {
		case fn := <-t.cmds:
			fn()
		case <-t.done:
			t.stopTimers()
			return
		}
	}
}

// do posts fn to the actor and waits for its result. A panic inside fn is
// an invariant violation: it is fatal to this table's current hand only,
// never to other tables or the caller.
func (t *Table) do(fn func() error) error {
	reply := make(chan error, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				t.abortHand(fmt.Errorf("%v", r))
				reply <- fmt.Errorf("internal table error: %v", r)
			}
		}()
		reply <- fn()
	}
	select {
	case t.cmds <- wrapped:
	case <-t.done:
		return ErrTableClosed
	}
	select {
	case err := <-reply:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// post queues fn without waiting; used by timer callbacks.
func (t *Table) post(fn func()) {
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				t.abortHand(fmt.Errorf("%v", r))
			}
		}()
		fn()
	}
	select {
	case t.cmds <- wrapped:
	case <-t.done:
	}
}

// AddPlayer seats a player with the given buy-in. When the second player
// sits down at a waiting table a hand starts immediately.
func (t *Table) AddPlayer(playerID, name string, buyIn int) error {
	return t.do(func() error { return t.addPlayer(playerID, name, buyIn) })
}

// RemovePlayer unseats a player, cashing out their remaining stack. If
// they hold the turn the hand moves on; if fewer than two players remain
// the hand is abandoned and the pot goes to the last seat standing.
func (t *Table) RemovePlayer(playerID string) error {
	return t.do(func() error { return t.removePlayer(playerID) })
}

// SubmitAction is the single entry point for player betting actions.
func (t *Table) SubmitAction(playerID string, action Action, amount int) error {
	return t.do(func() error { return t.submitAction(playerID, action, amount, SourcePlayer) })
}

// Snapshot returns the current unredacted table state.
func (t *Table) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := t.do(func() error {
		snap = t.snapshot()
		return nil
	})
	return snap, err
}

func (t *Table) addPlayer(playerID, name string, buyIn int) error {
	for _, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return reject(ReasonDuplicateSeat, "player %s already seated", playerID)
		}
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return reject(ReasonBuyInOutOfRange, "buy-in %d outside [%d, %d]", buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}

	seatIdx := -1
	for i, s := range t.seats {
		if s == nil {
			seatIdx = i
			break
		}
	}
	if seatIdx == -1 {
		return reject(ReasonTableFull, "all %d seats taken", t.cfg.MaxSeats)
	}

	seat := &Seat{
		Index:    seatIdx,
		PlayerID: playerID,
		Name:     name,
		Chips:    buyIn,
		Status:   SeatSittingOut, // joins the next hand, not the running one
	}
	t.seats[seatIdx] = seat
	t.ledger.Debit(playerID, buyIn)
	t.logger.Info("player seated", "player", playerID, "seat", seatIdx, "buyIn", buyIn)

	t.listener.OnTableEvent(PlayerJoinedEvent{
		Snapshot: t.snapshot(),
		PlayerID: playerID,
		Name:     name,
		Seat:     seatIdx,
	})

	if t.status == StatusWaiting && len(t.fundedSeats()) >= 2 {
		t.startHand()
	}
	return nil
}

func (t *Table) removePlayer(playerID string) error {
	seat := t.seatOf(playerID)
	if seat == nil {
		return reject(ReasonNotSeated, "player %s is not seated", playerID)
	}

	cashOut := seat.Chips
	turnBefore := -1
	if t.hand != nil && !t.hand.Complete() {
		turnBefore = t.hand.TurnSeat
		if t.hand.seatAt(seat.Index) == seat && seat.inHand() {
			// The departing chips leave the hand's conservation scope;
			// dead money already committed stays in the pot.
			cashOut = t.hand.cashOutSeat(seat)
			t.hand.forceFold(seat, t.clock.Now())
		}
	}

	seat.Chips = 0
	t.seats[seat.Index] = nil
	if cashOut > 0 {
		t.ledger.Credit(playerID, cashOut)
	}
	t.logger.Info("player left", "player", playerID, "seat", seat.Index, "cashOut", cashOut)

	t.listener.OnTableEvent(PlayerLeftEvent{
		Snapshot: t.snapshot(),
		PlayerID: playerID,
		CashOut:  cashOut,
	})

	if t.hand != nil {
		if t.hand.Complete() {
			t.finishHand()
		} else {
			t.verifyHand()
			if t.hand.TurnSeat != turnBefore {
				t.armTurnTimer()
			}
			t.listener.OnTableEvent(StateChangedEvent{Snapshot: t.snapshot()})
		}
	} else if len(t.fundedSeats()) < 2 {
		t.stopTimers()
		t.status = StatusWaiting
	}
	return nil
}

func (t *Table) submitAction(playerID string, action Action, amount int, src Source) error {
	seat := t.seatOf(playerID)
	if seat == nil {
		return reject(ReasonNotSeated, "player %s is not seated", playerID)
	}
	if t.hand == nil || t.hand.Complete() {
		return reject(ReasonHandAlreadyAdvanced, "no hand in progress")
	}

	if err := t.hand.apply(seat, action, amount, src, t.clock.Now()); err != nil {
		return err
	}

	t.logger.Debug("action applied",
		"player", playerID, "action", action.String(), "amount", amount, "source", src.String())

	t.verifyHand()

	if t.hand.Complete() {
		t.finishHand()
	} else {
		t.armTurnTimer()
		t.listener.OnTableEvent(StateChangedEvent{Snapshot: t.snapshot()})
	}
	return nil
}

// startHand deals a new hand with the dealer button rotated to the next
// funded seat clockwise.
func (t *Table) startHand() {
	participants := t.fundedSeats()
	if len(participants) < 2 {
		t.status = StatusWaiting
		return
	}

	dealer := nextSeatIndexAfter(participants, t.dealer)
	t.handCounter++

	hand, err := newHand(t.handCounter, participants, dealer, t.cfg.SmallBlind, t.cfg.BigBlind, t.newRNG())
	if err != nil {
		t.logger.Error("failed to start hand", "error", err)
		t.status = StatusWaiting
		return
	}

	t.hand = hand
	t.dealer = dealer
	t.status = StatusRunning
	t.logger.Info("hand started",
		"hand", hand.Number, "dealer", dealer, "players", len(participants))

	if hand.Complete() {
		// Blinds alone can end a hand when both players were all-in.
		t.finishHand()
		return
	}
	t.armTurnTimer()
	t.listener.OnTableEvent(StateChangedEvent{Snapshot: t.snapshot()})
}

// finishHand pays out, notifies the ledger, and schedules the next hand.
func (t *Table) finishHand() {
	hand := t.hand
	t.stopTurnTimer()

	for _, w := range hand.Winners() {
		t.ledger.Credit(w.PlayerID, w.Amount)
		t.logger.Info("pot awarded",
			"hand", hand.Number, "player", w.PlayerID, "amount", w.Amount, "category", w.Category)
	}

	snap := t.snapshot()
	snap.Revealed = hand.WentToShowdown()
	t.listener.OnTableEvent(HandEndedEvent{
		Snapshot: snap,
		Winners:  hand.Winners(),
		Showdown: hand.WentToShowdown(),
	})

	for _, s := range t.seats {
		if s != nil && s.Chips == 0 {
			s.Status = SeatSittingOut
		}
	}
	t.hand = nil

	if len(t.fundedSeats()) < 2 {
		t.status = StatusWaiting
		return
	}

	if t.nextHandTimer != nil {
		t.nextHandTimer.Stop()
	}
	t.nextHandTimer = t.clock.AfterFunc(t.cfg.NextHandDelay, func() {
		t.post(func() {
			if t.hand == nil {
				t.startHand()
			}
		})
	})
}

// armTurnTimer starts the per-turn deadline for the current turn seat.
// At most one turn timer is live per table; arming replaces any previous
// one. Expiry routes a synthetic action through the same entry point as
// player actions, so whichever reaches the actor first wins and the
// loser is rejected.
func (t *Table) armTurnTimer() {
	t.stopTurnTimer()
	if t.hand == nil || t.hand.TurnSeat == -1 {
		return
	}

	handID := t.hand.ID
	turnSeat := t.hand.TurnSeat
	t.turnDeadline = t.clock.Now().Add(t.cfg.TurnTimeout)
	t.turnTimer = t.clock.AfterFunc(t.cfg.TurnTimeout, func() {
		t.post(func() { t.handleTurnTimeout(handID, turnSeat) })
	})
}

// handleTurnTimeout forces the deadline default: check when free, fold
// otherwise. Stale expiries (the hand or turn moved on first) are
// dropped.
func (t *Table) handleTurnTimeout(handID string, turnSeat int) {
	if t.hand == nil || t.hand.ID != handID || t.hand.TurnSeat != turnSeat || t.hand.Complete() {
		return
	}
	seat := t.hand.seatAt(turnSeat)
	if seat == nil || !seat.canAct() {
		return
	}

	action := Fold
	if seat.Bet == t.hand.CurrentBet {
		action = Check
	}
	t.logger.Info("turn timed out", "player", seat.PlayerID, "seat", turnSeat, "auto", action.String())

	if err := t.submitAction(seat.PlayerID, action, 0, SourceTimeout); err != nil {
		t.logger.Error("timeout action rejected", "error", err)
	}
}

func (t *Table) stopTurnTimer() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	t.turnDeadline = time.Time{}
}

func (t *Table) stopTimers() {
	t.stopTurnTimer()
	if t.nextHandTimer != nil {
		t.nextHandTimer.Stop()
		t.nextHandTimer = nil
	}
}

// verifyHand checks the conservation invariant after a mutation; a
// violation aborts the hand rather than let corrupt totals spread.
func (t *Table) verifyHand() {
	if t.hand == nil {
		return
	}
	if err := t.hand.checkConservation(); err != nil {
		panic(err.Error())
	}
}

// abortHand handles an invariant violation: refund stacks to their value
// at hand start, drop the hand, and park the table. Only this table is
// affected.
func (t *Table) abortHand(cause error) {
	t.logger.Error("invariant violation, aborting hand", "error", cause)
	t.stopTimers()
	if t.hand != nil {
		t.hand.refundToStart()
		t.hand = nil
	}
	t.status = StatusWaiting
	t.listener.OnTableEvent(StateChangedEvent{Snapshot: t.snapshot()})
}

func (t *Table) seatOf(playerID string) *Seat {
	for _, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// fundedSeats returns seats able to play the next hand, in seat order.
func (t *Table) fundedSeats() []*Seat {
	out := make([]*Seat, 0, len(t.seats))
	for _, s := range t.seats {
		if s != nil && s.Chips > 0 {
			out = append(out, s)
		}
	}
	return out
}

// nextSeatIndexAfter picks the first seat index strictly clockwise after
// the given one, wrapping around.
func nextSeatIndexAfter(seats []*Seat, after int) int {
	for _, s := range seats {
		if s.Index > after {
			return s.Index
		}
	}
	return seats[0].Index
}

func (t *Table) snapshot() Snapshot {
	snap := Snapshot{
		TableID:  t.id,
		Status:   t.status.String(),
		Dealer:   t.dealer,
		TurnSeat: -1,
	}

	if t.hand != nil {
		snap.HandID = t.hand.ID
		snap.HandNumber = t.hand.Number
		snap.Street = t.hand.Street.String()
		snap.Board = t.hand.Board
		snap.Pot = t.hand.PotTotal()
		snap.CurrentBet = t.hand.CurrentBet
		snap.MinRaise = t.hand.MinRaise
		snap.Dealer = t.hand.Dealer
		snap.TurnSeat = t.hand.TurnSeat
		snap.Revealed = t.hand.Street == Showdown && t.hand.WentToShowdown()
		for _, p := range t.hand.Pots() {
			snap.Pots = append(snap.Pots, PotView{Amount: p.Amount, Eligible: p.Eligible})
		}
		if t.hand.TurnSeat != -1 && !t.turnDeadline.IsZero() {
			left := t.turnDeadline.Sub(t.clock.Now()).Seconds()
			if left < 0 {
				left = 0
			}
			snap.TurnTimeLeft = left
		}
	}

	for _, s := range t.seats {
		if s == nil {
			continue
		}
		snap.Seats = append(snap.Seats, SeatView{
			Index:        s.Index,
			PlayerID:     s.PlayerID,
			Name:         s.Name,
			Chips:        s.Chips,
			Bet:          s.Bet,
			TotalBet:     s.TotalBet,
			Status:       s.Status.String(),
			HasHoleCards: len(s.HoleCards) > 0,
			HoleCards:    s.HoleCards,
		})
	}
	return snap
}
