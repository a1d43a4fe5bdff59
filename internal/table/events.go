package table

// Listener receives table events. Callbacks run on the table's actor
// goroutine and must not block; the server side hands events to
// per-connection queues immediately.
type Listener interface {
	OnTableEvent(Event)
}

// Event is implemented by all table event types.
type Event interface {
	EventTable() string
}

// StateChangedEvent is emitted after any successful mutation of table
// state. The snapshot is unredacted; fan-out redacts per recipient.
type StateChangedEvent struct {
	Snapshot Snapshot
}

func (e StateChangedEvent) EventTable() string { return e.Snapshot.TableID }

// HandEndedEvent is emitted once per hand, after pots are distributed.
type HandEndedEvent struct {
	Snapshot Snapshot
	Winners  []Winner
	Showdown bool
}

func (e HandEndedEvent) EventTable() string { return e.Snapshot.TableID }

// PlayerJoinedEvent is emitted when a player takes a seat.
type PlayerJoinedEvent struct {
	Snapshot Snapshot
	PlayerID string
	Name     string
	Seat     int
}

func (e PlayerJoinedEvent) EventTable() string { return e.Snapshot.TableID }

// PlayerLeftEvent is emitted when a player gives up a seat.
type PlayerLeftEvent struct {
	Snapshot Snapshot
	PlayerID string
	CashOut  int
}

func (e PlayerLeftEvent) EventTable() string { return e.Snapshot.TableID }

// nopListener lets tables run without a subscriber (simulations, tests).
type nopListener struct{}

func (nopListener) OnTableEvent(Event) {}
