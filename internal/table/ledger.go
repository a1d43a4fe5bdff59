package table

import "github.com/charmbracelet/log"

// Ledger is the boundary to the external chip accounting system. The
// table calls it fire-and-forget: Debit when a player buys into a seat,
// Credit when chips leave the table (hand payout or cash-out).
// Implementations must not block the caller.
type Ledger interface {
	Debit(playerID string, chips int)
	Credit(playerID string, chips int)
}

// LogLedger records ledger movements in the log only. It stands in where
// no real accounting backend is wired up.
type LogLedger struct {
	Logger *log.Logger
}

func (l *LogLedger) Debit(playerID string, chips int) {
	l.Logger.Info("ledger debit", "player", playerID, "chips", chips)
}

func (l *LogLedger) Credit(playerID string, chips int) {
	l.Logger.Info("ledger credit", "player", playerID, "chips", chips)
}
