package table

import (
	"errors"
	"fmt"
)

// ErrTableClosed is returned for any operation posted to a table whose
// actor has shut down.
var ErrTableClosed = errors.New("table closed")

// RejectReason identifies why a player-driven operation was refused.
// Rejections are non-fatal: state is never mutated and only the requesting
// player learns about them.
type RejectReason string

const (
	ReasonNotYourTurn         RejectReason = "not_your_turn"
	ReasonIllegalCheck        RejectReason = "illegal_check"
	ReasonRaiseBelowMinimum   RejectReason = "raise_below_minimum"
	ReasonInsufficientChips   RejectReason = "insufficient_chips"
	ReasonHandAlreadyAdvanced RejectReason = "hand_already_advanced"
	ReasonTableFull           RejectReason = "table_full"
	ReasonDuplicateSeat       RejectReason = "duplicate_seat"
	ReasonBuyInOutOfRange     RejectReason = "buy_in_out_of_range"
	ReasonNotSeated           RejectReason = "not_seated"
	ReasonNotActive           RejectReason = "not_active"
)

// RejectError is a typed refusal of a player operation.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...any) *RejectError {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from an error, if it carries one.
func ReasonOf(err error) (RejectReason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
