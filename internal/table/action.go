package table

import "fmt"

// Action represents a player betting action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case AllIn:
		return "allin"
	default:
		return "unknown"
	}
}

// ParseAction converts a wire action name into the closed Action set.
// This is the only place untyped action strings are accepted; everything
// past the connection boundary works with Action values.
func ParseAction(s string) (Action, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "raise":
		return Raise, nil
	case "allin", "all-in":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Source tags where an action originated. Timeout actions travel through
// the same serialized entry point as player actions; the tag only affects
// logging and the action record.
type Source int

const (
	SourcePlayer Source = iota
	SourceTimeout
)

func (s Source) String() string {
	if s == SourceTimeout {
		return "timeout"
	}
	return "player"
}
