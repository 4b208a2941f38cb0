package fall

import (
	"errors"
	"fmt"
)

// ErrUnknownState is returned by ParseState for an unknown name.
var ErrUnknownState = errors.New("unknown state")

// State is the fall lifecycle state. Exactly one is active at any time.
type State int

// Fall lifecycle states.
const (
	Normal State = iota
	FreeFall
	ImpactDetected
	Countdown
	AlertSent
)

// String returns the state name used in logs and the status API.
func (s State) String() string {
	switch s {
	case Normal:
		return "Normal"
	case FreeFall:
		return "FreeFall"
	case ImpactDetected:
		return "ImpactDetected"
	case Countdown:
		return "Countdown"
	case AlertSent:
		return "AlertSent"
	default:
		return "Unknown"
	}
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for s := Normal; s <= AlertSent; s++ {
		if s.String() == name {
			return s, nil
		}
	}

	return Normal, fmt.Errorf("%w: %q", ErrUnknownState, name)
}
