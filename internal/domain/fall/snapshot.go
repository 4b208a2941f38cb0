package fall

import "time"

// Actor identifies who performed a remote operation.
type Actor struct {
	// Hostname is the machine the request came from.
	Hostname string
	// Username is the system user who sent it.
	Username string
}

// String renders the actor as user@host.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// AlertReport describes the last alert dispatch.
type AlertReport struct {
	// At is when the dispatch finished.
	At time.Time
	// Recipient is the number that was texted.
	Recipient string
	// Attempts is how many sends were tried.
	Attempts int
	// Error is the last send error, empty on success.
	Error string
}

// Snapshot is a read-only view of the device published once per tick.
type Snapshot struct {
	// State is the lifecycle state.
	State State
	// StateSince is when State was entered.
	StateSince time.Time
	// Recipient is the current alert recipient.
	Recipient string
	// CountdownRemaining is the time left before the alert, zero outside Countdown.
	CountdownRemaining time.Duration
	// Magnitude is the last acceleration magnitude.
	Magnitude int64
	// MagnitudeG is Magnitude in multiples of g.
	MagnitudeG float64
	// Ticks is the number of completed ticks.
	Ticks uint64
	// NextCommandIndex is the message slot the next poll inspects.
	NextCommandIndex int
	// LastAlert is the last dispatch result, nil before the first alert.
	LastAlert *AlertReport
	// UpdatedAt is the time of the tick that produced the snapshot.
	UpdatedAt time.Time
}

// Clone returns a copy that shares nothing with s.
func (s *Snapshot) Clone() *Snapshot {
	cloned := *s

	if s.LastAlert != nil {
		report := *s.LastAlert
		cloned.LastAlert = &report
	}

	return &cloned
}
