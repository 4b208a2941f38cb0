package controller

import "sync/atomic"

// Button latches a self-cancel press until the control loop consumes it.
type Button struct {
	pressed atomic.Bool
}

// Press records a press. Safe to call from any goroutine.
func (b *Button) Press() {
	b.pressed.Store(true)
}

// Consume reports whether a press happened since the last call and clears it.
func (b *Button) Consume() bool {
	return b.pressed.Swap(false)
}
