package controller

import (
	"context"
	"sync"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
)

// Board holds the snapshot of the last tick for readers on other goroutines.
type Board struct {
	mu   sync.RWMutex
	snap fall.Snapshot
}

// Snapshot returns a copy of the last published snapshot.
func (b *Board) Snapshot(context.Context) *fall.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.snap.Clone()
}

func (b *Board) publish(snap *fall.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snap = *snap.Clone()
}

// Remote serves operator requests against a running controller.
type Remote struct {
	board  *Board
	button *Button
}

// NewRemote exposes board and button to remote operators.
func NewRemote(board *Board, button *Button) *Remote {
	return &Remote{
		board:  board,
		button: button,
	}
}

// Snapshot returns the current device status.
func (r *Remote) Snapshot(ctx context.Context) *fall.Snapshot {
	return r.board.Snapshot(ctx)
}

// Cancel presses the cancel button on behalf of actor. It is accepted only
// while a countdown is running; the press is applied on the next tick.
func (r *Remote) Cancel(ctx context.Context, actor fall.Actor) (*fall.Snapshot, bool) {
	snap := r.board.Snapshot(ctx)
	if snap.State != fall.Countdown {
		logger.InfoKV(ctx, "Remote cancel ignored", "actor", actor.String(), "state", snap.State.String())

		return snap, false
	}

	r.button.Press()

	logger.InfoKV(ctx, "Remote cancel accepted", "actor", actor.String(), "remaining", snap.CountdownRemaining.String())

	return snap, true
}
