// Package controller runs the wristband control loop.
//
// One goroutine owns the detector, the command poller and every hardware
// collaborator: each tick it polls one inbound message slot when the poll
// interval has elapsed, reads a motion sample, feeds the detector, applies
// the feedback and dispatches the alert. Alert sends block the loop.
//
// Other goroutines only touch the Button, which latches a cancel press until
// the next tick, and the Board, which holds the snapshot of the last tick.
package controller
