// Package detector implements the fall lifecycle state machine.
//
// A Detector consumes one motion sample per tick and turns the acceleration
// magnitude into discrete events: free-fall onset, impact, a cancellable
// countdown, a single alert per episode, and recovery once the wearer is
// standing and moving again. Time is measured from the tick timestamps the
// caller passes in, so the machine tolerates rate jitter but not long stalls.
package detector
