// Package device declares the hardware collaborators the fall-alarm core talks to.
//
// The interfaces are deliberately narrow: a motion source, an alert channel
// (text and voice call), an inbound command mailbox, and a local feedback
// sink. Concrete implementations live in the modem, motion, display and sim
// packages.
package device
