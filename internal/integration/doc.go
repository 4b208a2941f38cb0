// Package integration exercises the assembled wristband end to end: the
// controller loop, the simulated modem, the journal and the status service.
package integration
