// Package sim provides in-memory stand-ins for the wristband hardware.
//
// Modem keeps numbered inbox slots and an outbox log and satisfies both the
// alert and the command channel. Script replays named motion scenarios built
// from phases of constant samples. Both are used by the simulate command, by
// the daemon when no serial port is configured, and by tests.
package sim
