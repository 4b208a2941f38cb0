// Package modem drives a SIM7600-class cellular modem with AT commands over a
// serial line.
//
// The Modem satisfies both the alert channel (SMS in text mode and voice
// calls) and the command channel (read and delete by message slot). Every
// exchange is bounded by a per-command timeout and by the caller's context.
package modem
