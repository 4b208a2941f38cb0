// Package instance refuses to start a second daemon on the same device,
// since two processes would fight over the modem port and the message slots.
package instance
