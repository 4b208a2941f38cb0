package fall

import (
	"errors"
	"strings"
	"sync"
)

// MaxRecipientLength is the longest phone number the device stores.
const MaxRecipientLength = 19

var (
	// ErrRecipientEmpty is returned when an empty recipient is assigned.
	ErrRecipientEmpty = errors.New("recipient is empty")
	// ErrRecipientTooLong is returned when a recipient exceeds MaxRecipientLength.
	ErrRecipientTooLong = errors.New("recipient is too long")
	// ErrRecipientInvalid is returned when a recipient is not an optional '+' followed by digits.
	ErrRecipientInvalid = errors.New("recipient is not a dialable number")
)

// Recipient is the single owned cell holding the alert phone number.
// The detector and the command processor share it by pointer; the control
// loop is its only writer. The lock covers readers on the status API goroutine.
type Recipient struct {
	mu    sync.RWMutex
	value string
}

// NewRecipient creates a cell holding initial without validating it.
func NewRecipient(initial string) *Recipient {
	return &Recipient{
		value: initial,
	}
}

// ValidateRecipient checks that value can be stored and dialed.
func ValidateRecipient(value string) error {
	switch {
	case value == "":
		return ErrRecipientEmpty
	case len(value) > MaxRecipientLength:
		return ErrRecipientTooLong
	}

	digits := strings.TrimPrefix(value, "+")
	if digits == "" {
		return ErrRecipientInvalid
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return ErrRecipientInvalid
		}
	}

	return nil
}

// Get returns the current recipient.
func (r *Recipient) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.value
}

// Set replaces the recipient. On error the previous value stays active.
func (r *Recipient) Set(value string) error {
	if err := ValidateRecipient(value); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.value = value

	return nil
}
