package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Outbound kinds.
const (
	KindText = "text"
	KindCall = "call"
)

// ErrSlotsFull is returned by Deliver when every inbox slot is used.
var ErrSlotsFull = errors.New("inbox is full")

// Outbound is one text or call the modem sent.
type Outbound struct {
	// Kind is KindText or KindCall.
	Kind string
	// Recipient is the dialed number.
	Recipient string
	// Body is the text; empty for calls.
	Body string
	// At is when the modem accepted it.
	At time.Time
}

// Modem is an in-memory modem safe for concurrent use.
type Modem struct {
	mu     sync.Mutex
	slots  map[int]string
	first  int
	last   int
	outbox []Outbound
	// failures is the number of upcoming sends that fail.
	failures int
	now      func() time.Time
}

// NewModem creates a modem with size inbox slots numbered from 1.
func NewModem(size int) *Modem {
	return NewModemRange(1, size)
}

// NewModemRange creates a modem whose inbox slots are numbered first..last.
func NewModemRange(first, last int) *Modem {
	return &Modem{
		slots: make(map[int]string, max(last-first+1, 0)),
		first: first,
		last:  last,
		now:   time.Now,
	}
}

// Deliver stores text in the lowest free slot and returns its index.
func (m *Modem) Deliver(text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for index := m.first; index <= m.last; index++ {
		if _, used := m.slots[index]; !used {
			m.slots[index] = text

			return index, nil
		}
	}

	return 0, ErrSlotsFull
}

// Inbox returns the occupied slot indices in ascending order.
func (m *Modem) Inbox() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	indices := make([]int, 0, len(m.slots))
	for index := range m.slots {
		indices = append(indices, index)
	}

	slices.Sort(indices)

	return indices
}

// Outbox returns a copy of everything sent so far.
func (m *Modem) Outbox() []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.outbox)
}

// FailNext makes the next n sends or calls fail.
func (m *Modem) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures = n
}

// SendText records a text.
func (m *Modem) SendText(ctx context.Context, recipient, body string) error {
	return m.record(ctx, Outbound{Kind: KindText, Recipient: recipient, Body: body})
}

// PlaceCall records a call.
func (m *Modem) PlaceCall(ctx context.Context, recipient string) error {
	return m.record(ctx, Outbound{Kind: KindCall, Recipient: recipient})
}

// ReadMessageAt returns the text stored at index.
func (m *Modem) ReadMessageAt(ctx context.Context, index int) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	text, ok := m.slots[index]

	return text, ok, nil
}

// DeleteMessageAt frees the slot at index.
func (m *Modem) DeleteMessageAt(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, index)

	return nil
}

func (m *Modem) record(ctx context.Context, out Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--

		return fmt.Errorf("%s to %s: no network", out.Kind, out.Recipient)
	}

	out.At = m.now()
	m.outbox = append(m.outbox, out)

	return nil
}
