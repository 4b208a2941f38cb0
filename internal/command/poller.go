package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/fall-alarm/internal/device"
	"github.com/oshokin/fall-alarm/internal/logger"
)

// Default slot range of the modem message store.
const (
	DefaultFirstIndex = 1
	DefaultLastIndex  = 20
)

var (
	errInvalidRange = errors.New("invalid message index range")
	errPollerWiring = errors.New("command channel and processor must be provided")
)

// PollerOptions configures the Poller.
type PollerOptions struct {
	// FirstIndex and LastIndex bound the inspected slots, inclusive.
	FirstIndex, LastIndex int
	// KeepUnrecognized leaves unrecognized messages in their slot.
	KeepUnrecognized bool
}

// Poller inspects one message slot per call, cycling through the range.
type Poller struct {
	channel   device.CommandChannel
	processor *Processor
	opts      PollerOptions
	next      int
}

// NewPoller creates a poller starting at the first index.
func NewPoller(channel device.CommandChannel, processor *Processor, opts PollerOptions) (*Poller, error) {
	if channel == nil || processor == nil {
		return nil, errPollerWiring
	}

	if opts.FirstIndex == 0 && opts.LastIndex == 0 {
		opts.FirstIndex, opts.LastIndex = DefaultFirstIndex, DefaultLastIndex
	}

	if opts.FirstIndex < 0 || opts.LastIndex < opts.FirstIndex {
		return nil, fmt.Errorf("%w: %d..%d", errInvalidRange, opts.FirstIndex, opts.LastIndex)
	}

	return &Poller{
		channel:   channel,
		processor: processor,
		opts:      opts,
		next:      opts.FirstIndex,
	}, nil
}

// Next returns the slot the next poll will inspect.
func (p *Poller) Next() int {
	return p.next
}

// PollOnce inspects the current slot and advances to the next one whatever the outcome.
// It returns nil when the slot is empty.
func (p *Poller) PollOnce(ctx context.Context) (*Result, error) {
	index := p.next
	p.advance()

	text, ok, err := p.channel.ReadMessageAt(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("read message %d: %w", index, err)
	}

	if !ok {
		return nil, nil
	}

	ctx = logger.WithKV(ctx, "index", index)
	logger.InfoKV(ctx, "Inbound message", "text", redact(text))

	res := p.processor.Process(ctx, text)

	if res.Command.Kind == KindUnrecognized && p.opts.KeepUnrecognized {
		return &res, nil
	}

	if err = p.channel.DeleteMessageAt(ctx, index); err != nil {
		return &res, fmt.Errorf("delete message %d: %w", index, err)
	}

	return &res, nil
}

func (p *Poller) advance() {
	p.next++
	if p.next > p.opts.LastIndex {
		p.next = p.opts.FirstIndex
	}
}

// redact hides the password of a /setnumber message.
func redact(text string) string {
	cmd := Parse(text)
	if cmd.Kind != KindSetNumber {
		return text
	}

	return KeywordSetNumber + " *** " + cmd.Recipient
}
