package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
)

// Default reply texts.
const (
	DefaultConfirmationMessage = "Number updated successfully."
	DefaultSelfTestMessage     = "Test message from device."
	DefaultReplyTimeout        = 60 * time.Second
)

var (
	// ErrMalformed is reported for a /setnumber without exactly two arguments.
	ErrMalformed = errors.New("malformed command")
	// ErrUnauthorized is reported for a /setnumber with a wrong password.
	ErrUnauthorized = errors.New("wrong command password")

	errSenderRequired    = errors.New("sender must be provided")
	errRecipientRequired = errors.New("recipient cell must be provided")
)

// Sender delivers text replies.
type Sender interface {
	SendText(ctx context.Context, recipient, body string) error
}

// Options configures the Processor.
type Options struct {
	// ConfirmationMessage is sent to a newly set recipient.
	ConfirmationMessage string
	// SelfTestMessage is sent on /test.
	SelfTestMessage string
	// ReplyTimeout bounds every reply send.
	ReplyTimeout time.Duration
}

// Result describes what processing one message did.
type Result struct {
	// Command is the parsed message.
	Command Command
	// Applied is true when the recipient was changed.
	Applied bool
	// Replied is true when a reply was delivered.
	Replied bool
	// Err explains a rejection or a failed reply.
	Err error
}

// Processor applies inbound commands to the shared recipient.
type Processor struct {
	recipient *fall.Recipient
	auth      *Authenticator
	sender    Sender
	opts      Options
}

// NewProcessor wires a processor. Empty options fall back to the defaults.
func NewProcessor(recipient *fall.Recipient, auth *Authenticator, sender Sender, opts Options) (*Processor, error) {
	if recipient == nil {
		return nil, errRecipientRequired
	}

	if auth == nil {
		return nil, errSecretRequired
	}

	if sender == nil {
		return nil, errSenderRequired
	}

	if opts.ConfirmationMessage == "" {
		opts.ConfirmationMessage = DefaultConfirmationMessage
	}

	if opts.SelfTestMessage == "" {
		opts.SelfTestMessage = DefaultSelfTestMessage
	}

	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}

	return &Processor{
		recipient: recipient,
		auth:      auth,
		sender:    sender,
		opts:      opts,
	}, nil
}

// Process parses raw and executes it.
func (p *Processor) Process(ctx context.Context, raw string) Result {
	cmd := Parse(raw)
	res := Result{Command: cmd}

	switch cmd.Kind {
	case KindSetNumber:
		p.setNumber(ctx, &res)
	case KindSelfTest:
		p.selfTest(ctx, &res)
	case KindMalformed:
		res.Err = ErrMalformed

		logger.WarnKV(ctx, "Rejected malformed /setnumber command")
	case KindUnrecognized:
	}

	return res
}

func (p *Processor) setNumber(ctx context.Context, res *Result) {
	if !p.auth.Check(res.Command.Password) {
		res.Err = ErrUnauthorized

		logger.WarnKV(ctx, "Rejected /setnumber command", "reason", res.Err)

		return
	}

	if err := p.recipient.Set(res.Command.Recipient); err != nil {
		res.Err = err

		logger.WarnKV(ctx, "Rejected /setnumber command", "reason", err, "length", len(res.Command.Recipient))

		return
	}

	res.Applied = true

	logger.InfoKV(ctx, "Alert recipient updated", "recipient", res.Command.Recipient)

	p.reply(ctx, res, res.Command.Recipient, p.opts.ConfirmationMessage)
}

func (p *Processor) selfTest(ctx context.Context, res *Result) {
	recipient := p.recipient.Get()

	logger.InfoKV(ctx, "Self-test requested", "recipient", recipient)

	p.reply(ctx, res, recipient, p.opts.SelfTestMessage)
}

func (p *Processor) reply(ctx context.Context, res *Result, recipient, body string) {
	sendCtx, cancel := context.WithTimeout(ctx, p.opts.ReplyTimeout)
	defer cancel()

	if err := p.sender.SendText(sendCtx, recipient, body); err != nil {
		res.Err = fmt.Errorf("send reply: %w", err)

		logger.ErrorKV(ctx, "Reply failed", "recipient", recipient, "error", err)

		return
	}

	res.Replied = true
}
