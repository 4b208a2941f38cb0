package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Default timings.
const (
	DefaultBaudRate       = 115200
	DefaultCommandTimeout = 5 * time.Second
	DefaultSendTimeout    = 60 * time.Second
	DefaultCallDuration   = 10 * time.Second

	// readPoll is the serial read timeout; reads return empty after it so deadlines are checked.
	readPoll = 50 * time.Millisecond
	// idlePoll is the pause after an empty read.
	idlePoll = 5 * time.Millisecond
	// hangupTimeout bounds ATH after the caller's context has ended.
	hangupTimeout = 2 * time.Second

	ctrlZ = 0x1a
	esc   = 0x1b

	// cmsInvalidIndex is reported by +CMGR for an unused or out-of-range slot.
	cmsInvalidIndex = "321"
)

var (
	// ErrCommandFailed is returned when the modem answers ERROR, +CMS ERROR or +CME ERROR.
	ErrCommandFailed = errors.New("modem command failed")
	// ErrInvalidNumber is returned for recipients that are not a dialable number.
	ErrInvalidNumber = errors.New("invalid phone number")
)

// CommandError carries the final result code of a failed command.
type CommandError struct {
	// Command is the AT command that failed.
	Command string
	// Result is the final result line, e.g. "+CMS ERROR: 321".
	Result string
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCommandFailed, e.Command, e.Result)
}

// Unwrap makes errors.Is(err, ErrCommandFailed) hold.
func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

// Options configures the modem.
type Options struct {
	// BaudRate is the UART speed used by Open.
	BaudRate int
	// CommandTimeout bounds a single AT exchange.
	CommandTimeout time.Duration
	// SendTimeout bounds a text send when the caller's context has no deadline.
	SendTimeout time.Duration
	// CallDuration is how long a call rings before hanging up.
	CallDuration time.Duration
}

// Modem talks AT commands over port. It serializes exchanges.
type Modem struct {
	mu     sync.Mutex
	port   io.ReadWriter
	closer io.Closer
	opts   Options
	buf    []byte
	chunk  []byte
}

// Open opens the serial device and initialises the modem.
func Open(ctx context.Context, portName string, opts Options) (*Modem, error) {
	opts = withDefaults(opts)

	port, err := serial.Open(portName, &serial.Mode{BaudRate: opts.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	if err = port.SetReadTimeout(readPoll); err != nil {
		_ = port.Close()

		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	m := New(port, opts)
	m.closer = port

	if err = m.Init(ctx); err != nil {
		_ = port.Close()

		return nil, err
	}

	return m, nil
}

// New wraps an already open port without talking to it.
func New(port io.ReadWriter, opts Options) *Modem {
	return &Modem{
		port:  port,
		opts:  withDefaults(opts),
		chunk: make([]byte, 256),
	}
}

// Init checks that the modem answers, disables echo and selects SMS text mode.
func (m *Modem) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cmd := range []string{"AT", "ATE0", "AT+CMGF=1"} {
		if _, err := m.exchange(ctx, cmd); err != nil {
			return fmt.Errorf("initialise modem: %w", err)
		}
	}

	return nil
}

// Close releases the serial port when the modem owns it.
func (m *Modem) Close() error {
	if m.closer == nil {
		return nil
	}

	return m.closer.Close()
}

// SendText sends body to recipient as a text-mode SMS.
func (m *Modem) SendText(ctx context.Context, recipient, body string) error {
	if err := validateNumber(recipient); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.opts.SendTimeout)
		defer cancel()
	}

	cmd := fmt.Sprintf("AT+CMGS=%q", recipient)

	m.buf = m.buf[:0]
	if err := m.write(cmd + "\r"); err != nil {
		return err
	}

	if err := m.waitPrompt(ctx, cmd); err != nil {
		return err
	}

	if err := m.write(sanitizeBody(body) + string(rune(ctrlZ))); err != nil {
		return err
	}

	lines, err := m.collect(ctx, cmd)
	if err != nil {
		return err
	}

	if !hasPrefix(lines, "+CMGS:") {
		return &CommandError{Command: cmd, Result: "no message reference"}
	}

	return nil
}

// PlaceCall dials recipient, keeps the call up for the configured duration and hangs up.
func (m *Modem) PlaceCall(ctx context.Context, recipient string) error {
	if err := validateNumber(recipient); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.exchange(ctx, "ATD"+recipient+";"); err != nil {
		return err
	}

	timer := time.NewTimer(m.opts.CallDuration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	hangupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hangupTimeout)
	defer cancel()

	if _, err := m.exchange(hangupCtx, "ATH"); err != nil {
		return fmt.Errorf("hang up: %w", err)
	}

	return ctx.Err()
}

// ReadMessageAt reads the SMS stored at index. An empty slot is not an error.
func (m *Modem) ReadMessageAt(ctx context.Context, index int) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, err := m.exchange(ctx, "AT+CMGR="+strconv.Itoa(index))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Result == "+CMS ERROR: "+cmsInvalidIndex {
			return "", false, nil
		}

		return "", false, err
	}

	for i, line := range lines {
		if strings.HasPrefix(line, "+CMGR:") {
			return strings.Join(lines[i+1:], "\n"), true, nil
		}
	}

	return "", false, nil
}

// DeleteMessageAt deletes the SMS stored at index.
func (m *Modem) DeleteMessageAt(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.exchange(ctx, "AT+CMGD="+strconv.Itoa(index))

	return err
}

// exchange sends cmd and collects the information lines up to the final result code.
func (m *Modem) exchange(ctx context.Context, cmd string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.CommandTimeout)
	defer cancel()

	// Drop unsolicited output left over from earlier exchanges.
	m.buf = m.buf[:0]

	if err := m.write(cmd + "\r"); err != nil {
		return nil, err
	}

	return m.collect(ctx, cmd)
}

func (m *Modem) collect(ctx context.Context, cmd string) ([]string, error) {
	var lines []string

	for {
		line, err := m.readLine(ctx)
		if err != nil {
			return lines, fmt.Errorf("%s: %w", cmd, err)
		}

		switch {
		case line == cmd:
			// Echo before ATE0 took effect.
		case line == "OK":
			return lines, nil
		case isFinalError(line):
			return lines, &CommandError{Command: cmd, Result: line}
		default:
			lines = append(lines, line)
		}
	}
}

// waitPrompt waits for the '>' that asks for the message body.
func (m *Modem) waitPrompt(ctx context.Context, cmd string) error {
	promptCtx, cancel := context.WithTimeout(ctx, m.opts.CommandTimeout)
	defer cancel()

	for {
		if i := bytes.IndexByte(m.buf, '>'); i >= 0 {
			m.buf = m.buf[i+1:]

			return nil
		}

		if i := bytes.IndexByte(m.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(m.buf[:i]))
			m.buf = m.buf[i+1:]

			if isFinalError(line) {
				return &CommandError{Command: cmd, Result: line}
			}

			continue
		}

		if err := m.fill(promptCtx); err != nil {
			return fmt.Errorf("%s: wait for prompt: %w", cmd, err)
		}
	}
}

func (m *Modem) readLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(m.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(m.buf[:i]))
			m.buf = m.buf[i+1:]

			if line != "" {
				return line, nil
			}

			continue
		}

		if err := m.fill(ctx); err != nil {
			return "", err
		}
	}
}

func (m *Modem) fill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := m.port.Read(m.chunk)
	if n > 0 {
		m.buf = append(m.buf, m.chunk[:n]...)

		return nil
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read serial: %w", err)
	}

	time.Sleep(idlePoll)

	return nil
}

func (m *Modem) write(s string) error {
	if _, err := io.WriteString(m.port, s); err != nil {
		return fmt.Errorf("write serial: %w", err)
	}

	return nil
}

func isFinalError(line string) bool {
	return line == "ERROR" ||
		line == "NO CARRIER" ||
		line == "BUSY" ||
		line == "NO ANSWER" ||
		strings.HasPrefix(line, "+CMS ERROR:") ||
		strings.HasPrefix(line, "+CME ERROR:")
}

func hasPrefix(lines []string, prefix string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}

// validateNumber applies the recipient rule of the domain before dialing.
func validateNumber(number string) error {
	if err := fall.ValidateRecipient(number); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidNumber, number, err)
	}

	return nil
}

// sanitizeBody removes the bytes that terminate or abort text entry.
func sanitizeBody(body string) string {
	return strings.Map(func(r rune) rune {
		if r == ctrlZ || r == esc {
			return -1
		}

		return r
	}, body)
}

func withDefaults(opts Options) Options {
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}

	if opts.CallDuration <= 0 {
		opts.CallDuration = DefaultCallDuration
	}

	return opts
}
