package modem

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

const (
	ok       = "\r\nOK\r\n"
	endOfSMS = "<^Z>"
)

// fakePort answers AT commands through respond. Commands end at '\r'; an SMS body ends at Ctrl-Z.
type fakePort struct {
	mu      sync.Mutex
	pending bytes.Buffer
	partial []byte
	written []string
	respond func(cmd string) string
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range p {
		if b != '\r' && b != ctrlZ {
			f.partial = append(f.partial, b)

			continue
		}

		token := string(f.partial)
		if b == ctrlZ {
			token += endOfSMS
		}

		f.partial = f.partial[:0]
		f.written = append(f.written, token)
		f.pending.WriteString(f.respond(token))
	}

	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending.Len() == 0 {
		return 0, nil
	}

	return f.pending.Read(p)
}

func (f *fakePort) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.written...)
}

// sim7600 mimics the replies of a SIM7600 in text mode.
func sim7600(cmd string) string {
	switch cmd {
	case "AT", "ATE0", "AT+CMGF=1", "AT+CMGD=1", "ATD+639000000000;", "ATH":
		return ok
	case `AT+CMGS="+639000000000"`:
		return "\r\n> "
	case `AT+CMGS="+639000000001"`:
		return "\r\n+CMS ERROR: 304\r\n"
	case "Fall detected" + endOfSMS:
		return "\r\n+CMGS: 7\r\n" + ok
	case "AT+CMGR=1":
		return "\r\n+CMGR: \"REC UNREAD\",\"+639111111111\",\"\",\"26/10/18,10:00:00+32\"\r\n" +
			"/setnumber 5123 +639000000000\r\n" + ok
	case "AT+CMGR=2":
		return ok
	case "AT+CMGR=3":
		return "\r\n+CMS ERROR: 321\r\n"
	case "AT+CMGR=4":
		return "\r\n+CMS ERROR: 500\r\n"
	default:
		return ""
	}
}

func newModem(respond func(string) string) (*Modem, *fakePort) {
	port := &fakePort{respond: respond}

	return New(port, Options{
		CommandTimeout: 200 * time.Millisecond,
		CallDuration:   10 * time.Millisecond,
	}), port
}

// TestInit sends the setup sequence and tolerates echo.
func TestInit(t *testing.T) {
	t.Parallel()

	echoing := func(cmd string) string {
		return cmd + "\r" + sim7600(cmd)
	}

	m, port := newModem(echoing)
	require.NoError(t, m.Init(context.Background()))
	require.Equal(t, []string{"AT", "ATE0", "AT+CMGF=1"}, port.commands())
	require.NoError(t, m.Close())
}

// TestInit_NoAnswer times out on a silent modem.
func TestInit_NoAnswer(t *testing.T) {
	t.Parallel()

	m, _ := newModem(func(string) string { return "" })

	err := m.Init(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestSendText walks the prompt, body and message reference.
func TestSendText(t *testing.T) {
	t.Parallel()

	m, port := newModem(sim7600)

	require.NoError(t, m.SendText(context.Background(), "+639000000000", "Fall\x1a detected"))
	require.Equal(t, []string{`AT+CMGS="+639000000000"`, "Fall detected" + endOfSMS}, port.commands())
}

// TestSendText_Errors covers rejected numbers and network errors.
func TestSendText_Errors(t *testing.T) {
	t.Parallel()

	m, port := newModem(sim7600)

	err := m.SendText(context.Background(), "+63900;ATH", "x")
	require.ErrorIs(t, err, ErrInvalidNumber)
	require.Empty(t, port.commands())

	err = m.SendText(context.Background(), "+639000000001", "x")
	require.ErrorIs(t, err, ErrCommandFailed)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, "+CMS ERROR: 304", cmdErr.Result)
}

// TestReadMessageAt parses bodies and treats empty slots as absent.
func TestReadMessageAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newModem(sim7600)

	text, found, err := m.ReadMessageAt(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "/setnumber 5123 +639000000000", text)

	_, found, err = m.ReadMessageAt(ctx, 2)
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = m.ReadMessageAt(ctx, 3)
	require.NoError(t, err)
	require.False(t, found)

	_, _, err = m.ReadMessageAt(ctx, 4)
	require.ErrorIs(t, err, ErrCommandFailed)

	require.NoError(t, m.DeleteMessageAt(ctx, 1))
}

// TestPlaceCall dials, waits and hangs up.
func TestPlaceCall(t *testing.T) {
	t.Parallel()

	m, port := newModem(sim7600)

	require.NoError(t, m.PlaceCall(context.Background(), "+639000000000"))
	require.Equal(t, []string{"ATD+639000000000;", "ATH"}, port.commands())
}

// TestPlaceCall_CancelledStillHangsUp hangs up when the caller gives up mid-call.
func TestPlaceCall_CancelledStillHangsUp(t *testing.T) {
	t.Parallel()

	m, port := newModem(sim7600)
	m.opts.CallDuration = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.PlaceCall(ctx, "+639000000000")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, []string{"ATD+639000000000;", "ATH"}, port.commands())
}

// TestValidateNumber accepts international and local numbers only.
func TestValidateNumber(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateNumber("+639629248120"))
	require.NoError(t, validateNumber("09171234567"))
	require.Error(t, validateNumber("+"))
	require.Error(t, validateNumber(""))
	require.Error(t, validateNumber("+63 917"))
	require.ErrorIs(t, validateNumber("call-me"), ErrInvalidNumber)
	require.ErrorIs(t, validateNumber("call-me"), fall.ErrRecipientInvalid)
}
