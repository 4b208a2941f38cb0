// Package display renders the wristband feedback on a terminal.
package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Terminal is a FeedbackSink that prints one line whenever the visible state changes.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer

	headline   string
	countdown  bool
	indicator  bool
	haptic     bool
	vibration  bool
	lastOutput string

	statusStyle    lipgloss.Style
	countdownStyle lipgloss.Style
	onStyle        lipgloss.Style
	offStyle       lipgloss.Style
}

// NewTerminal creates a display writing to out. Colors follow out's capabilities.
func NewTerminal(out io.Writer) *Terminal {
	renderer := lipgloss.NewRenderer(out)

	return &Terminal{
		out:            out,
		headline:       "C.A.R.E Wristband",
		statusStyle:    renderer.NewStyle().Foreground(lipgloss.Color("#FFFFFF")),
		countdownStyle: renderer.NewStyle().Foreground(lipgloss.Color("#FF3300")).Bold(true),
		onStyle:        renderer.NewStyle().Foreground(lipgloss.Color("#00CC33")).Bold(true),
		offStyle:       renderer.NewStyle().Foreground(lipgloss.Color("#555555")),
	}
}

// SetIndicator switches the indicator light.
func (t *Terminal) SetIndicator(on bool) {
	t.update(func() { t.indicator = on })
}

// SetHapticMotor switches the haptic motor.
func (t *Terminal) SetHapticMotor(on bool) {
	t.update(func() { t.haptic = on })
}

// SetVibrationMotor switches the vibration motor.
func (t *Terminal) SetVibrationMotor(on bool) {
	t.update(func() { t.vibration = on })
}

// RenderCountdown shows the seconds left before the alert.
func (t *Terminal) RenderCountdown(secondsRemaining int) {
	t.update(func() {
		t.countdown = true
		t.headline = fmt.Sprintf("Countdown: %02d", secondsRemaining)
	})
}

// RenderStatus shows the status text.
func (t *Terminal) RenderStatus(status fall.Status) {
	t.update(func() {
		t.countdown = false
		t.headline = "Status: " + status.String()
	})
}

// Banner prints a startup line such as a self-check result.
func (t *Terminal) Banner(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = fmt.Fprintln(t.out, t.statusStyle.Render(text))
}

func (t *Terminal) update(change func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	change()

	line := t.render()
	if line == t.lastOutput {
		return
	}

	t.lastOutput = line
	_, _ = fmt.Fprintln(t.out, line)
}

func (t *Terminal) render() string {
	headline := t.statusStyle.Render(t.headline)
	if t.countdown {
		headline = t.countdownStyle.Render(t.headline)
	}

	return fmt.Sprintf("%-16s  %s %s %s",
		headline,
		t.flag("LED", t.indicator),
		t.flag("HAPTIC", t.haptic),
		t.flag("VIB", t.vibration),
	)
}

func (t *Terminal) flag(name string, on bool) string {
	if on {
		return t.onStyle.Render(name + ":on")
	}

	return t.offStyle.Render(name + ":off")
}
