package fall

import "fmt"

// FeedbackKind selects the local output a Feedback drives.
type FeedbackKind int

// Feedback kinds.
const (
	FeedbackIndicator FeedbackKind = iota + 1
	FeedbackHapticMotor
	FeedbackVibrationMotor
	FeedbackCountdown
	FeedbackStatus
)

// Status is the text shown on the display outside the countdown.
type Status int

// Display statuses.
const (
	StatusNormal Status = iota + 1
	StatusAlertSent
)

// String returns the display label.
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusAlertSent:
		return "SMS Sent"
	default:
		return "Unknown"
	}
}

// Feedback is a single local-output intent. Only the field matching Kind is meaningful.
type Feedback struct {
	// Kind selects the output.
	Kind FeedbackKind
	// On is the requested level for the indicator and motors.
	On bool
	// Seconds is the countdown value to render.
	Seconds int
	// Status is the status text to render.
	Status Status
}

// SetIndicator returns an indicator-light intent.
func SetIndicator(on bool) Feedback {
	return Feedback{Kind: FeedbackIndicator, On: on}
}

// SetHapticMotor returns a haptic-motor intent.
func SetHapticMotor(on bool) Feedback {
	return Feedback{Kind: FeedbackHapticMotor, On: on}
}

// SetVibrationMotor returns a vibration-motor intent.
func SetVibrationMotor(on bool) Feedback {
	return Feedback{Kind: FeedbackVibrationMotor, On: on}
}

// RenderCountdown returns a countdown render intent.
func RenderCountdown(seconds int) Feedback {
	return Feedback{Kind: FeedbackCountdown, Seconds: seconds}
}

// RenderStatus returns a status render intent.
func RenderStatus(status Status) Feedback {
	return Feedback{Kind: FeedbackStatus, Status: status}
}

// String renders the intent for logs and test failure messages.
func (f Feedback) String() string {
	switch f.Kind {
	case FeedbackIndicator:
		return fmt.Sprintf("indicator(%t)", f.On)
	case FeedbackHapticMotor:
		return fmt.Sprintf("haptic(%t)", f.On)
	case FeedbackVibrationMotor:
		return fmt.Sprintf("vibration(%t)", f.On)
	case FeedbackCountdown:
		return fmt.Sprintf("countdown(%d)", f.Seconds)
	case FeedbackStatus:
		return fmt.Sprintf("status(%s)", f.Status)
	default:
		return "unknown"
	}
}

// AlertIntent asks the alert channel to text Recipient.
type AlertIntent struct {
	// Recipient is the phone number read when the alert fired.
	Recipient string
	// Body is the message text.
	Body string
}
