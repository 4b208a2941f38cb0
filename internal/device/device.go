package device

import (
	"context"
	"errors"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// ErrSensorUnavailable is returned when the motion sensor cannot be read.
var ErrSensorUnavailable = errors.New("motion sensor unavailable")

// MotionSource yields one 6-axis sample on demand.
type MotionSource interface {
	Read(ctx context.Context) (fall.Sample, error)
}

// AlertChannel sends alerts to a recipient. Both operations block until the
// transport reports success or failure, or ctx ends.
type AlertChannel interface {
	SendText(ctx context.Context, recipient, body string) error
	PlaceCall(ctx context.Context, recipient string) error
}

// CommandChannel is the inbound message store, addressed by slot index.
type CommandChannel interface {
	// ReadMessageAt returns the text stored at index and whether the slot holds a message.
	ReadMessageAt(ctx context.Context, index int) (string, bool, error)
	// DeleteMessageAt frees the slot at index.
	DeleteMessageAt(ctx context.Context, index int) error
}

// FeedbackSink drives the local outputs: motors, indicator light and display.
type FeedbackSink interface {
	SetIndicator(on bool)
	SetHapticMotor(on bool)
	SetVibrationMotor(on bool)
	RenderCountdown(secondsRemaining int)
	RenderStatus(status fall.Status)
}

// Apply forwards the intents to sink in order.
func Apply(sink FeedbackSink, feedback []fall.Feedback) {
	for _, f := range feedback {
		switch f.Kind {
		case fall.FeedbackIndicator:
			sink.SetIndicator(f.On)
		case fall.FeedbackHapticMotor:
			sink.SetHapticMotor(f.On)
		case fall.FeedbackVibrationMotor:
			sink.SetVibrationMotor(f.On)
		case fall.FeedbackCountdown:
			sink.RenderCountdown(f.Seconds)
		case fall.FeedbackStatus:
			sink.RenderStatus(f.Status)
		}
	}
}
