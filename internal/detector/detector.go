package detector

import (
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Default timings.
const (
	DefaultFreeFallTimeout = time.Second
	DefaultCountdown       = 10 * time.Second
	DefaultAlertBody       = "Fall detected! The wearer may need help."
)

var (
	errRecipientRequired = errors.New("recipient cell must be provided")
	errInvalidTiming     = errors.New("free-fall timeout and countdown must be positive")
)

// Config holds the tunable parameters of the state machine.
type Config struct {
	// Thresholds classify the acceleration magnitude and angular rate.
	Thresholds fall.Thresholds
	// FreeFallTimeout is how long a free fall may last without an impact.
	FreeFallTimeout time.Duration
	// Countdown is the self-cancel window between impact and alert.
	Countdown time.Duration
	// AlertBody is the text sent to the recipient.
	AlertBody string
}

// Result is everything one tick produced.
type Result struct {
	// Previous is the state before the tick.
	Previous fall.State
	// State is the state after the tick.
	State fall.State
	// Magnitude is the acceleration magnitude of the sample.
	Magnitude int64
	// G is Magnitude in multiples of g.
	G float64
	// Feedback lists the local-output intents in the order they must be applied.
	Feedback []fall.Feedback
	// Alert is set on the single tick that fires the alert of an episode.
	Alert *fall.AlertIntent
	// Cancelled is true when a cancel signal ended the countdown on this tick.
	Cancelled bool
	// Recovered is true when recovery motion ended the AlertSent state on this tick.
	Recovered bool
}

// Changed reports whether the tick moved the machine to another state.
func (r *Result) Changed() bool {
	return r.Previous != r.State
}

// Detector is the fall lifecycle state machine. It is not safe for concurrent use;
// the control loop owns it.
type Detector struct {
	cfg       Config
	recipient *fall.Recipient

	state     fall.State
	enteredAt time.Time
	alertSent bool
}

// New creates a detector in the Normal state entered at now.
func New(cfg Config, recipient *fall.Recipient, now time.Time) (*Detector, error) {
	if recipient == nil {
		return nil, errRecipientRequired
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("validate thresholds: %w", err)
	}

	if cfg.FreeFallTimeout <= 0 || cfg.Countdown <= 0 {
		return nil, errInvalidTiming
	}

	if cfg.AlertBody == "" {
		cfg.AlertBody = DefaultAlertBody
	}

	return &Detector{
		cfg:       cfg,
		recipient: recipient,
		state:     fall.Normal,
		enteredAt: now,
	}, nil
}

// State returns the current lifecycle state.
func (d *Detector) State() fall.State {
	return d.state
}

// EnteredAt returns the time the current state was entered.
func (d *Detector) EnteredAt() time.Time {
	return d.enteredAt
}

// AlertSent reports whether the alert of the current episode has fired.
func (d *Detector) AlertSent() bool {
	return d.alertSent
}

// Remaining returns the countdown time left at now, or zero outside Countdown.
func (d *Detector) Remaining(now time.Time) time.Duration {
	if d.state != fall.Countdown {
		return 0
	}

	return max(d.cfg.Countdown-now.Sub(d.enteredAt), 0)
}

// Tick advances the machine by one sample. cancel reports whether the
// self-cancel signal was observed since the previous tick.
func (d *Detector) Tick(sample fall.Sample, now time.Time, cancel bool) Result {
	magnitude := sample.Magnitude()
	res := Result{
		Previous:  d.state,
		Magnitude: magnitude,
		G:         d.cfg.Thresholds.InG(magnitude),
	}

	switch d.state {
	case fall.Normal:
		d.tickNormal(&res, now)
	case fall.FreeFall:
		d.tickFreeFall(&res, now)
	case fall.ImpactDetected:
		d.tickImpactDetected(&res, now)
	case fall.Countdown:
		d.tickCountdown(&res, now, cancel)
	case fall.AlertSent:
		d.tickAlertSent(&res, sample, now)
	default:
		// Unreachable through the public API; recover into a known state.
		d.enter(&res, fall.Normal, now)
	}

	res.State = d.state

	return res
}

func (d *Detector) tickNormal(res *Result, now time.Time) {
	if d.cfg.Thresholds.IsFreeFall(res.Magnitude) {
		d.enter(res, fall.FreeFall, now)
	}
}

func (d *Detector) tickFreeFall(res *Result, now time.Time) {
	// An impact only counts inside the free-fall window.
	if now.Sub(d.enteredAt) > d.cfg.FreeFallTimeout {
		d.enter(res, fall.Normal, now)

		return
	}

	if d.cfg.Thresholds.IsImpact(res.Magnitude) {
		d.enter(res, fall.ImpactDetected, now)
	}
}

func (d *Detector) tickImpactDetected(res *Result, now time.Time) {
	res.Feedback = append(res.Feedback,
		fall.SetVibrationMotor(false),
		fall.SetHapticMotor(true),
		fall.SetIndicator(true),
	)

	d.enter(res, fall.Countdown, now)
}

func (d *Detector) tickCountdown(res *Result, now time.Time, cancel bool) {
	if cancel {
		res.Cancelled = true
		res.Feedback = append(res.Feedback,
			fall.SetVibrationMotor(true),
			fall.SetHapticMotor(false),
		)

		// Entering Normal turns the indicator off.
		d.enter(res, fall.Normal, now)

		return
	}

	elapsed := now.Sub(d.enteredAt)
	if elapsed >= d.cfg.Countdown && !d.alertSent {
		d.alertSent = true
		res.Alert = &fall.AlertIntent{
			Recipient: d.recipient.Get(),
			Body:      d.cfg.AlertBody,
		}
		res.Feedback = append(res.Feedback, fall.SetVibrationMotor(true))

		d.enter(res, fall.AlertSent, now)

		return
	}

	res.Feedback = append(res.Feedback, fall.RenderCountdown(remainingSeconds(d.cfg.Countdown, elapsed)))
}

func (d *Detector) tickAlertSent(res *Result, sample fall.Sample, now time.Time) {
	if !d.cfg.Thresholds.IsRecovery(res.Magnitude, sample) {
		return
	}

	res.Recovered = true
	res.Feedback = append(res.Feedback,
		fall.SetHapticMotor(false),
		fall.SetVibrationMotor(true),
	)

	d.enter(res, fall.Normal, now)
}

// enter switches to state, stamps the entry time and appends the state's entry feedback.
func (d *Detector) enter(res *Result, state fall.State, now time.Time) {
	d.state = state
	d.enteredAt = now

	switch state {
	case fall.Normal:
		d.alertSent = false
		res.Feedback = append(res.Feedback, fall.SetIndicator(false), fall.RenderStatus(fall.StatusNormal))
	case fall.AlertSent:
		res.Feedback = append(res.Feedback, fall.RenderStatus(fall.StatusAlertSent))
	case fall.FreeFall, fall.ImpactDetected, fall.Countdown:
	}
}

// remainingSeconds rounds the time left up to whole seconds.
func remainingSeconds(total, elapsed time.Duration) int {
	left := total - elapsed
	if left <= 0 {
		return 0
	}

	return int((left + time.Second - 1) / time.Second)
}
