package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/fall-alarm/internal/command"
	"github.com/oshokin/fall-alarm/internal/detector"
	"github.com/oshokin/fall-alarm/internal/device"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
	"github.com/oshokin/fall-alarm/internal/repository/journal"
)

// ErrAlertSendFailed is recorded when every alert attempt failed.
var ErrAlertSendFailed = errors.New("alert send failed")

var errMissingDependency = errors.New("detector, motion source, alert channel, feedback sink and recipient must be provided")

// Options controls loop timing and alert dispatch.
type Options struct {
	// TickPeriod is the sampling period.
	TickPeriod time.Duration
	// PollInterval is the time between two inbound slot inspections.
	PollInterval time.Duration
	// SendTimeout bounds one alert send and the setup of a call.
	SendTimeout time.Duration
	// CallDuration is how long an escalation call is held. It is added to
	// SendTimeout to form the call deadline.
	CallDuration time.Duration
	// Attempts is the total number of alert sends tried per episode.
	Attempts int
	// RetryDelay is the pause between two attempts.
	RetryDelay time.Duration
	// CallAfterText escalates every alert with a voice call.
	CallAfterText bool
	// StopWhen ends Run after a tick when it returns true.
	StopWhen func() bool
}

// Deps are the collaborators of the loop. Poller, Button, Board and Journal are optional.
type Deps struct {
	Detector  *detector.Detector
	Poller    *command.Poller
	Motion    device.MotionSource
	Alerts    device.AlertChannel
	Sink      device.FeedbackSink
	Recipient *fall.Recipient
	Button    *Button
	Board     *Board
	Journal   journal.Repository
}

// Controller is the fixed-rate control loop.
type Controller struct {
	deps      Deps
	opts      Options
	lastPoll  time.Time
	ticks     uint64
	lastAlert *fall.AlertReport
}

// New creates a controller whose first command poll happens one interval after start.
func New(deps Deps, opts Options, start time.Time) (*Controller, error) {
	if deps.Detector == nil || deps.Motion == nil || deps.Alerts == nil || deps.Sink == nil || deps.Recipient == nil {
		return nil, errMissingDependency
	}

	if deps.Button == nil {
		deps.Button = new(Button)
	}

	if deps.Board == nil {
		deps.Board = new(Board)
	}

	if opts.TickPeriod <= 0 {
		opts.TickPeriod = 20 * time.Millisecond
	}

	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = time.Minute
	}

	c := &Controller{
		deps:     deps,
		opts:     opts,
		lastPoll: start,
	}

	c.publish(start, &detector.Result{})

	return c, nil
}

// Button returns the cancel button of the loop.
func (c *Controller) Button() *Button {
	return c.deps.Button
}

// Board returns the status board of the loop.
func (c *Controller) Board() *Board {
	return c.deps.Board
}

// Run ticks until ctx ends, StopWhen holds, or the sensor fails.
func (c *Controller) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "controller")

	ticker := time.NewTicker(c.opts.TickPeriod)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Control loop started",
		"tick_period", c.opts.TickPeriod.String(),
		"poll_interval", c.opts.PollInterval.String(),
		"recipient", c.deps.Recipient.Get(),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Control loop stopped")

			return nil
		case now := <-ticker.C:
			if err := c.Step(ctx, now); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			if c.opts.StopWhen != nil && c.opts.StopWhen() {
				logger.Info(ctx, "Control loop finished")

				return nil
			}
		}
	}
}

// Step performs one tick at now.
func (c *Controller) Step(ctx context.Context, now time.Time) error {
	c.pollCommands(ctx, now)

	sample, err := c.deps.Motion.Read(ctx)
	if err != nil {
		if errors.Is(err, device.ErrSensorUnavailable) {
			return err
		}

		return fmt.Errorf("%w: %w", device.ErrSensorUnavailable, err)
	}

	cancel := c.deps.Button.Consume()
	res := c.deps.Detector.Tick(sample, now, cancel)
	c.ticks++

	logger.DebugKV(ctx, "Tick",
		"sample", sample.String(),
		"magnitude", res.Magnitude,
		"g", res.G,
		"state", res.State.String())

	if res.Changed() {
		logTransition(ctx, &res)
	}

	device.Apply(c.deps.Sink, res.Feedback)

	switch {
	case res.Alert != nil:
		c.dispatch(ctx, now, res.Alert)
	case res.Cancelled:
		c.record(ctx, journal.Entry{Time: now, Kind: journal.KindCancelled})
	case res.Recovered:
		c.record(ctx, journal.Entry{Time: now, Kind: journal.KindRecovered})
	}

	c.publish(now, &res)

	return nil
}

func (c *Controller) pollCommands(ctx context.Context, now time.Time) {
	if c.deps.Poller == nil || now.Sub(c.lastPoll) <= c.opts.PollInterval {
		return
	}

	ctx = logger.WithName(ctx, "commands")

	res, err := c.deps.Poller.PollOnce(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Command poll failed", "error", err)
	}

	if res != nil {
		logger.InfoKV(ctx, "Command processed",
			"kind", res.Command.Kind.String(),
			"applied", res.Applied,
			"replied", res.Replied,
		)
	}

	c.lastPoll = now
}

// dispatch sends the alert with bounded retries. Failure never changes detector state.
func (c *Controller) dispatch(ctx context.Context, now time.Time, alert *fall.AlertIntent) {
	ctx = logger.WithKV(logger.WithName(ctx, "alert"), "recipient", alert.Recipient)

	report := &fall.AlertReport{Recipient: alert.Recipient}

	var err error

	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		if attempt > 1 && !sleep(ctx, c.opts.RetryDelay) {
			break
		}

		report.Attempts = attempt

		sendCtx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
		err = c.deps.Alerts.SendText(sendCtx, alert.Recipient, alert.Body)
		cancel()

		if err == nil {
			break
		}

		logger.ErrorKV(ctx, "Alert send attempt failed", "attempt", attempt, "of", c.opts.Attempts, "error", err)
	}

	report.At = now

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAlertSendFailed, err)
		report.Error = err.Error()

		logger.ErrorKV(ctx, "Alert not delivered", "attempts", report.Attempts, "error", err)
		c.record(ctx, journal.Entry{Time: now, Kind: journal.KindAlertFailed, Recipient: alert.Recipient, Detail: report.Error})
	} else {
		logger.InfoKV(ctx, "Alert sent", "attempts", report.Attempts)
		c.record(ctx, journal.Entry{Time: now, Kind: journal.KindAlertSent, Recipient: alert.Recipient})
	}

	c.lastAlert = report

	if c.opts.CallAfterText {
		c.call(ctx, now, alert.Recipient)
	}
}

func (c *Controller) call(ctx context.Context, now time.Time, recipient string) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout+c.opts.CallDuration)
	defer cancel()

	logger.Info(ctx, "Calling recipient")

	if err := c.deps.Alerts.PlaceCall(callCtx, recipient); err != nil {
		logger.ErrorKV(ctx, "Call failed", "error", err)
		c.record(ctx, journal.Entry{Time: now, Kind: journal.KindCallFailed, Recipient: recipient, Detail: err.Error()})

		return
	}

	logger.Info(ctx, "Call ended")
	c.record(ctx, journal.Entry{Time: now, Kind: journal.KindCallPlaced, Recipient: recipient})
}

func (c *Controller) record(ctx context.Context, entry journal.Entry) {
	if c.deps.Journal == nil {
		return
	}

	if err := c.deps.Journal.Append(ctx, entry); err != nil {
		logger.ErrorKV(ctx, "Journal append failed", "kind", entry.Kind, "error", err)
	}
}

func (c *Controller) publish(now time.Time, res *detector.Result) {
	d := c.deps.Detector

	snap := &fall.Snapshot{
		State:              d.State(),
		StateSince:         d.EnteredAt(),
		Recipient:          c.deps.Recipient.Get(),
		CountdownRemaining: d.Remaining(now),
		Magnitude:          res.Magnitude,
		MagnitudeG:         res.G,
		Ticks:              c.ticks,
		LastAlert:          c.lastAlert,
		UpdatedAt:          now,
	}

	if c.deps.Poller != nil {
		snap.NextCommandIndex = c.deps.Poller.Next()
	}

	c.deps.Board.publish(snap)
}

func logTransition(ctx context.Context, res *detector.Result) {
	from, to := res.Previous.String(), res.State.String()

	switch {
	case res.State == fall.FreeFall, res.Previous == fall.FreeFall && res.State == fall.Normal:
		logger.DebugKV(ctx, "State changed", "from", from, "to", to, "magnitude", res.Magnitude)
	case res.Cancelled:
		logger.InfoKV(ctx, "Countdown cancelled", "from", from, "to", to)
	case res.Recovered:
		logger.InfoKV(ctx, "Wearer recovered", "from", from, "to", to, "magnitude", res.Magnitude)
	default:
		logger.InfoKV(ctx, "State changed", "from", from, "to", to, "magnitude", res.Magnitude)
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
