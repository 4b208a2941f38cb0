package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/fall-alarm/internal/command"
	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/detector"
	"github.com/oshokin/fall-alarm/internal/device"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/repository/journal"
	"github.com/oshokin/fall-alarm/internal/service/controller"
)

// Modem is a cellular modem used both for alerts and for inbound commands.
type Modem interface {
	device.AlertChannel
	device.CommandChannel
}

// Hardware are the collaborators the configuration does not describe.
type Hardware struct {
	Motion  device.MotionSource
	Modem   Modem
	Sink    device.FeedbackSink
	Journal journal.Repository
	// StopWhen ends the control loop after a tick when it returns true.
	StopWhen func() bool
}

// Device is an assembled wristband.
type Device struct {
	Controller *controller.Controller
	Remote     *controller.Remote
	Recipient  *fall.Recipient
}

var errHardwareRequired = errors.New("motion source, modem and feedback sink must be provided")

// Assemble wires the detector, the command poller and the controller from cfg.
// cfg must have passed config.Validate.
func Assemble(cfg *config.Config, hw Hardware, start time.Time) (*Device, error) {
	if hw.Motion == nil || hw.Modem == nil || hw.Sink == nil {
		return nil, errHardwareRequired
	}

	recipient := fall.NewRecipient(cfg.Device.DefaultRecipient)

	det, err := detector.New(detector.Config{
		Thresholds:      cfg.Detector.Thresholds,
		FreeFallTimeout: cfg.Detector.FreeFallTimeout,
		Countdown:       cfg.Detector.Countdown,
		AlertBody:       cfg.Alert.Message,
	}, recipient, start)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	auth, err := command.NewAuthenticator(cfg.Device.CommandPassword, cfg.Device.CommandPasswordHash)
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	processor, err := command.NewProcessor(recipient, auth, hw.Modem, command.Options{
		ConfirmationMessage: cfg.Alert.ConfirmationMessage,
		SelfTestMessage:     cfg.Alert.SelfTestMessage,
		ReplyTimeout:        cfg.Alert.SendTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create command processor: %w", err)
	}

	poller, err := command.NewPoller(hw.Modem, processor, command.PollerOptions{
		FirstIndex:       cfg.Commands.FirstIndex,
		LastIndex:        cfg.Commands.LastIndex,
		KeepUnrecognized: cfg.Commands.DeleteUnrecognized != nil && !*cfg.Commands.DeleteUnrecognized,
	})
	if err != nil {
		return nil, fmt.Errorf("create command poller: %w", err)
	}

	ctrl, err := controller.New(controller.Deps{
		Detector:  det,
		Poller:    poller,
		Motion:    hw.Motion,
		Alerts:    hw.Modem,
		Sink:      hw.Sink,
		Recipient: recipient,
		Journal:   hw.Journal,
	}, controller.Options{
		TickPeriod:    cfg.Detector.TickPeriod,
		PollInterval:  cfg.Commands.PollInterval,
		SendTimeout:   cfg.Alert.SendTimeout,
		CallDuration:  cfg.Alert.CallDuration,
		Attempts:      cfg.Alert.RetryAttempts,
		RetryDelay:    cfg.Alert.RetryDelay,
		CallAfterText: cfg.Alert.CallAfterText,
		StopWhen:      hw.StopWhen,
	}, start)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	return &Device{
		Controller: ctrl,
		Remote:     controller.NewRemote(ctrl.Board(), ctrl.Button()),
		Recipient:  recipient,
	}, nil
}
