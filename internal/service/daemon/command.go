package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/fall-alarm/internal/api/grpc/device"
	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/device/sim"
	"github.com/oshokin/fall-alarm/internal/display"
	"github.com/oshokin/fall-alarm/internal/logger"
	"github.com/oshokin/fall-alarm/internal/modem"
	"github.com/oshokin/fall-alarm/internal/motion"
	"github.com/oshokin/fall-alarm/internal/repository/journal"
	"github.com/oshokin/fall-alarm/internal/service/instance"
	"github.com/oshokin/fall-alarm/internal/version"
)

// Options controls the daemon process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// ListenAddress overrides the configured status service address when set.
	ListenAddress string
	// Simulate forces the in-memory modem and a scripted scenario.
	Simulate bool
	// Scenario names the scripted motion scenario used when simulating.
	Scenario string
	// Trace is a CSV motion trace; it replaces the scenario when set.
	Trace string
	// Loop replays the trace forever.
	Loop bool
	// Messages are delivered to the simulated modem inbox before start.
	Messages []string
	// StdinButton presses the cancel button on every line read from Stdin.
	StdinButton bool
	// SkipInstanceCheck allows several daemons on one machine.
	SkipInstanceCheck bool
	// Stdin and Stdout default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// DefaultScenario is simulated when none is named.
const DefaultScenario = "fall"

var errMotionRequired = errors.New("a motion trace is required outside simulation")

// Run loads the configuration, assembles the device and runs it until ctx ends
// or the motion source is exhausted.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "fall-alarm")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(ctx, cfg.LogLevel, opts.LogLevel)

	if !opts.SkipInstanceCheck {
		if err = instance.EnsureSingle(instance.CurrentExecutable()); err != nil {
			return err
		}
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	screen := display.NewTerminal(stdout)

	hw, cleanup, err := openHardware(ctx, cfg, opts, screen)
	defer cleanup()

	if err != nil {
		return err
	}

	dev, err := Assemble(cfg, hw, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenAddress := cfg.Status.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	serveErr := make(chan error, 1)

	if listenAddress != "" {
		lc := net.ListenConfig{}

		lis, listenErr := lc.Listen(ctx, "tcp", listenAddress)
		if listenErr != nil {
			return fmt.Errorf("listen on %s: %w", listenAddress, listenErr)
		}

		go func() {
			serveErr <- Serve(ctx, lis, dev.Remote)
		}()
	} else {
		close(serveErr)
	}

	if opts.StdinButton {
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}

		go watchButton(ctx, stdin, dev.Controller.Button().Press)
	}

	logger.InfoKV(ctx, "Wristband started", append([]any{
		"recipient", dev.Recipient.Get(),
		"status_address", listenAddress,
		"journal_file", cfg.JournalFile,
		"simulate", opts.Simulate,
	}, version.KV()...)...)

	runErr := dev.Controller.Run(ctx)

	cancel()

	if err = <-serveErr; err != nil && runErr == nil {
		runErr = err
	}

	if errors.Is(runErr, motion.ErrExhausted) {
		logger.Info(ctx, "Motion trace finished")

		runErr = nil
	}

	if modemSim, ok := hw.Modem.(*sim.Modem); ok {
		reportOutbox(screen, modemSim)
	}

	return runErr
}

// Serve runs the status service on lis until ctx ends.
func Serve(ctx context.Context, lis net.Listener, svc api.Service) error {
	grpcServer := grpc.NewServer()
	api.RegisterDeviceServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Status service listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop finishes so Serve returns only once the server fully stopped.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Status service stopped")

	return nil
}

func applyLogLevel(ctx context.Context, configured, override string) {
	name := configured
	if override != "" {
		name = override
	}

	level, ok := logger.ParseLogLevel(name)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, keeping current", "level", name)

		return
	}

	logger.SetLevel(level)
}

// openHardware selects the modem and the motion source. cleanup is never nil.
func openHardware(
	ctx context.Context,
	cfg *config.Config,
	opts *Options,
	screen *display.Terminal,
) (Hardware, func(), error) {
	hw := Hardware{Sink: screen}
	cleanup := func() {}

	if cfg.JournalFile != "" {
		hw.Journal = journal.NewFileRepository(cfg.JournalFile)
	}

	switch {
	case opts.Trace != "":
		replay, err := motion.Open(opts.Trace, opts.Loop)
		if err != nil {
			return hw, cleanup, fmt.Errorf("open motion trace: %w", err)
		}

		hw.Motion = replay
		cleanup = func() {
			if closeErr := replay.Close(); closeErr != nil {
				logger.WarnKV(ctx, "Closing motion trace failed", "error", closeErr)
			}
		}
	case opts.Simulate:
		name := opts.Scenario
		if name == "" {
			name = DefaultScenario
		}

		script, err := sim.NewScenario(name, cfg.Detector.TickPeriod, cfg.Detector.Countdown)
		if err != nil {
			return hw, cleanup, err
		}

		hw.Motion = script
		hw.StopWhen = script.Done
		screen.Banner(fmt.Sprintf("Simulating %q: %d ticks", name, script.Len()))
	default:
		return hw, cleanup, errMotionRequired
	}

	if opts.Simulate || cfg.Modem.Port == "" {
		modemSim := sim.NewModemRange(cfg.Commands.FirstIndex, cfg.Commands.LastIndex)

		for _, text := range opts.Messages {
			if _, err := modemSim.Deliver(text); err != nil {
				return hw, cleanup, fmt.Errorf("deliver simulated message: %w", err)
			}
		}

		hw.Modem = modemSim
		screen.Banner("Modem: simulated")

		return hw, cleanup, nil
	}

	m, err := modem.Open(ctx, cfg.Modem.Port, modem.Options{
		BaudRate:       cfg.Modem.BaudRate,
		CommandTimeout: cfg.Modem.CommandTimeout,
		SendTimeout:    cfg.Alert.SendTimeout,
		CallDuration:   cfg.Alert.CallDuration,
	})
	if err != nil {
		screen.Banner("Modem: not responding")

		return hw, cleanup, fmt.Errorf("modem self-check: %w", err)
	}

	screen.Banner("Modem: ready on " + cfg.Modem.Port)

	hw.Modem = m
	closeMotion := cleanup
	cleanup = func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Closing modem failed", "error", closeErr)
		}

		closeMotion()
	}

	return hw, cleanup, nil
}

// watchButton presses the cancel button on every line of r.
func watchButton(ctx context.Context, r io.Reader, press func()) {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		logger.Info(ctx, "Cancel button pressed")
		press()
	}
}

func reportOutbox(screen *display.Terminal, m *sim.Modem) {
	for _, out := range m.Outbox() {
		switch out.Kind {
		case sim.KindCall:
			screen.Banner("Called " + out.Recipient)
		default:
			screen.Banner(fmt.Sprintf("Texted %s: %s", out.Recipient, out.Body))
		}
	}
}
