package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
	"github.com/oshokin/fall-alarm/internal/service/common"
)

// Options configures the operator commands.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Address overrides the status service address from config when specified.
	Address string
	// Wait keeps retrying a cancel until a countdown is running and the device accepts it.
	Wait bool
	// JournalFile overrides journal_file from config when specified.
	JournalFile string
	// Limit caps the number of journal entries shown; zero shows all.
	Limit int
	// Out receives the human-readable result.
	Out io.Writer
}

// ErrNotCancelled is returned when the device had no countdown to cancel.
var ErrNotCancelled = errors.New("no countdown to cancel")

var errNoAddress = errors.New("no status service address configured")

// defaultRetryInterval is the delay between two cancel attempts with Wait.
const defaultRetryInterval = time.Second

// Status prints the current device snapshot.
func Status(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "fall-alarm-ctl")

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	snap, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(opts.Out, FormatSnapshot(snap))

	return nil
}

// Cancel asks the device to stop its countdown on behalf of the current user.
func Cancel(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "fall-alarm-ctl")

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	// attempt tries once, returns (accepted, error).
	attempt := func() (bool, error) {
		snap, accepted, err := client.Cancel(ctx, actor)
		if err != nil {
			if !opts.Wait {
				return false, err
			}

			logger.ErrorKV(ctx, "Cancel failed", "error", err)

			return false, nil
		}

		if accepted {
			_, _ = fmt.Fprintf(opts.Out, "Countdown cancelled by %s with %s left\n",
				actor.String(), formatRemaining(snap.CountdownRemaining))

			return true, nil
		}

		if !opts.Wait {
			_, _ = fmt.Fprintf(opts.Out, "Nothing to cancel: device is %s\n", snap.State)

			return false, ErrNotCancelled
		}

		return false, nil
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	logger.Info(ctx, "Waiting for a countdown to cancel")

	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	address := cfg.Status.ListenAddress
	if opts.Address != "" {
		address = opts.Address
	}

	if address == "" {
		return nil, errNoAddress
	}

	logger.DebugKV(ctx, "Connecting to device", "address", address)

	return common.Dial(ctx, address, common.WithCallTimeout(cfg.Status.Timeout))
}

// FormatSnapshot renders snap as aligned key-value lines.
func FormatSnapshot(snap *fall.Snapshot) string {
	var b strings.Builder

	line := func(key, value string) {
		_, _ = fmt.Fprintf(&b, "%-14s %s\n", key+":", value)
	}

	line("State", fmt.Sprintf("%s since %s", snap.State, formatTime(snap.StateSince)))

	if snap.State == fall.Countdown {
		line("Countdown", formatRemaining(snap.CountdownRemaining))
	}

	line("Recipient", snap.Recipient)
	line("Magnitude", fmt.Sprintf("%d (%.2f g)", snap.Magnitude, snap.MagnitudeG))
	line("Ticks", fmt.Sprintf("%d", snap.Ticks))
	line("Next slot", fmt.Sprintf("%d", snap.NextCommandIndex))

	if a := snap.LastAlert; a != nil {
		result := "delivered"
		if a.Error != "" {
			result = "failed: " + a.Error
		}

		line("Last alert", fmt.Sprintf("%s to %s after %d attempt(s), %s", formatTime(a.At), a.Recipient, a.Attempts, result))
	} else {
		line("Last alert", "none")
	}

	line("Updated", formatTime(snap.UpdatedAt))

	return b.String()
}

func formatRemaining(d time.Duration) string {
	return fmt.Sprintf("%ds", int((d+time.Second-1)/time.Second))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}

	return t.Local().Format(time.RFC3339)
}
