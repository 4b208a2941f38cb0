package daemon

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/device/sim"
	"github.com/oshokin/fall-alarm/internal/display"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/service/common"
)

const fastSettings = `
log_level: warn
detector:
  tick_period: 2ms
  countdown: 150ms
commands:
  poll_interval: 1ms
alert:
  message: "Fall detected"
  retry_delay: 1ms
`

func writeSettings(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestAssembleRequiresHardware(t *testing.T) {
	t.Parallel()

	_, err := Assemble(config.Default(), Hardware{}, time.Now())
	require.ErrorIs(t, err, errHardwareRequired)
}

func TestAssembleFromDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	modem := sim.NewModem(cfg.Commands.LastIndex)
	script := sim.NewScript(cfg.Detector.TickPeriod,
		sim.Phase{Sample: sim.Weightless, Duration: 100 * time.Millisecond},
		sim.Phase{Sample: sim.Impact, Duration: 40 * time.Millisecond},
		sim.Phase{Sample: sim.Lying, Duration: cfg.Detector.Countdown + time.Second},
	)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	dev, err := Assemble(cfg, Hardware{
		Motion: script,
		Modem:  modem,
		Sink:   display.NewTerminal(new(bytes.Buffer)),
	}, start)
	require.NoError(t, err)

	now := start
	for !script.Done() {
		now = now.Add(cfg.Detector.TickPeriod)
		require.NoError(t, dev.Controller.Step(context.Background(), now))
	}

	out := modem.Outbox()
	require.Len(t, out, 1)
	require.Equal(t, config.DefaultRecipient, out[0].Recipient)
	require.Equal(t, config.DefaultAlertMessage, out[0].Body)
	require.Equal(t, fall.AlertSent, dev.Remote.Snapshot(context.Background()).State)
}

func TestAssembleKeepsUnrecognizedWhenConfigured(t *testing.T) {
	t.Parallel()

	keep := false
	cfg := config.Default()
	cfg.Commands.DeleteUnrecognized = &keep
	cfg.Commands.PollInterval = time.Millisecond

	modem := sim.NewModem(cfg.Commands.LastIndex)
	_, err := modem.Deliver("see you at lunch")
	require.NoError(t, err)

	start := time.Now()

	dev, err := Assemble(cfg, Hardware{
		Motion: sim.NewScript(cfg.Detector.TickPeriod),
		Modem:  modem,
		Sink:   display.NewTerminal(new(bytes.Buffer)),
	}, start)
	require.NoError(t, err)

	require.NoError(t, dev.Controller.Step(context.Background(), start.Add(time.Second)))
	require.Equal(t, []int{1}, modem.Inbox())
}

func TestRunRequiresMotionOutsideSimulation(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ConfigPath:        writeSettings(t, fastSettings),
		SkipInstanceCheck: true,
		Stdout:            new(bytes.Buffer),
	})
	require.ErrorIs(t, err, errMotionRequired)
}

func TestRunUnknownScenario(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ConfigPath:        writeSettings(t, fastSettings),
		Simulate:          true,
		Scenario:          "tumble",
		SkipInstanceCheck: true,
		Stdout:            new(bytes.Buffer),
	})
	require.ErrorContains(t, err, "unknown scenario")
}

func TestRunSimulatedFall(t *testing.T) {
	t.Parallel()

	stdout := new(bytes.Buffer)
	journalFile := filepath.Join(t.TempDir(), "journal.log")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := Run(ctx, &Options{
		ConfigPath:        writeSettings(t, fastSettings+"journal_file: "+journalFile+"\n"),
		Simulate:          true,
		Scenario:          "fall",
		Messages:          []string{"/setnumber 5123 +15550001111"},
		SkipInstanceCheck: true,
		Stdout:            stdout,
	})
	require.NoError(t, err)

	screen := stdout.String()
	require.Contains(t, screen, "Modem: simulated")
	require.Contains(t, screen, "Texted +15550001111: Number updated successfully.")
	require.Contains(t, screen, "Texted +15550001111: Fall detected")

	data, err := os.ReadFile(journalFile)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "alert_sent"))
}

func freeAddress(t *testing.T) string {
	t.Helper()

	lis, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	return address
}

// waitState polls the status service until the device reports want.
func waitState(ctx context.Context, t *testing.T, client *common.Client, want fall.State) {
	t.Helper()

	require.Eventually(t, func() bool {
		snap, err := client.GetStatus(ctx)

		return err == nil && snap.State == want
	}, 20*time.Second, 10*time.Millisecond)
}

func TestRunStdinButtonCancelsCountdown(t *testing.T) {
	t.Parallel()

	stdout := new(bytes.Buffer)
	journalFile := filepath.Join(t.TempDir(), "journal.log")
	address := freeAddress(t)
	reader, writer := io.Pipe()

	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings := strings.Replace(fastSettings, "150ms", "20s", 1) + "journal_file: " + journalFile + "\n"
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{
			ConfigPath:        writeSettings(t, settings),
			ListenAddress:     address,
			Simulate:          true,
			Scenario:          "fall",
			SkipInstanceCheck: true,
			StdinButton:       true,
			Stdin:             reader,
			Stdout:            stdout,
		})
	}()

	client, err := common.Dial(ctx, address, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer client.Close()

	waitState(ctx, t, client, fall.Countdown)

	_, err = writer.Write([]byte("\n"))
	require.NoError(t, err)

	waitState(ctx, t, client, fall.Normal)

	cancel()
	require.NoError(t, <-done)

	data, err := os.ReadFile(journalFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "cancelled")
	require.NotContains(t, string(data), "alert_sent")
}

func TestServeStatus(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	modem := sim.NewModem(cfg.Commands.LastIndex)

	dev, err := Assemble(cfg, Hardware{
		Motion: sim.NewScript(cfg.Detector.TickPeriod),
		Modem:  modem,
		Sink:   display.NewTerminal(new(bytes.Buffer)),
	}, time.Now())
	require.NoError(t, err)

	lis, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() {
		served <- Serve(ctx, lis, dev.Remote)
	}()

	client, err := common.Dial(ctx, lis.Addr().String(), common.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	defer client.Close()

	snap, err := client.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, fall.Normal, snap.State)
	require.Equal(t, config.DefaultRecipient, snap.Recipient)

	_, accepted, err := client.Cancel(ctx, fall.Actor{Hostname: "desk", Username: "nurse"})
	require.NoError(t, err)
	require.False(t, accepted)

	cancel()
	require.NoError(t, <-served)
}

func TestOpenHardwareDeliversFromFirstIndex(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Commands.FirstIndex = 4
	cfg.Commands.LastIndex = 5

	hw, cleanup, err := openHardware(context.Background(), cfg, &Options{
		Simulate: true,
		Messages: []string{"/test", "/setnumber 5123 +15550001111"},
	}, display.NewTerminal(new(bytes.Buffer)))
	defer cleanup()

	require.NoError(t, err)

	modem, ok := hw.Modem.(*sim.Modem)
	require.True(t, ok)
	require.Equal(t, []int{4, 5}, modem.Inbox())
}

func TestOpenHardwareStreamsTrace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte("ax,ay,az,gx,gy,gz\n0,0,16384,0,0,0\n"), 0o600))

	hw, cleanup, err := openHardware(context.Background(), config.Default(), &Options{
		Simulate: true,
		Trace:    path,
	}, display.NewTerminal(new(bytes.Buffer)))
	defer cleanup()

	require.NoError(t, err)

	sample, err := hw.Motion.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, int16(16384), sample.AZ)
}
