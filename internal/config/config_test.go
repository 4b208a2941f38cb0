package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// TestDefault applies the wristband defaults.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.Equal(t, DefaultRecipient, cfg.Device.DefaultRecipient)
	require.Equal(t, DefaultCommandPassword, cfg.Device.CommandPassword)
	require.Equal(t, fall.DefaultThresholds(), cfg.Detector.Thresholds)
	require.Equal(t, time.Second, cfg.Detector.FreeFallTimeout)
	require.Equal(t, 10*time.Second, cfg.Detector.Countdown)
	require.Equal(t, 20*time.Millisecond, cfg.Detector.TickPeriod)
	require.Equal(t, 10*time.Second, cfg.Commands.PollInterval)
	require.Equal(t, 1, cfg.Commands.FirstIndex)
	require.Equal(t, 20, cfg.Commands.LastIndex)
	require.True(t, *cfg.Commands.DeleteUnrecognized)
	require.Equal(t, 1, cfg.Alert.RetryAttempts)
	require.Equal(t, DefaultStatusAddress, cfg.Status.ListenAddress)
	require.Empty(t, cfg.Modem.Port)
	require.Equal(t, DefaultBaudRate, cfg.Modem.BaudRate)
}

// TestValidate checks rejected settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	cfg := Default()
	cfg.Device.DefaultRecipient = "+6391234567890123456789"
	require.ErrorIs(t, Validate(cfg), fall.ErrRecipientTooLong)

	cfg = Default()
	cfg.Detector.Impact = 10000
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Commands.FirstIndex, cfg.Commands.LastIndex = 10, 2
	require.ErrorIs(t, Validate(cfg), errInvalidIndexRange)

	cfg = Default()
	cfg.Detector.Countdown = -time.Second
	require.ErrorIs(t, Validate(cfg), errNegativeDuration)

	cfg = Default()
	cfg.LogLevel = "chatty"
	require.ErrorIs(t, Validate(cfg), errUnknownLogLevel)

	cfg = Default()
	cfg.Status.ListenAddress = "bad:address"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Status.ListenAddress = ""
	require.NoError(t, Validate(cfg))
}

// TestLoad_PartialFile keeps defaults for omitted keys.
func TestLoad_PartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `
log_level: debug
device:
  default_recipient: "+639111111111"
detector:
  impact_threshold: 42000
  countdown: 15s
commands:
  delete_unrecognized: false
alert:
  retry_attempts: 3
  call_after_text: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "+639111111111", cfg.Device.DefaultRecipient)
	require.Equal(t, DefaultCommandPassword, cfg.Device.CommandPassword)
	require.Equal(t, int64(42000), cfg.Detector.Impact)
	require.Equal(t, int64(fall.DefaultFreeFall), cfg.Detector.FreeFall)
	require.Equal(t, 15*time.Second, cfg.Detector.Countdown)
	require.False(t, *cfg.Commands.DeleteUnrecognized)
	require.Equal(t, 3, cfg.Alert.RetryAttempts)
	require.True(t, cfg.Alert.CallAfterText)
	require.Empty(t, cfg.Status.ListenAddress)
}

// TestLoad_Errors covers missing and broken files.
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("detector: [1, 2"), DefaultFilePermissions))

	_, err = Load(broken)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.Device.DefaultRecipient = "+639222222222"
	settings.Detector.TickPeriod = 10 * time.Millisecond
	settings.Modem.Port = "/dev/ttyUSB2"

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	require.Error(t, Save(path, nil))
}
