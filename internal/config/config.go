package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
)

// Config holds every tunable of the device.
type Config struct {
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level"`
	// Device holds identity and secrets.
	Device Device `yaml:"device"`
	// Detector holds the fall classification parameters.
	Detector Detector `yaml:"detector"`
	// Commands controls inbound SMS polling.
	Commands Commands `yaml:"commands"`
	// Alert controls outbound alert texts and calls.
	Alert Alert `yaml:"alert"`
	// Modem selects and configures the cellular modem.
	Modem Modem `yaml:"modem"`
	// Status configures the gRPC status service.
	Status Status `yaml:"status"`
	// JournalFile is where incidents are appended; empty disables the journal.
	JournalFile string `yaml:"journal_file"`
}

// Device holds the alert recipient and the command secret.
type Device struct {
	// DefaultRecipient is the phone number alerted until changed by command.
	DefaultRecipient string `yaml:"default_recipient"`
	// CommandPassword is the shared secret of /setnumber.
	CommandPassword string `yaml:"command_password"`
	// CommandPasswordHash is a bcrypt hash that replaces CommandPassword when set.
	CommandPasswordHash string `yaml:"command_password_hash"`
}

// Detector holds the fall state machine parameters.
type Detector struct {
	fall.Thresholds `yaml:",inline"`

	// FreeFallTimeout is how long a free fall may last without an impact.
	FreeFallTimeout time.Duration `yaml:"free_fall_timeout"`
	// Countdown is the self-cancel window before the alert fires.
	Countdown time.Duration `yaml:"countdown"`
	// TickPeriod is the sampling period of the control loop.
	TickPeriod time.Duration `yaml:"tick_period"`
}

// Commands controls the inbound message poller.
type Commands struct {
	// PollInterval is the time between two slot inspections.
	PollInterval time.Duration `yaml:"poll_interval"`
	// FirstIndex is the first inspected message slot.
	FirstIndex int `yaml:"first_index"`
	// LastIndex is the last inspected message slot.
	LastIndex int `yaml:"last_index"`
	// DeleteUnrecognized removes messages that are not commands after inspection.
	DeleteUnrecognized *bool `yaml:"delete_unrecognized"`
}

// Alert controls what is sent when a fall is confirmed.
type Alert struct {
	// Message is the alert text.
	Message string `yaml:"message"`
	// SelfTestMessage answers /test.
	SelfTestMessage string `yaml:"self_test_message"`
	// ConfirmationMessage answers a successful /setnumber.
	ConfirmationMessage string `yaml:"confirmation_message"`
	// SendTimeout bounds one send or call attempt.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// RetryAttempts is the total number of alert send attempts.
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryDelay is the pause between two attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// CallAfterText places a voice call after the alert text.
	CallAfterText bool `yaml:"call_after_text"`
	// CallDuration is how long the call is held before hanging up.
	CallDuration time.Duration `yaml:"call_duration"`
}

// Modem configures the serial modem.
type Modem struct {
	// Port is the serial device; empty selects the in-memory simulated modem.
	Port string `yaml:"port"`
	// BaudRate is the UART speed.
	BaudRate int `yaml:"baud_rate"`
	// CommandTimeout bounds a single AT exchange.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// Status configures the gRPC status service.
type Status struct {
	// ListenAddress is the service address; empty disables the service.
	ListenAddress string `yaml:"listen_address"`
	// Timeout is the per-call timeout used by clients.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "fall-alarm-settings.yaml"

	// DefaultFilePermissions is the permission of written settings and journal files.
	DefaultFilePermissions = 0o600

	// DefaultRecipient is the number alerted out of the box.
	DefaultRecipient = "+639629248120"
	// DefaultCommandPassword is the out-of-the-box command secret.
	DefaultCommandPassword = "5123"

	// DefaultFreeFallTimeout is the free-fall window.
	DefaultFreeFallTimeout = time.Second
	// DefaultCountdown is the self-cancel window.
	DefaultCountdown = 10 * time.Second
	// DefaultTickPeriod gives ~50 Hz sampling.
	DefaultTickPeriod = 20 * time.Millisecond

	// DefaultPollInterval is the time between two inbound slot inspections.
	DefaultPollInterval = 10 * time.Second
	// DefaultFirstIndex is the first inspected message slot.
	DefaultFirstIndex = 1
	// DefaultLastIndex is the last inspected message slot.
	DefaultLastIndex = 20

	// DefaultAlertMessage is the alert text.
	DefaultAlertMessage = "Fall detected! The wearer may need help."
	// DefaultSelfTestMessage answers /test.
	DefaultSelfTestMessage = "Test message from device."
	// DefaultConfirmationMessage answers a successful /setnumber.
	DefaultConfirmationMessage = "Number updated successfully."
	// DefaultSendTimeout bounds one send attempt.
	DefaultSendTimeout = 60 * time.Second
	// DefaultRetryAttempts sends the alert once.
	DefaultRetryAttempts = 1
	// DefaultRetryDelay is the pause between alert attempts.
	DefaultRetryDelay = 2 * time.Second
	// DefaultCallDuration is how long an escalation call rings.
	DefaultCallDuration = 10 * time.Second

	// DefaultBaudRate is the modem UART speed.
	DefaultBaudRate = 115200
	// DefaultCommandTimeout bounds one AT exchange.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultStatusAddress is where the status service listens.
	DefaultStatusAddress = "127.0.0.1:7070"
	// DefaultStatusTimeout is the per-call client timeout.
	DefaultStatusTimeout = 5 * time.Second
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSecretRequired is returned when neither password nor hash is configured.
	errSecretRequired = errors.New("command_password or command_password_hash must be provided")
	// errInvalidIndexRange is returned for an inverted or negative slot range.
	errInvalidIndexRange = errors.New("invalid message index range")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
	// errNegativeDuration is returned for negative durations.
	errNegativeDuration = errors.New("durations must not be negative")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Status: Status{
			ListenAddress: DefaultStatusAddress,
		},
	}

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path and validates it.
// An empty path reads DefaultConfigFilename and falls back to Default when that file is absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file holds the command secret.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for zero values and checks the result.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if err := validateDevice(&cfg.Device); err != nil {
		return err
	}

	if err := validateDetector(&cfg.Detector); err != nil {
		return err
	}

	if err := validateCommands(&cfg.Commands); err != nil {
		return err
	}

	if err := validateAlert(&cfg.Alert); err != nil {
		return err
	}

	validateModem(&cfg.Modem)

	return validateStatus(&cfg.Status)
}

func validateDevice(d *Device) error {
	if d.DefaultRecipient == "" {
		d.DefaultRecipient = DefaultRecipient
	}

	if err := fall.ValidateRecipient(d.DefaultRecipient); err != nil {
		return fmt.Errorf("invalid default recipient: %w", err)
	}

	if d.CommandPassword == "" && d.CommandPasswordHash == "" {
		d.CommandPassword = DefaultCommandPassword
	}

	if d.CommandPassword == "" && d.CommandPasswordHash == "" {
		return errSecretRequired
	}

	return nil
}

func validateDetector(d *Detector) error {
	defaults := fall.DefaultThresholds()
	for _, field := range []struct {
		v *int64
		d int64
	}{
		{&d.OneG, defaults.OneG},
		{&d.FreeFall, defaults.FreeFall},
		{&d.Impact, defaults.Impact},
		{&d.StandingMin, defaults.StandingMin},
		{&d.StandingMax, defaults.StandingMax},
		{&d.Rotation, defaults.Rotation},
	} {
		if *field.v == 0 {
			*field.v = field.d
		}
	}

	if err := d.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid detector thresholds: %w", err)
	}

	if d.FreeFallTimeout < 0 || d.Countdown < 0 || d.TickPeriod < 0 {
		return errNegativeDuration
	}

	d.FreeFallTimeout = orDefault(d.FreeFallTimeout, DefaultFreeFallTimeout)
	d.Countdown = orDefault(d.Countdown, DefaultCountdown)
	d.TickPeriod = orDefault(d.TickPeriod, DefaultTickPeriod)

	return nil
}

func validateCommands(c *Commands) error {
	if c.PollInterval < 0 {
		return errNegativeDuration
	}

	c.PollInterval = orDefault(c.PollInterval, DefaultPollInterval)

	if c.FirstIndex == 0 && c.LastIndex == 0 {
		c.FirstIndex, c.LastIndex = DefaultFirstIndex, DefaultLastIndex
	}

	if c.FirstIndex < 0 || c.LastIndex < c.FirstIndex {
		return fmt.Errorf("%w: %d..%d", errInvalidIndexRange, c.FirstIndex, c.LastIndex)
	}

	if c.DeleteUnrecognized == nil {
		deleteUnrecognized := true
		c.DeleteUnrecognized = &deleteUnrecognized
	}

	return nil
}

func validateAlert(a *Alert) error {
	if a.SendTimeout < 0 || a.RetryDelay < 0 || a.CallDuration < 0 || a.RetryAttempts < 0 {
		return errNegativeDuration
	}

	if a.Message == "" {
		a.Message = DefaultAlertMessage
	}

	if a.SelfTestMessage == "" {
		a.SelfTestMessage = DefaultSelfTestMessage
	}

	if a.ConfirmationMessage == "" {
		a.ConfirmationMessage = DefaultConfirmationMessage
	}

	if a.RetryAttempts == 0 {
		a.RetryAttempts = DefaultRetryAttempts
	}

	a.SendTimeout = orDefault(a.SendTimeout, DefaultSendTimeout)
	a.RetryDelay = orDefault(a.RetryDelay, DefaultRetryDelay)
	a.CallDuration = orDefault(a.CallDuration, DefaultCallDuration)

	return nil
}

func validateModem(m *Modem) {
	if m.BaudRate <= 0 {
		m.BaudRate = DefaultBaudRate
	}

	m.CommandTimeout = orDefault(m.CommandTimeout, DefaultCommandTimeout)
}

func validateStatus(s *Status) error {
	s.Timeout = orDefault(s.Timeout, DefaultStatusTimeout)

	if s.ListenAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", s.ListenAddress); err != nil {
		return fmt.Errorf("invalid status listen address: %w", err)
	}

	return nil
}

// orDefault returns d when v is not positive.
func orDefault(v, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}

	return v
}
