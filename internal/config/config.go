package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/wifi-sentinel/internal/logger"
)

// Config holds the sensor settings.
type Config struct {
	// Interface is the monitor-mode wireless interface to capture on.
	Interface string `yaml:"interface"`
	// ReplayFile is a pcap or pcapng file replayed instead of live capture.
	ReplayFile string `yaml:"replay_file,omitempty"`
	// AlarmPin is the GPIO line name driving the buzzer.
	AlarmPin string `yaml:"alarm_pin"`
	// DryRun replaces the GPIO line with a simulated output.
	DryRun bool `yaml:"dry_run"`
	// QueueDepth is the number of detections buffered in front of the alarm.
	// Zero sounds the alarm directly on the capture path.
	QueueDepth int `yaml:"queue_depth"`
	// FallbackChannel is reported when captured packets carry no channel.
	FallbackChannel uint16 `yaml:"fallback_channel,omitempty"`
	// HealthAddress enables the gRPC health endpoint when set.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for sensor settings.
	DefaultConfigFilename = "wifi-sentinel.yaml"

	// DefaultAlarmPin is the buzzer line of the reference board.
	DefaultAlarmPin = "GPIO2"

	// DefaultQueueDepth keeps a handful of detections while a pulse is sounding.
	DefaultQueueDepth = 8

	// MaxQueueDepth bounds the detection queue.
	MaxQueueDepth = 1024

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrNoSource is returned when neither an interface nor a replay file is configured.
	ErrNoSource = errors.New("capture interface or replay file must be provided")
	// errQueueDepth is returned for an out of range queue depth.
	errQueueDepth = errors.New("queue depth out of range")
	// errLogLevel is returned for an unknown log level.
	errLogLevel = errors.New("unknown log level")
)

// Default returns settings with every default applied and no capture source.
func Default() *Config {
	return &Config{
		AlarmPin:   DefaultAlarmPin,
		QueueDepth: DefaultQueueDepth,
		LogLevel:   DefaultLogLevel,
	}
}

// Load reads configuration from path. A missing file at the default path
// yields Default, so the sensor can run from flags alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return Default(), nil
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// Save writes settings to path.
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

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults for empty optional fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Interface == "" && cfg.ReplayFile == "" {
		return ErrNoSource
	}

	if cfg.QueueDepth < 0 || cfg.QueueDepth > MaxQueueDepth {
		return fmt.Errorf("%w: %d not in [0, %d]", errQueueDepth, cfg.QueueDepth, MaxQueueDepth)
	}

	if cfg.AlarmPin == "" {
		cfg.AlarmPin = DefaultAlarmPin
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errLogLevel, cfg.LogLevel)
	}

	if cfg.HealthAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.HealthAddress); err != nil {
		return fmt.Errorf("invalid health address: %w", err)
	}

	return nil
}
