// Package config loads the stylefx YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/remote"
	"github.com/justyntemme/stylefx/pkg/style"
)

// ErrInvalidConfig is returned for configurations that cannot be used as
// given. Out-of-range style values are not errors; they are clamped later.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration document.
type Config struct {
	Style  StyleConfig  `yaml:"style"`
	Remote RemoteConfig `yaml:"remote"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// StyleConfig holds the initial style parameters. A preset, if named, is
// applied on top of the individual values.
type StyleConfig struct {
	Swing            float64 `yaml:"swing"`
	Accent           float64 `yaml:"accent"`
	HumanizeTiming   float64 `yaml:"humanize_timing"`
	HumanizeVelocity float64 `yaml:"humanize_velocity"`
	Preset           string  `yaml:"preset"`
}

// RemoteConfig configures the OSC control channel.
type RemoteConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	RingCapacity    int           `yaml:"ring_capacity"`
	DrainHz         float64       `yaml:"drain_hz"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EngineConfig configures the block processor.
type EngineConfig struct {
	Seed        uint64  `yaml:"seed"`
	MaxEvents   int     `yaml:"max_events"`
	FallbackBPM float64 `yaml:"fallback_bpm"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := style.Defaults()
	return Config{
		Style: StyleConfig{
			Swing:            d.SwingRatio,
			Accent:           d.AccentAmount,
			HumanizeTiming:   d.HumanizeTiming,
			HumanizeVelocity: d.HumanizeVelocity,
		},
		Remote: RemoteConfig{
			Enabled:         d.RemoteEnabled,
			Host:            "127.0.0.1",
			Port:            d.RemotePort,
			RingCapacity:    remote.DefaultRingCapacity,
			DrainHz:         remote.DefaultDrainRate,
			RetryInterval:   time.Second,
			PollInterval:    100 * time.Millisecond,
			ShutdownTimeout: 500 * time.Millisecond,
		},
		Engine: EngineConfig{
			Seed:        1,
			MaxEvents:   4096,
			FallbackBPM: style.DefaultTempo,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML file. Keys missing from the file keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural settings.
func (c Config) Validate() error {
	r := c.Remote
	switch {
	case r.Host == "":
		return fmt.Errorf("%w: remote.host is empty", ErrInvalidConfig)
	case r.RingCapacity <= 0 || r.RingCapacity&(r.RingCapacity-1) != 0:
		return fmt.Errorf("%w: remote.ring_capacity %d is not a power of two", ErrInvalidConfig, r.RingCapacity)
	case r.DrainHz <= 0:
		return fmt.Errorf("%w: remote.drain_hz must be positive", ErrInvalidConfig)
	case r.RetryInterval <= 0 || r.PollInterval <= 0 || r.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: remote intervals must be positive", ErrInvalidConfig)
	case c.Engine.MaxEvents <= 0:
		return fmt.Errorf("%w: engine.max_events must be positive", ErrInvalidConfig)
	case c.Engine.FallbackBPM <= 0:
		return fmt.Errorf("%w: engine.fallback_bpm must be positive", ErrInvalidConfig)
	}
	if _, err := debug.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Style.Preset != "" {
		if _, err := style.LookupPreset(c.Style.Preset); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Parameters returns the initial style parameters, clamped to range.
func (c Config) Parameters() style.Parameters {
	p := style.Parameters{
		SwingRatio:       c.Style.Swing,
		AccentAmount:     c.Style.Accent,
		HumanizeTiming:   c.Style.HumanizeTiming,
		HumanizeVelocity: c.Style.HumanizeVelocity,
		RemoteEnabled:    c.Remote.Enabled,
		RemotePort:       c.Remote.Port,
	}
	if pr, err := style.LookupPreset(c.Style.Preset); err == nil {
		p = pr.Apply(p)
	}
	return p.Clamp()
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() debug.LogLevel {
	level, _ := debug.ParseLevel(c.Log.Level)
	return level
}

// Write encodes the configuration as YAML.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
