package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/style"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Parameters() != style.Defaults() {
		t.Errorf("default parameters = %+v", cfg.Parameters())
	}
	if cfg.Remote.Port != 3819 || cfg.Remote.RingCapacity != 1024 || cfg.Remote.DrainHz != 30 {
		t.Errorf("unexpected remote defaults %+v", cfg.Remote)
	}
	if cfg.LogLevel() != debug.LogLevelInfo {
		t.Errorf("log level = %v", cfg.LogLevel())
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
style:
  swing: 0.66
  accent: 80
remote:
  enabled: true
  port: 9000
  retry_interval: 250ms
log:
  level: debug
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.RetryInterval != 250*time.Millisecond {
		t.Errorf("retry interval = %v", cfg.Remote.RetryInterval)
	}
	if cfg.Remote.PollInterval != 100*time.Millisecond {
		t.Errorf("unset keys should keep defaults, poll = %v", cfg.Remote.PollInterval)
	}
	p := cfg.Parameters()
	if p.SwingRatio != 0.66 || p.AccentAmount != 50 || !p.RemoteEnabled || p.RemotePort != 9000 {
		t.Errorf("parameters = %+v", p)
	}
	if cfg.LogLevel() != debug.LogLevelDebug {
		t.Errorf("log level = %v", cfg.LogLevel())
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Error("empty document should yield defaults")
	}
}

func TestPresetOverridesStyle(t *testing.T) {
	cfg, err := Parse([]byte("style: {swing: 0.9, preset: jazz}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p := cfg.Parameters(); p.SwingRatio != 0.7 || p.AccentAmount != 25 {
		t.Errorf("preset not applied: %+v", p)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"RingNotPowerOfTwo", "remote: {ring_capacity: 1000}"},
		{"RingZero", "remote: {ring_capacity: 0}"},
		{"DrainRate", "remote: {drain_hz: 0}"},
		{"PollInterval", "remote: {poll_interval: -1s}"},
		{"EmptyHost", "remote: {host: ''}"},
		{"MaxEvents", "engine: {max_events: 0}"},
		{"FallbackBPM", "engine: {fallback_bpm: -5}"},
		{"LogLevel", "log: {level: chatty}"},
		{"Preset", "style: {preset: polka}"},
		{"UnknownKey", "style: {swagger: 1}"},
		{"BadYAML", "style: [1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stylefx.yaml")
	if err := os.WriteFile(path, []byte("engine: {seed: 42}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Seed != 42 {
		t.Errorf("seed = %d", cfg.Engine.Seed)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Style.Preset = "blues"
	cfg.Remote.ShutdownTimeout = 2 * time.Second

	var buf bytes.Buffer
	if err := cfg.Write(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, buf.String())
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}
