package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
window:
  size: 2048
  overlap: 512
power:
  windows_per_second: 20
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Window.Size != 2048 || cfg.Window.Overlap != 512 {
		t.Fatalf("unexpected window config: %+v", cfg.Window)
	}
	if cfg.Power.WindowsPerSecond != 20 {
		t.Fatalf("unexpected windows per second: %d", cfg.Power.WindowsPerSecond)
	}
	// Untouched sections keep their defaults.
	if cfg.Power.SilenceThresholdDB != Default().Power.SilenceThresholdDB {
		t.Fatalf("silence threshold lost its default: %v", cfg.Power.SilenceThresholdDB)
	}
	if cfg.Playback.BufferMillis != Default().Playback.BufferMillis {
		t.Fatalf("playback buffer lost its default: %v", cfg.Playback.BufferMillis)
	}
}

func TestLoadFromReaderEmptyYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("frequency: 440\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateCatchesBadGeometry(t *testing.T) {
	cases := []string{
		"window:\n  size: 512\n  overlap: 512\n",
		"window:\n  size: 0\n",
		"window:\n  size: 512\n  overlap: -1\n",
		"power:\n  windows_per_second: 0\n",
		"playback:\n  buffer_ms: 0\n",
	}
	for _, yaml := range cases {
		_, err := LoadFromReader(strings.NewReader(yaml))
		var confErr *audio.ConfigurationError
		if !errors.As(err, &confErr) {
			t.Fatalf("%q: expected ConfigurationError, got %v", yaml, err)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
}
