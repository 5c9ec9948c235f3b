// Package config provides the YAML configuration schema and loader for the
// tarsos command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
	"github.com/rightwaitforyou/Tarsos/internal/power"
)

// Config is the root configuration, typically loaded from a YAML file.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Power    PowerConfig    `yaml:"power"`
	Playback PlaybackConfig `yaml:"playback"`
}

// WindowConfig sets the analysis buffer geometry, in frames.
type WindowConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// PowerConfig tunes the power curve pass and silence classification.
type PowerConfig struct {
	WindowsPerSecond   int     `yaml:"windows_per_second"`
	SilenceThresholdDB float64 `yaml:"silence_threshold_db"`
}

// PlaybackConfig sets the output device buffer; larger buffers survive
// slower analysis stages at the cost of pacing granularity.
type PlaybackConfig struct {
	BufferMillis int `yaml:"buffer_ms"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window:   WindowConfig{Size: 1024, Overlap: 0},
		Power:    PowerConfig{WindowsPerSecond: power.DefaultWindowsPerSecond, SilenceThresholdDB: -70},
		Playback: PlaybackConfig{BufferMillis: 100},
	}
}

// Load reads and validates the YAML configuration at path. Values absent
// from the file keep their defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests with string-literal configs.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is coherent before any audio I/O.
func (c Config) Validate() error {
	window := audio.OverlapConfig{WindowSize: c.Window.Size, Overlap: c.Window.Overlap}
	if err := window.Validate(); err != nil {
		return err
	}
	if c.Power.WindowsPerSecond < 1 {
		return &audio.ConfigurationError{
			Reason: fmt.Sprintf("power windows per second must be positive, got %d", c.Power.WindowsPerSecond),
		}
	}
	if c.Playback.BufferMillis < 1 {
		return &audio.ConfigurationError{
			Reason: fmt.Sprintf("playback buffer must be positive, got %dms", c.Playback.BufferMillis),
		}
	}
	return nil
}

// OverlapConfig returns the window geometry as used by the pipeline.
func (c Config) OverlapConfig() audio.OverlapConfig {
	return audio.OverlapConfig{WindowSize: c.Window.Size, Overlap: c.Window.Overlap}
}

// DeviceBuffer returns the playback buffer size as a duration.
func (c Config) DeviceBuffer() time.Duration {
	return time.Duration(c.Playback.BufferMillis) * time.Millisecond
}
