// Package audio holds the PCM format arithmetic shared by the streaming
// pipeline: the format descriptor, byte-to-float frame conversion and the
// window/overlap byte bookkeeping.
package audio

import (
	"fmt"
	"time"
)

// Format describes a uniformly-formatted, already-decoded PCM byte stream:
// signed little-endian interleaved samples.
type Format struct {
	SampleRate int // frames per second
	Channels   int
	BitDepth   int // bits per sample: 8, 16, 24 or 32
}

// BytesPerSample returns the storage size of a single sample.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// FrameSize returns the size in bytes of one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * f.BytesPerSample()
}

// BytesPerSecond returns the byte rate of the stream.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Duration returns the play time of n PCM bytes in this format.
func (f Format) Duration(n int64) time.Duration {
	if f.BytesPerSecond() == 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(f.BytesPerSecond()) * float64(time.Second))
}

// Validate reports whether the descriptor is internally consistent and uses
// a supported encoding.
func (f Format) Validate() error {
	if f.SampleRate < 1 {
		return &FormatError{Format: f, Reason: fmt.Sprintf("invalid sample rate %d", f.SampleRate)}
	}
	if f.Channels < 1 {
		return &FormatError{Format: f, Reason: fmt.Sprintf("invalid channel count %d", f.Channels)}
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return &FormatError{Format: f, Reason: fmt.Sprintf("unsupported bit depth %d", f.BitDepth)}
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitDepth)
}

// FormatError reports a byte chunk or an encoding that is inconsistent with
// the declared PCM format. It is raised before any data reaches the device.
type FormatError struct {
	Format Format
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("audio format (%s): %s", e.Format, e.Reason)
}

// ConfigurationError reports invalid window or overlap sizes. It is raised
// at construction, before any I/O happens.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "audio configuration: " + e.Reason
}
