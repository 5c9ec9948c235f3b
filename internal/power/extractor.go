package power

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// DefaultWindowsPerSecond is the curve's sampling rate: how many power
// measurements are taken per second of audio.
const DefaultWindowsPerSecond = 10

// WindowSample is one point of a power curve: the window index and the
// linear energy measured over that window.
type WindowSample struct {
	Index  int
	Energy float64
}

// RangeError reports a time-based query outside the extracted stream's
// duration. It is a local query failure with no effect on the curve.
type RangeError struct {
	Seconds float64
	Windows int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("power: %.3fs is outside the stream (%d windows extracted)", e.Seconds, e.Windows)
}

// Extractor computes a power curve over an entire stream at a fixed number
// of windows per second, independent of any live playback pass. The curve
// is extracted lazily on the first query, over a freshly-opened stream
// handle, and is immutable afterwards.
type Extractor struct {
	open             func() (io.ReadCloser, error)
	conv             *audio.Converter
	windowsPerSecond int

	once  sync.Once
	err   error
	curve []float64
	min   float64
	max   float64
}

// NewExtractor builds an extractor over its own stream handle: open must
// yield a fresh, independent reader of the same PCM stream on every call.
// Sharing a live pipeline's reader is not supported.
func NewExtractor(open func() (io.ReadCloser, error), f audio.Format, windowsPerSecond int) (*Extractor, error) {
	if windowsPerSecond < 1 {
		return nil, &audio.ConfigurationError{
			Reason: fmt.Sprintf("windows per second must be positive, got %d", windowsPerSecond),
		}
	}
	conv, err := audio.NewConverter(f)
	if err != nil {
		return nil, err
	}
	if f.SampleRate < windowsPerSecond {
		return nil, &audio.ConfigurationError{
			Reason: fmt.Sprintf("%d windows per second leaves no frames per window at %d Hz", windowsPerSecond, f.SampleRate),
		}
	}
	return &Extractor{open: open, conv: conv, windowsPerSecond: windowsPerSecond}, nil
}

// WindowDuration returns the time one curve window covers.
func (e *Extractor) WindowDuration() time.Duration {
	return time.Second / time.Duration(e.windowsPerSecond)
}

// Index maps a point in time to a window index: ceil(seconds / window).
func (e *Extractor) Index(seconds float64) int {
	return int(math.Ceil(seconds * float64(e.windowsPerSecond)))
}

// Len returns the number of extracted windows.
func (e *Extractor) Len() (int, error) {
	if err := e.extract(); err != nil {
		return 0, err
	}
	return len(e.curve), nil
}

// At returns the power at the given time. Relative read-out maps the energy
// into [0, 1] against the curve's running minimum and maximum; a degenerate
// curve (max == min, e.g. constant amplitude) reads as 1.0. Absolute
// read-out is 20·log10(energy) with zero energies floored first.
func (e *Extractor) At(seconds float64, relative bool) (float64, error) {
	if err := e.extract(); err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, &RangeError{Seconds: seconds, Windows: len(e.curve)}
	}
	return e.AtIndex(e.Index(seconds), relative)
}

// AtIndex is At for a window index instead of a point in time.
func (e *Extractor) AtIndex(index int, relative bool) (float64, error) {
	sample, err := e.atIndex(index)
	if err != nil {
		return 0, err
	}
	if relative {
		if e.max == e.min {
			return 1.0, nil
		}
		rel := (sample - e.min) / (e.max - e.min)
		return math.Min(1.0, math.Max(0.0, rel)), nil
	}
	if sample == 0 {
		sample = energyFloor
	}
	return 20.0 * math.Log10(sample), nil
}

// EnergyAt returns the raw linear energy at the given time.
func (e *Extractor) EnergyAt(seconds float64) (float64, error) {
	if err := e.extract(); err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, &RangeError{Seconds: seconds, Windows: len(e.curve)}
	}
	return e.atIndex(e.Index(seconds))
}

// Samples returns the full extracted curve in window order.
func (e *Extractor) Samples() ([]WindowSample, error) {
	if err := e.extract(); err != nil {
		return nil, err
	}
	samples := make([]WindowSample, len(e.curve))
	for i, energy := range e.curve {
		samples[i] = WindowSample{Index: i, Energy: energy}
	}
	return samples, nil
}

func (e *Extractor) atIndex(index int) (float64, error) {
	if err := e.extract(); err != nil {
		return 0, err
	}
	if index < 0 || index >= len(e.curve) {
		return 0, &RangeError{
			Seconds: float64(index) / float64(e.windowsPerSecond),
			Windows: len(e.curve),
		}
	}
	return e.curve[index], nil
}

// extract fills the curve once: consecutive non-overlapping windows of
// sampleRate/windowsPerSecond frames, one energy value each, with running
// min and max updated as samples are appended.
func (e *Extractor) extract() error {
	e.once.Do(func() {
		src, err := e.open()
		if err != nil {
			e.err = fmt.Errorf("power: opening stream: %w", err)
			return
		}
		defer src.Close()

		format := e.conv.Format()
		windowFrames := format.SampleRate / e.windowsPerSecond
		windowBytes := windowFrames * format.FrameSize()
		bytes := make([]byte, windowBytes)
		floats := make([]float64, e.conv.FloatLen(windowBytes))

		e.min = math.MaxFloat64
		e.max = -math.MaxFloat64
		for {
			n, rerr := io.ReadFull(src, bytes)
			n -= n % format.FrameSize()
			if n > 0 {
				c, cerr := e.conv.ToFloat(bytes[:n], floats)
				if cerr != nil {
					e.err = cerr
					return
				}
				energy := Energy(floats[:c])
				e.min = math.Min(e.min, energy)
				e.max = math.Max(e.max, energy)
				e.curve = append(e.curve, energy)
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
					return
				}
				e.err = fmt.Errorf("power: reading stream: %w", rerr)
				return
			}
		}
	})
	return e.err
}
