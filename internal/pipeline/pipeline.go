// Package pipeline drives decoded PCM through an ordered chain of stages
// while a blocking playback stage keeps the whole run at real-time speed.
//
// A single worker owns all mutable state: stages run synchronously, in
// registration order, on the goroutine that calls Run. The only rate limit
// is the playback device's blocking write, so a stage that outlasts the
// device's buffer drain time will stall playback.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// FrameBuffer carries one buffer of audio in two parallel views: the raw
// bytes as read from the source and the same samples as normalized floats.
// Bytes and Floats always describe the same frames. A FrameBuffer is only
// valid for the duration of a Stage call; stages copy what they keep.
type FrameBuffer struct {
	Bytes  []byte
	Floats []float64
}

// Stage receives every FrameBuffer produced by a run, strictly in
// registration order, followed by exactly one Finish after the last buffer.
// Stages must not mutate the buffer.
type Stage interface {
	Process(buf *FrameBuffer) error
	Finish() error
}

// StageError wraps a failure raised by a registered stage. A stage failure
// terminates the run: stages after the failing one never see the buffer.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// State is the lifecycle of a Runner.
type State int

const (
	Idle State = iota
	Running
	Draining
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrRunnerUsed is returned by Run when the runner already completed or
// failed; a Runner lives for exactly one run.
var ErrRunnerUsed = errors.New("pipeline: runner already used")

// Runner is the streaming loop. It reads overlapping windows of PCM from a
// source, converts them to floats and fans each buffer out to its stages.
// Closing the source cancels the run: the next read reports end-of-stream
// and the loop drains.
type Runner struct {
	src    io.Reader
	conv   *audio.Converter
	window *audio.OverlapWindow
	stages []Stage
	state  State
}

// NewRunner builds a streaming loop over src, which must produce PCM bytes
// in the given format. Configuration problems surface here, before any I/O.
func NewRunner(src io.Reader, f audio.Format, cfg audio.OverlapConfig, stages ...Stage) (*Runner, error) {
	conv, err := audio.NewConverter(f)
	if err != nil {
		return nil, err
	}
	window, err := audio.NewOverlapWindow(cfg, f)
	if err != nil {
		return nil, err
	}
	return &Runner{
		src:    src,
		conv:   conv,
		window: window,
		stages: stages,
		state:  Idle,
	}, nil
}

// AddStage appends a stage to the chain. Stages added after Run started are
// rejected.
func (r *Runner) AddStage(s Stage) error {
	if r.state != Idle {
		return ErrRunnerUsed
	}
	r.stages = append(r.stages, s)
	return nil
}

// State returns the loop's current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Run executes the streaming loop until end-of-stream or the first
// unrecoverable error. It blocks at real-time speed when a playback stage is
// registered. Stages receive Finish exactly once on every exit path. On a
// stage failure buffer fan-out stops immediately, so the stages after the
// failing one never see the broken buffer, and the run is torn down.
func (r *Runner) Run() error {
	if r.state != Idle {
		return ErrRunnerUsed
	}
	r.state = Running
	slog.Debug("pipeline started",
		"window_bytes", r.window.ByteWindow(),
		"overlap_bytes", r.window.ByteOverlap(),
		"stages", len(r.stages),
	)

	frameSize := r.conv.Format().FrameSize()
	bytes := make([]byte, r.window.ByteWindow())
	floats := make([]float64, r.conv.FloatLen(r.window.ByteWindow()))

	// The prefix of each buffer past the first holds the overlap carried
	// over from the previous iteration; only the remainder is fresh reads.
	prefix := 0
	for {
		n, err := io.ReadFull(r.src, bytes[prefix:])
		valid := prefix + n
		valid -= valid % frameSize // a trailing torn frame is dropped

		if valid > prefix {
			if perr := r.process(bytes[:valid], floats); perr != nil {
				return r.fail(perr)
			}
		}

		if err != nil {
			// A source closed out from under the loop is cancellation, not
			// an I/O failure: play out what the stages already have.
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, fs.ErrClosed) {
				return r.drain()
			}
			return r.fail(fmt.Errorf("reading audio source: %w", err))
		}

		if overlap := r.window.ByteOverlap(); overlap > 0 {
			copy(bytes, bytes[len(bytes)-overlap:])
			prefix = overlap
		}
	}
}

func (r *Runner) process(chunk []byte, floats []float64) error {
	n, err := r.conv.ToFloat(chunk, floats)
	if err != nil {
		return err
	}
	buf := &FrameBuffer{Bytes: chunk, Floats: floats[:n]}
	for _, stage := range r.stages {
		if err := stage.Process(buf); err != nil {
			return &StageError{Stage: stageName(stage), Err: err}
		}
	}
	return nil
}

// drain tells every stage the stream ended, in registration order, even when
// an earlier Finish failed: each stage releases its resources exactly once.
func (r *Runner) drain() error {
	r.state = Draining
	var firstErr error
	for _, stage := range r.stages {
		if err := stage.Finish(); err != nil && firstErr == nil {
			firstErr = &StageError{Stage: stageName(stage), Err: err}
		}
	}
	if firstErr != nil {
		r.state = Failed
		slog.Error("pipeline drain failed", "err", firstErr)
		return firstErr
	}
	r.state = Finished
	slog.Debug("pipeline finished")
	return nil
}

// fail marks the run as failed and releases stage resources best-effort.
// No stage sees another buffer, but every stage still learns the stream is
// over, so device lines and files are closed exactly once.
func (r *Runner) fail(err error) error {
	r.state = Failed
	slog.Error("pipeline failed", "err", err)
	for _, stage := range r.stages {
		if ferr := stage.Finish(); ferr != nil {
			slog.Warn("stage cleanup after failure", "stage", stageName(stage), "err", ferr)
		}
	}
	return err
}

func stageName(s Stage) string {
	type named interface{ Name() string }
	if n, ok := s.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
