package audio

import "fmt"

// OverlapConfig describes how consecutive frame buffers overlap, expressed
// in frames. Overlap frames are shared between a buffer and its successor;
// the step (WindowSize - Overlap) is the count of newly-introduced frames
// per buffer.
type OverlapConfig struct {
	WindowSize int // frames per buffer
	Overlap    int // frames shared with the previous buffer
}

// Step returns the number of new frames each buffer introduces.
func (c OverlapConfig) Step() int {
	return c.WindowSize - c.Overlap
}

// Validate checks 0 ≤ Overlap < WindowSize.
func (c OverlapConfig) Validate() error {
	if c.WindowSize < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("window size must be positive, got %d frames", c.WindowSize)}
	}
	if c.Overlap < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("overlap cannot be negative, got %d frames", c.Overlap)}
	}
	if c.Overlap >= c.WindowSize {
		return &ConfigurationError{Reason: fmt.Sprintf("overlap of %d frames must be smaller than the %d frame window", c.Overlap, c.WindowSize)}
	}
	return nil
}

// OverlapWindow translates a frame-domain OverlapConfig into byte-domain
// sizes for a concrete format, and decides per buffer which byte range is
// newly-heard audio. The first buffer of a run is emitted in full; every
// later buffer is emitted from ByteOverlap for ByteStep bytes, so audio in
// the overlapped prefix is never emitted twice.
type OverlapWindow struct {
	byteWindow  int
	byteOverlap int
	byteStep    int
	first       bool
}

// NewOverlapWindow builds the byte-level bookkeeping for cfg and format.
func NewOverlapWindow(cfg OverlapConfig, f Format) (*OverlapWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	frameSize := f.FrameSize()
	return &OverlapWindow{
		byteWindow:  cfg.WindowSize * frameSize,
		byteOverlap: cfg.Overlap * frameSize,
		byteStep:    cfg.Step() * frameSize,
		first:       true,
	}, nil
}

// ByteWindow returns the full buffer size in bytes.
func (w *OverlapWindow) ByteWindow() int { return w.byteWindow }

// ByteOverlap returns the overlapped prefix size in bytes.
func (w *OverlapWindow) ByteOverlap() int { return w.byteOverlap }

// ByteStep returns the number of new bytes per buffer.
func (w *OverlapWindow) ByteStep() int { return w.byteStep }

// Emit returns the byte range of bufLen that has not been emitted before.
// The first call covers the whole buffer; later calls skip the overlapped
// prefix. A final buffer shorter than a full window yields whatever new
// bytes it carries past the prefix.
func (w *OverlapWindow) Emit(bufLen int) (offset, length int) {
	if w.first {
		w.first = false
		return 0, bufLen
	}
	if bufLen <= w.byteOverlap {
		return w.byteOverlap, 0
	}
	length = bufLen - w.byteOverlap
	if length > w.byteStep {
		length = w.byteStep
	}
	return w.byteOverlap, length
}

// Reset rearms the windower for a new run.
func (w *OverlapWindow) Reset() {
	w.first = true
}
