// Package playback writes PCM to an audio output device. The device's
// blocking Write is the pipeline's pacing clock: it returns only once the
// device has accepted the bytes, which ties the streaming loop's iteration
// rate to real-time playback speed.
package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// Device is a blocking audio output. Write returns only once the device has
// consumed enough previous data to accept the new bytes; the caller's loop
// therefore runs no faster than playback. Drain blocks until everything
// written has been heard. Close releases the device line.
type Device interface {
	Write(p []byte) error
	Drain() error
	Close() error
}

// DeviceError reports an unavailable device or an I/O failure while feeding
// it. Playback pacing cannot be retried once desynchronized, so a
// DeviceError terminates the run it occurs in.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("playback device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// oto supports one context per process, opened for a single format.
var (
	otoCtx     *oto.Context
	otoFormat  audio.Format
	otoOnce    sync.Once
	otoInitErr error
)

func initOto(f audio.Format, bufferSize time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			otoFormat = f
			<-ready
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if f != otoFormat {
		return nil, fmt.Errorf("device already opened for %s, cannot reopen for %s", otoFormat, f)
	}
	return otoCtx, nil
}

// otoDevice feeds an oto player through an unbuffered pipe. The player pulls
// from the pipe until its own buffer (bufferSize worth of audio) is full, so
// pipe writes block exactly while the device has no capacity.
type otoDevice struct {
	player *oto.Player
	pw     *io.PipeWriter
	closed bool
	mu     sync.Mutex
}

// OpenDevice acquires the output device for the given format. Only 16-bit
// PCM is played back directly; other depths must be converted upstream.
func OpenDevice(f audio.Format, bufferSize time.Duration) (Device, error) {
	if err := f.Validate(); err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}
	if f.BitDepth != 16 {
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("unsupported bit depth %d, want 16", f.BitDepth)}
	}
	if bufferSize <= 0 {
		bufferSize = 100 * time.Millisecond
	}
	ctx, err := initOto(f, bufferSize)
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	return &otoDevice{player: player, pw: pw}, nil
}

func (d *otoDevice) Write(p []byte) error {
	if _, err := d.pw.Write(p); err != nil {
		return &DeviceError{Op: "write", Err: err}
	}
	return nil
}

// Drain stops accepting data and waits until the device has played out
// everything written so far.
func (d *otoDevice) Drain() error {
	d.pw.Close()
	for d.player.IsPlaying() && d.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.pw.Close()
	if err := d.player.Close(); err != nil {
		return &DeviceError{Op: "close", Err: err}
	}
	return nil
}
