package playback

import (
	"github.com/rightwaitforyou/Tarsos/internal/audio"
	"github.com/rightwaitforyou/Tarsos/internal/pipeline"
)

// Player is the pipeline stage that renders buffers to a Device. Because
// consecutive buffers share their overlapped prefix, the player asks its
// overlap windower which byte range of each buffer is new and writes only
// that, so no audio is heard twice. Its blocking writes pace the whole
// pipeline.
type Player struct {
	device Device
	window *audio.OverlapWindow
	closed bool
}

// NewPlayer wires a device to the overlap bookkeeping of the run. The
// configuration must match the one the streaming loop was built with.
func NewPlayer(device Device, cfg audio.OverlapConfig, f audio.Format) (*Player, error) {
	window, err := audio.NewOverlapWindow(cfg, f)
	if err != nil {
		return nil, err
	}
	return &Player{device: device, window: window}, nil
}

func (p *Player) Name() string { return "playback" }

// Process plays the not-yet-heard byte range of buf and blocks until the
// device accepted it.
func (p *Player) Process(buf *pipeline.FrameBuffer) error {
	offset, length := p.window.Emit(len(buf.Bytes))
	if length == 0 {
		return nil
	}
	return p.device.Write(buf.Bytes[offset : offset+length])
}

// Finish drains the device, then releases it. Safe to call once per run;
// the loop guarantees exactly one call on every exit path.
func (p *Player) Finish() error {
	if p.closed {
		return nil
	}
	p.closed = true
	drainErr := p.device.Drain()
	if err := p.device.Close(); err != nil {
		return err
	}
	return drainErr
}
