package audio

import (
	"encoding/binary"
	"fmt"
)

// Converter translates raw PCM byte chunks into normalized float samples in
// [-1.0, 1.0]. It writes into a caller-supplied buffer so the streaming loop
// can reuse one float slice for the whole run.
type Converter struct {
	format Format
	scale  float64
}

// NewConverter returns a converter for the given format.
func NewConverter(f Format) (*Converter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Converter{
		format: f,
		scale:  float64(int64(1) << (f.BitDepth - 1)),
	}, nil
}

// Format returns the format the converter was built for.
func (c *Converter) Format() Format {
	return c.format
}

// FloatLen returns the number of float samples a chunk of byteLen bytes
// converts to.
func (c *Converter) FloatLen(byteLen int) int {
	return byteLen / c.format.BytesPerSample()
}

// ToFloat converts chunk into normalized interleaved samples, writing them
// into out. It returns the number of samples written. The chunk length must
// be an exact multiple of the frame size and out must hold the full result.
func (c *Converter) ToFloat(chunk []byte, out []float64) (int, error) {
	frameSize := c.format.FrameSize()
	if len(chunk)%frameSize != 0 {
		return 0, &FormatError{
			Format: c.format,
			Reason: fmt.Sprintf("chunk of %d bytes is not a multiple of the %d byte frame size", len(chunk), frameSize),
		}
	}
	n := c.FloatLen(len(chunk))
	if len(out) < n {
		return 0, &FormatError{
			Format: c.format,
			Reason: fmt.Sprintf("output buffer holds %d samples, chunk needs %d", len(out), n),
		}
	}

	switch c.format.BitDepth {
	case 8:
		for i := 0; i < n; i++ {
			out[i] = float64(int8(chunk[i])) / c.scale
		}
	case 16:
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
			out[i] = float64(s) / c.scale
		}
	case 24:
		for i := 0; i < n; i++ {
			off := i * 3
			s := int32(chunk[off]) | int32(chunk[off+1])<<8 | int32(chunk[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^int32(0xFFFFFF) // sign extend
			}
			out[i] = float64(s) / c.scale
		}
	case 32:
		for i := 0; i < n; i++ {
			s := int32(binary.LittleEndian.Uint32(chunk[i*4:]))
			out[i] = float64(s) / c.scale
		}
	}
	return n, nil
}
