package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func s16leBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestToFloatNormalizes16Bit(t *testing.T) {
	conv, err := NewConverter(Format{SampleRate: 44100, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	chunk := s16leBytes(-32768, 0, 16384, 32767)
	out := make([]float64, 4)
	n, err := conv.ToFloat(chunk, out)
	if err != nil {
		t.Fatalf("ToFloat: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}

	want := []float64{-1.0, 0.0, 0.5, 32767.0 / 32768.0}
	for i, w := range want {
		if math.Abs(out[i]-w) > 1e-9 {
			t.Fatalf("sample %d: want %v, got %v", i, w, out[i])
		}
	}
}

func TestToFloatLengthConsistency(t *testing.T) {
	cases := []struct {
		format Format
		frames int
	}{
		{Format{SampleRate: 8000, Channels: 1, BitDepth: 8}, 7},
		{Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, 512},
		{Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, 512},
		{Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, 100},
		{Format{SampleRate: 96000, Channels: 6, BitDepth: 32}, 33},
	}

	for _, c := range cases {
		conv, err := NewConverter(c.format)
		if err != nil {
			t.Fatalf("%s: NewConverter: %v", c.format, err)
		}
		chunk := make([]byte, c.frames*c.format.FrameSize())
		out := make([]float64, conv.FloatLen(len(chunk)))
		n, err := conv.ToFloat(chunk, out)
		if err != nil {
			t.Fatalf("%s: ToFloat: %v", c.format, err)
		}
		if len(chunk) != n*c.format.BytesPerSample() {
			t.Fatalf("%s: byte length %d != %d samples × %d bytes",
				c.format, len(chunk), n, c.format.BytesPerSample())
		}
		if n != c.frames*c.format.Channels {
			t.Fatalf("%s: expected %d samples, got %d", c.format, c.frames*c.format.Channels, n)
		}
	}
}

func TestToFloat24BitSignExtension(t *testing.T) {
	conv, err := NewConverter(Format{SampleRate: 48000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	// 0x800000 is the most negative 24-bit sample.
	chunk := []byte{0x00, 0x00, 0x80, 0xFF, 0xFF, 0x7F}
	out := make([]float64, 2)
	if _, err := conv.ToFloat(chunk, out); err != nil {
		t.Fatalf("ToFloat: %v", err)
	}
	if out[0] != -1.0 {
		t.Fatalf("expected -1.0 for minimum sample, got %v", out[0])
	}
	if math.Abs(out[1]-8388607.0/8388608.0) > 1e-12 {
		t.Fatalf("expected maximum positive sample, got %v", out[1])
	}
}

func TestToFloatRejectsTornFrames(t *testing.T) {
	conv, err := NewConverter(Format{SampleRate: 44100, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	out := make([]float64, 16)
	_, err = conv.ToFloat(make([]byte, 6), out) // frame size is 4
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError for torn frame, got %v", err)
	}
}

func TestToFloatRejectsShortOutput(t *testing.T) {
	conv, err := NewConverter(Format{SampleRate: 44100, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	_, err = conv.ToFloat(make([]byte, 8), make([]float64, 2))
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError for short output buffer, got %v", err)
	}
}

func TestNewConverterRejectsUnsupportedEncoding(t *testing.T) {
	_, err := NewConverter(Format{SampleRate: 44100, Channels: 1, BitDepth: 12})
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError for 12-bit depth, got %v", err)
	}
}
