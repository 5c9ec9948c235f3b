package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// --- MP3 ---

// go-mp3 always decodes to 16-bit stereo at the file's sample rate.
type mp3Source struct {
	file *os.File
	dec  *mp3.Decoder
}

func newMP3Source(f *os.File) (*mp3Source, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Source{file: f, dec: dec}, nil
}

func (s *mp3Source) Read(p []byte) (int, error) { return s.dec.Read(p) }
func (s *mp3Source) Length() int64              { return s.dec.Length() }
func (s *mp3Source) Close() error               { return s.file.Close() }

func (s *mp3Source) Format() audio.Format {
	return audio.Format{SampleRate: s.dec.SampleRate(), Channels: 2, BitDepth: 16}
}

// --- WAV ---

type wavSource struct {
	file        *os.File
	pending     []byte
	length      int64
	format      audio.Format
	srcBitDepth int
}

func newWAVSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	srcFrameSize := int64(channels) * int64(bitDepth) / 8
	if srcFrameSize == 0 {
		return nil, fmt.Errorf("invalid WAV frame size")
	}
	totalFrames := dec.PCMLen() / srcFrameSize

	return &wavSource{
		file:        f,
		length:      totalFrames * int64(channels) * 2,
		srcBitDepth: bitDepth,
		format:      audio.Format{SampleRate: int(dec.SampleRate), Channels: channels, BitDepth: 16},
	}, nil
}

func (s *wavSource) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	srcBytesPerSample := s.srcBitDepth / 8
	wantSamples := len(p) / 2
	if wantSamples == 0 {
		wantSamples = 1
	}
	srcBytes := make([]byte, wantSamples*srcBytesPerSample)
	n, err := io.ReadFull(s.file, srcBytes)
	samples := n / srcBytesPerSample
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		var sample int
		off := i * srcBytesPerSample
		switch s.srcBitDepth {
		case 8:
			// 8-bit WAV is unsigned
			sample = (int(srcBytes[off]) - 128) << 8
		case 16:
			sample = int(int16(binary.LittleEndian.Uint16(srcBytes[off:])))
		case 24:
			v := int32(srcBytes[off]) | int32(srcBytes[off+1])<<8 | int32(srcBytes[off+2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF) // sign extend
			}
			sample = int(v >> 8)
		case 32:
			sample = int(int32(binary.LittleEndian.Uint32(srcBytes[off:])) >> 16)
		default:
			return 0, fmt.Errorf("unsupported WAV bit depth: %d", s.srcBitDepth)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clip(sample)))
	}

	written := copy(p, raw)
	if written < len(raw) {
		s.pending = raw[written:]
	}
	if err == io.ErrUnexpectedEOF {
		err = nil // the torn tail surfaces as EOF on the next call
	}
	return written, err
}

func (s *wavSource) Format() audio.Format { return s.format }
func (s *wavSource) Length() int64        { return s.length }
func (s *wavSource) Close() error         { return s.file.Close() }

// --- FLAC ---

type flacSource struct {
	file    *os.File
	stream  *flac.Stream
	pending []byte
	length  int64
	format  audio.Format
	bps     int
}

func newFLACSource(f *os.File) (*flacSource, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	return &flacSource{
		file:   f,
		stream: stream,
		length: int64(info.NSamples) * int64(channels) * 2,
		bps:    int(info.BitsPerSample),
		format: audio.Format{SampleRate: int(info.SampleRate), Channels: channels, BitDepth: 16},
	}, nil
}

func (s *flacSource) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	frame, err := s.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	channels := s.format.Channels
	nSamples := int(frame.Subframes[0].NSamples)
	raw := make([]byte, nSamples*channels*2)
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			sample := int(frame.Subframes[ch].Samples[i])
			switch {
			case s.bps > 16:
				sample >>= (s.bps - 16)
			case s.bps < 16:
				sample <<= (16 - s.bps)
			}
			binary.LittleEndian.PutUint16(raw[(i*channels+ch)*2:], uint16(clip(sample)))
		}
	}

	written := copy(p, raw)
	if written < len(raw) {
		s.pending = raw[written:]
	}
	return written, nil
}

func (s *flacSource) Format() audio.Format { return s.format }
func (s *flacSource) Length() int64        { return s.length }
func (s *flacSource) Close() error         { return s.file.Close() }

// --- OGG Vorbis ---

type oggSource struct {
	file    *os.File
	reader  *oggvorbis.Reader
	pending []byte
	format  audio.Format
}

func newOGGSource(f *os.File) (*oggSource, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggSource{
		file:   f,
		reader: reader,
		format: audio.Format{SampleRate: reader.SampleRate(), Channels: reader.Channels(), BitDepth: 16},
	}, nil
}

func (s *oggSource) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	want := len(p) / 2
	if want == 0 {
		want = 1
	}
	samples := make([]float32, want)
	n, err := s.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := samples[i]
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(v*32767)))
	}

	written := copy(p, raw)
	if written < len(raw) {
		s.pending = raw[written:]
	}
	return written, nil
}

func (s *oggSource) Format() audio.Format { return s.format }
func (s *oggSource) Close() error         { return s.file.Close() }

func (s *oggSource) Length() int64 {
	return s.reader.Length() * int64(s.format.Channels) * 2
}
