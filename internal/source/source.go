// Package source opens audio files as uniformly-formatted PCM byte streams.
// Codec decoding is delegated to format-specific decoder libraries; every
// Source presents the same contract downstream: signed 16-bit little-endian
// interleaved PCM at the file's native sample rate and channel count.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// Source is a decoded PCM audio stream. Read yields raw s16le bytes until
// end-of-stream. Length is the total PCM byte count, or -1 when the codec
// cannot tell up front. Closing the source cancels any loop blocked on it.
type Source interface {
	io.Reader
	Format() audio.Format
	Length() int64
	Close() error
}

// Open decodes the file behind path, detecting the codec by extension.
// Every call returns an independent handle, so a second pass (e.g. power
// extraction) can run concurrently with live playback.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var src Source
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		src, err = newMP3Source(f)
	case ".wav":
		src, err = newWAVSource(f)
	case ".flac":
		src, err = newFLACSource(f)
	case ".ogg":
		src, err = newOGGSource(f)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// Duration returns the play time of src, or 0 when its length is unknown.
func Duration(src Source) time.Duration {
	if src.Length() < 0 {
		return 0
	}
	return src.Format().Duration(src.Length())
}

// clip bounds a sample to the s16 range before packing.
func clip(sample int) int16 {
	if sample > 32767 {
		return 32767
	}
	if sample < -32768 {
		return -32768
	}
	return int16(sample)
}
