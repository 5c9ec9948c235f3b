package source

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rightwaitforyou/Tarsos/internal/audio"
)

// writeWAV writes a minimal PCM16 WAV file and returns its path.
func writeWAV(t *testing.T, sampleRate, channels int, samples []int16) string {
	t.Helper()

	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
	}

	var buf bytes.Buffer
	blockAlign := channels * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(payload)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test WAV: %v", err)
	}
	return path
}

func TestOpenWAVPassesPCMThrough(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}
	path := writeWAV(t, 8000, 1, samples)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	want := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	if src.Format() != want {
		t.Fatalf("expected format %v, got %v", want, src.Format())
	}
	if src.Length() != int64(len(samples)*2) {
		t.Fatalf("expected length %d, got %d", len(samples)*2, src.Length())
	}

	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(samples)*2 {
		t.Fatalf("expected %d PCM bytes, got %d", len(samples)*2, len(got))
	}
	for i, s := range samples {
		if v := int16(binary.LittleEndian.Uint16(got[i*2:])); v != s {
			t.Fatalf("sample %d: expected %d, got %d", i, s, v)
		}
	}
}

func TestOpenReturnsIndependentHandles(t *testing.T) {
	path := writeWAV(t, 8000, 1, []int16{1, 2, 3, 4})

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer first.Close()
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	a, _ := io.ReadAll(first)
	b, _ := io.ReadAll(second)
	if !bytes.Equal(a, b) {
		t.Fatal("independent handles should yield identical streams")
	}
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestDuration(t *testing.T) {
	// 8000 frames at 8 kHz mono is exactly one second.
	path := writeWAV(t, 8000, 1, make([]int16, 8000))
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if d := Duration(src); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
}

func TestReadMetadataFallsBackToFilename(t *testing.T) {
	path := writeWAV(t, 8000, 1, []int16{0})
	meta := ReadMetadata(path)
	if meta.Title != "tone" {
		t.Fatalf("expected filename fallback title %q, got %q", "tone", meta.Title)
	}
}
