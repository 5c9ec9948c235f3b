package power

import (
	"math"
	"testing"
)

func constantBuffer(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestEnergyOfConstantBuffer(t *testing.T) {
	buf := constantBuffer(0.5, 128)
	if got := Energy(buf); math.Abs(got-0.25*128) > 1e-12 {
		t.Fatalf("expected energy %v, got %v", 0.25*128, got)
	}
	if got := Energy(nil); got != 0 {
		t.Fatalf("expected zero energy for empty buffer, got %v", got)
	}
}

func TestSoundPressureLevel(t *testing.T) {
	buf := constantBuffer(0.5, 100)
	// sqrt(0.25 × 100) / 100 = 0.05 → 20·log10(0.05).
	want := 20 * math.Log10(0.05)
	if got := SoundPressureLevel(buf); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v dB, got %v", want, got)
	}
}

func TestAllZeroBufferIsSilence(t *testing.T) {
	buf := constantBuffer(0, 1024)

	spl := SoundPressureLevel(buf)
	if math.IsInf(spl, -1) || math.IsNaN(spl) {
		t.Fatalf("expected finite level for silent buffer, got %v", spl)
	}

	for _, threshold := range []float64{-70, -120, -200} {
		if !IsSilence(buf, threshold) {
			t.Fatalf("expected silence below %v dB", threshold)
		}
	}
}

func TestLoudBufferIsNotSilence(t *testing.T) {
	buf := constantBuffer(0.9, 64)
	if IsSilence(buf, -70) {
		t.Fatal("expected a near-full-scale buffer not to classify as silence")
	}
}
