// Package power derives scalar energy signals from PCM audio: a cached
// per-window power curve over a whole stream, and stateless per-buffer
// loudness and silence classification.
package power

import "math"

// energyFloor substitutes exactly-zero energies before a logarithm, so a
// silent window maps to a very low level instead of negative infinity.
const energyFloor = 1e-14

// Energy returns the linear energy of a buffer: the sum of squared sample
// amplitudes, a proxy for loudness.
func Energy(buf []float64) float64 {
	var e float64
	for _, s := range buf {
		e += s * s
	}
	return e
}

// SoundPressureLevel returns a dB SPL-style level for a buffer:
// 20·log10(sqrt(energy) / len).
func SoundPressureLevel(buf []float64) float64 {
	if len(buf) == 0 {
		return linearToDecibel(0)
	}
	value := math.Sqrt(Energy(buf)) / float64(len(buf))
	return linearToDecibel(value)
}

// IsSilence reports whether the buffer's sound pressure level falls below
// thresholdDB. An all-zero buffer is silent for any finite threshold.
func IsSilence(buf []float64, thresholdDB float64) bool {
	return SoundPressureLevel(buf) < thresholdDB
}

func linearToDecibel(value float64) float64 {
	if value == 0 {
		value = energyFloor
	}
	return 20.0 * math.Log10(value)
}
