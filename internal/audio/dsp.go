package audio

import "math"

// PeakNormalize scales samples in place so the peak amplitude reaches 1.0.
// Silence is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}

	gain := float32(1 / peak)
	for i := range samples {
		samples[i] *= gain
	}
	return samples
}

// Clamp limits samples in place to [-1, 1]. NaN becomes 0.
func Clamp(samples []float32) []float32 {
	for i, s := range samples {
		switch {
		case math.IsNaN(float64(s)):
			samples[i] = 0
		case s > 1:
			samples[i] = 1
		case s < -1:
			samples[i] = -1
		}
	}
	return samples
}
