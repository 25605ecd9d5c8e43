package audio

import "math"

// RMSFloat32 returns the root-mean-square of samples already in [-1, 1].
func RMSFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSInt returns the root-mean-square of signed PCM samples of the given bit
// depth, normalized to [-1, 1].
func RMSInt(samples []int, bitDepth int) float64 {
	if len(samples) == 0 || bitDepth <= 0 {
		return 0
	}
	scale := float64(int64(1) << (bitDepth - 1))
	var sum float64
	for _, s := range samples {
		v := float64(s) / scale
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
