package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSFloat32(t *testing.T) {
	assert.Equal(t, 0.0, RMSFloat32(nil))
	assert.Equal(t, 0.0, RMSFloat32(make([]float32, 512)))
	assert.InDelta(t, 0.5, RMSFloat32([]float32{0.5, -0.5, 0.5, -0.5}), 1e-9)

	sine := make([]float32, 44100)
	for i := range sine {
		sine[i] = float32(0.1 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	assert.InDelta(t, 0.1/math.Sqrt2, RMSFloat32(sine), 1e-3)
}

func TestRMSIntNormalizesByBitDepth(t *testing.T) {
	assert.Equal(t, 0.0, RMSInt(nil, 16))
	assert.Equal(t, 0.0, RMSInt([]int{100}, 0))
	assert.InDelta(t, 1.0, RMSInt([]int{-32768, -32768}, 16), 1e-9)
	assert.InDelta(t, 0.5, RMSInt([]int{16384, -16384}, 16), 1e-9)
	assert.InDelta(t, 0.5, RMSInt([]int{64, -64}, 8), 1e-9)
}
