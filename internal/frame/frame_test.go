package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

const eps = 1e-9

func TestNormalizeToSCSRange(t *testing.T) {
	for _, a := range []float64{-1080.5, -720, -360, -359.9, -180, -1, -1e-14, 0, 1, 179.5, 359.999, 360, 361, 725.25, 1e6} {
		got := NormalizeToSCS(a)
		assert.GreaterOrEqual(t, got, 0.0, "angle %v", a)
		assert.Less(t, got, 360.0, "angle %v", a)
	}
}

func TestNormalizeToSCSPeriodic(t *testing.T) {
	for _, a := range []float64{-45, 0, 12.5, 190, 359} {
		base := NormalizeToSCS(a)
		for k := -3; k <= 3; k++ {
			assert.InDelta(t, base, NormalizeToSCS(a+360*float64(k)), eps, "angle %v k %d", a, k)
		}
	}
}

func TestNormalizeToSCSNegative(t *testing.T) {
	assert.InDelta(t, 270.0, NormalizeToSCS(-90), eps)
	assert.InDelta(t, 0.0, NormalizeToSCS(-360), eps)
	assert.InDelta(t, 1.0, NormalizeToSCS(-719), eps)
}

func TestShortestAngleInSCS(t *testing.T) {
	tests := []struct {
		name           string
		origin, target float64
		want           float64
	}{
		{"same", 42, 42, 0},
		{"wrap through zero", 350, 10, 20},
		{"wrap backwards", 10, 350, -20},
		{"half turn is positive", 0, 180, 180},
		{"half turn from other side", 180, 0, 180},
		{"small clockwise", 90, 100, 10},
		{"small counterclockwise", 100, 90, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ShortestAngleInSCS(tt.origin, tt.target), eps)
		})
	}
}

func TestShortestAngleInSCSRange(t *testing.T) {
	for o := -400.0; o <= 400; o += 37.5 {
		for tg := -400.0; tg <= 400; tg += 41.25 {
			d := ShortestAngleInSCS(o, tg)
			assert.Greater(t, d, -180.0)
			assert.LessOrEqual(t, d, 180.0)
		}
	}
}

func TestConvertOrientationToNED(t *testing.T) {
	for _, a := range []float64{-270, -90, 0, 45, 179, 180, 181, 270, 359, 720} {
		got := ConvertOrientationToNED(a, 0)
		want := NormalizeToSCS(a)
		if want > 180 {
			want -= 360
		}
		assert.InDelta(t, want, got, eps, "angle %v", a)
		assert.Greater(t, got, -180.0)
		assert.LessOrEqual(t, got, 180.0)
	}
	assert.InDelta(t, -170.0, ConvertOrientationToNED(20, 170), eps)
	assert.InDelta(t, 100.0, ConvertOrientationToNED(10, 90), eps)
}

func TestConvertCoordinateToNEDFixtures(t *testing.T) {
	got := ConvertCoordinateToNED(types.Vector3D{X: 100, Y: 0}, 0)
	assert.InDelta(t, 0.0, got.X, eps, "north")
	assert.InDelta(t, 100.0, got.Y, eps, "east")

	got = ConvertCoordinateToNED(types.Vector3D{X: 0, Y: 100}, 0)
	assert.InDelta(t, 100.0, got.X, eps, "north")
	assert.InDelta(t, 0.0, got.Y, eps, "east")

	got = ConvertCoordinateToNED(types.Vector3D{X: 1, Y: 0, Z: 0}, 0)
	assert.InDelta(t, 0.0, got.X, eps)
	assert.InDelta(t, 1.0, got.Y, eps)
	assert.InDelta(t, 0.0, got.Z, eps)
}

func TestConvertCoordinateToNEDRotated(t *testing.T) {
	// Facing east, forward is east and right is south.
	got := ConvertCoordinateToNED(types.Vector3D{Y: 2, Z: -0.5}, 90)
	assert.InDelta(t, 0.0, got.X, eps)
	assert.InDelta(t, 2.0, got.Y, eps)
	assert.InDelta(t, -0.5, got.Z, eps)

	got = ConvertCoordinateToNED(types.Vector3D{X: 1}, 90)
	assert.InDelta(t, -1.0, got.X, eps)
	assert.InDelta(t, 0.0, got.Y, eps)

	got = ConvertCoordinateToNED(types.Vector3D{Y: 1}, 45)
	assert.InDelta(t, math.Sqrt2/2, got.X, eps)
	assert.InDelta(t, math.Sqrt2/2, got.Y, eps)
}

func TestConvertCoordinateToBody(t *testing.T) {
	// Not turned since the benchmark: SCS and body agree.
	got := ConvertCoordinateToBody(types.Vector3D{X: 1, Y: 2, Z: 3}, 30, 30)
	assert.InDelta(t, 2.0, got.X, eps, "forward")
	assert.InDelta(t, 1.0, got.Y, eps, "right")
	assert.InDelta(t, 3.0, got.Z, eps)

	// Turned 90 clockwise: SCS forward is now to the left.
	got = ConvertCoordinateToBody(types.Vector3D{Y: 1}, 90, 0)
	assert.InDelta(t, 0.0, got.X, eps)
	assert.InDelta(t, -1.0, got.Y, eps)
}

func TestNEDRoundTrip(t *testing.T) {
	for _, b := range []float64{0, 33, 90, 181, 300} {
		v := types.Vector3D{X: 1.5, Y: -0.25}
		ned := ConvertCoordinateToNED(v, b)
		x, y := ConvertNEDToSCS(ned.X, ned.Y, b)
		assert.InDelta(t, v.X, x, eps, "benchmark %v", b)
		assert.InDelta(t, v.Y, y, eps, "benchmark %v", b)
	}
}
