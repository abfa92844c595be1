// Package frame converts vectors and headings between the self-maintained
// coordinate system (SCS), the aircraft body frame and North-East-Down.
//
// Convention: in SCS, X points right and Y points forward of the benchmark
// heading. Headings are compass degrees, clockwise from north. At a benchmark
// of 0 the SCS X axis is east and Y is north. NED vectors are returned as
// Vector3D{X: north, Y: east, Z: down}; body vectors as
// Vector3D{X: forward, Y: right, Z: down}.
package frame

import (
	"math"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// NormalizeToSCS maps any angle into [0, 360).
func NormalizeToSCS(angle float64) float64 {
	m := math.Mod(angle, 360)
	if m < 0 {
		m += 360
	}
	// -1e-14 + 360 rounds to 360.
	if m >= 360 {
		m = 0
	}
	return m
}

// ShortestAngleInSCS returns the signed rotation from origin to target in
// (-180, 180]. Positive is clockwise.
func ShortestAngleInSCS(origin, target float64) float64 {
	d := NormalizeToSCS(target-origin+540) - 180
	if d <= -180 {
		d += 360
	}
	return d
}

// ConvertOrientationToNED turns an SCS heading into a vendor yaw in (-180, 180].
func ConvertOrientationToNED(orientationInSCS, benchmark float64) float64 {
	r := NormalizeToSCS(orientationInSCS + benchmark)
	if r > 180 {
		r -= 360
	}
	if r <= -180 {
		r += 360
	}
	return r
}

// ConvertCoordinateToNED rotates an SCS vector onto north/east using the
// benchmark heading. Z passes through.
func ConvertCoordinateToNED(v types.Vector3D, benchmark float64) types.Vector3D {
	east, north := rotate(v.X, v.Y, benchmark)
	return types.Vector3D{X: north, Y: east, Z: v.Z}
}

// ConvertCoordinateToBody rotates an SCS vector into the frame of the live
// heading. Z passes through.
func ConvertCoordinateToBody(v types.Vector3D, current, benchmark float64) types.Vector3D {
	angle := math.Mod(-(current - benchmark), 360)
	right, forward := rotate(v.X, v.Y, angle)
	return types.Vector3D{X: forward, Y: right, Z: v.Z}
}

// ConvertNEDToSCS is the inverse of ConvertCoordinateToNED for the horizontal
// components. It takes north/east and returns SCS x/y.
func ConvertNEDToSCS(north, east, benchmark float64) (x, y float64) {
	return rotate(east, north, -benchmark)
}

// rotate expresses (x, y) in axes turned clockwise by deg.
func rotate(x, y, deg float64) (float64, float64) {
	sin, cos := math.Sincos(DegToRad(deg))
	return x*cos + y*sin, y*cos - x*sin
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }
