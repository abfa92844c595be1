package strategy

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// shapeConstant controls the exponential curve; larger is more linear.
const shapeConstant = 7.0

// Curve is a stick response curve mapping [-1, 1] onto itself.
type Curve int

const (
	CurveExponential Curve = iota
	CurvePower
)

func (c Curve) String() string {
	if c == CurvePower {
		return "power"
	}
	return "exponential"
}

// ParseCurve accepts "exponential" or "power".
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exponential", "exp":
		return CurveExponential, nil
	case "power", "pow5":
		return CurvePower, nil
	}
	return 0, errors.Errorf("strategy: unknown stick curve %q", s)
}

// Apply shapes v. Inputs outside [-1, 1] are clamped first.
func (c Curve) Apply(v float64) float64 {
	v = math.Max(-1, math.Min(1, v))
	if c == CurvePower {
		return math.Pow(v, 5)
	}
	k := 10 - shapeConstant
	shaped := (math.Exp(k*math.Abs(v)) - 1) / (math.Exp(k) - 1)
	return math.Copysign(shaped, v)
}

// StickPosition shapes v, divides by scale and clamps to the stick range.
func (c Curve) StickPosition(v, scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	pos := c.Apply(v) * types.MaxStickPosition / scale
	pos = math.Max(-types.MaxStickPosition, math.Min(types.MaxStickPosition, pos))
	return int(pos)
}
