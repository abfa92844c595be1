// Package strategy turns remote operator samples into aircraft commands.
package strategy

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// ErrUnknownMode is returned by ParseMode for unrecognised input.
var ErrUnknownMode = errors.New("strategy: unknown control mode")

// Mode selects a control strategy.
type Mode int

const (
	ModeThumbsticks Mode = iota
	ModeHeadset
)

func (m Mode) String() string {
	switch m {
	case ModeThumbsticks:
		return "thumbsticks"
	case ModeHeadset:
		return "headset"
	default:
		return "unknown"
	}
}

// ParseMode accepts a mode name or its numeric form.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thumbsticks", "thumbstick", "0":
		return ModeThumbsticks, nil
	case "headset", "1":
		return ModeHeadset, nil
	}
	return 0, errors.Wrapf(ErrUnknownMode, "%q", s)
}

// PositionMonitor is the part of the spatial position monitor strategies
// consult each sample.
type PositionMonitor interface {
	OrientationInSCS() float64
	ConvertCoordinateToNED(v types.Vector3D) types.Vector3D
	ConvertCoordinateToBody(v types.Vector3D) types.Vector3D
	ConvertOrientationToNED(orientationInSCS float64) float64
}

// Commander is where strategies send their output. Calls must not block on
// the aircraft.
type Commander interface {
	SendCommand(p types.FlightControlParam)
	SetSticks(left, right types.StickPosition)
	RotateGimbal(r types.GimbalRotation)
}

// Strategy consumes operator samples.
type Strategy interface {
	Mode() Mode
	VirtualStickNeeded() bool
	AdvancedParamNeeded() bool
	OnControllerStatusData(d types.ControlStatusData)
	// UpdateMonitor attaches the monitor, or detaches it when m is nil.
	UpdateMonitor(m PositionMonitor)
}

// Config holds strategy settings.
type Config struct {
	// CommandInterval is the minimum spacing between headset commands.
	CommandInterval time.Duration
	// MovementScale multiplies headset translation velocity.
	MovementScale float64
	// MaxRotationVelocity caps the yaw step in deg/s. Zero disables the cap.
	MaxRotationVelocity float64
	// VelocityThreshold discards headset commands faster than this, in m/s.
	VelocityThreshold float64
	// BodyFrame sends headset velocity in the body frame instead of NED.
	BodyFrame bool
	// GimbalRollSync also follows head roll with the gimbal.
	GimbalRollSync bool

	Curve               Curve
	Scale               types.ScaleFactor
	AdvancedThumbsticks bool

	// Now is the wall clock; nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns settings for a 5 Hz command rate.
func DefaultConfig() Config {
	return Config{
		CommandInterval:     200 * time.Millisecond,
		MovementScale:       1,
		MaxRotationVelocity: 90,
		VelocityThreshold:   3,
		Curve:               CurveExponential,
		Scale:               types.UnitScale(),
	}
}

// New builds the strategy for mode.
func New(mode Mode, cfg Config, cmd Commander) Strategy {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if mode == ModeThumbsticks {
		return NewThumbsticks(cfg, cmd)
	}
	return NewHeadset(cfg, cmd)
}
