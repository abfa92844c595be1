package types

// CoordinateSystem selects the frame of the roll/pitch components.
type CoordinateSystem int

const (
	CoordinateGround CoordinateSystem = iota
	CoordinateBody
)

// VerticalControlMode selects how VerticalThrottle is interpreted.
type VerticalControlMode int

const (
	VerticalVelocity VerticalControlMode = iota
	VerticalPosition
)

// YawControlMode selects how Yaw is interpreted.
type YawControlMode int

const (
	YawAngle YawControlMode = iota
	YawAngularVelocity
)

// RollPitchControlMode selects how Roll and Pitch are interpreted.
type RollPitchControlMode int

const (
	RollPitchVelocity RollPitchControlMode = iota
	RollPitchAngle
)

// FlightControlParam is one advanced virtual-stick command.
//
// In the ground frame Roll is the north velocity and Pitch the east velocity.
// In the body frame Roll is forward and Pitch is right.
type FlightControlParam struct {
	Roll                 float64              `json:"roll"`
	Pitch                float64              `json:"pitch"`
	Yaw                  float64              `json:"yaw"`
	VerticalThrottle     float64              `json:"verticalThrottle"`
	CoordinateSystem     CoordinateSystem     `json:"coordinateSystem"`
	VerticalControlMode  VerticalControlMode  `json:"verticalControlMode"`
	YawControlMode       YawControlMode       `json:"yawControlMode"`
	RollPitchControlMode RollPitchControlMode `json:"rollPitchControlMode"`
}

// NewFlightControlParam returns a zero command in the ground frame.
func NewFlightControlParam() FlightControlParam {
	return FlightControlParam{
		CoordinateSystem:     CoordinateGround,
		VerticalControlMode:  VerticalVelocity,
		YawControlMode:       YawAngle,
		RollPitchControlMode: RollPitchVelocity,
	}
}

// GroundCommand builds a ground-frame command. A nil yaw holds the current
// heading by commanding zero angular velocity; a nil throttle holds the
// current altitude by commanding zero vertical velocity.
func GroundCommand(north, east float64, yaw, altitude *float64) FlightControlParam {
	p := NewFlightControlParam()
	p.Roll = north
	p.Pitch = east
	if yaw == nil {
		p.YawControlMode = YawAngularVelocity
	} else {
		p.Yaw = *yaw
	}
	if altitude != nil {
		p.VerticalThrottle = *altitude
		p.VerticalControlMode = VerticalPosition
	}
	return p
}

// ZeroCommand holds position and heading.
func ZeroCommand() FlightControlParam {
	return GroundCommand(0, 0, nil, nil)
}

// GimbalRotation is an absolute gimbal angle request.
type GimbalRotation struct {
	Pitch    float64 `json:"pitch"`
	Roll     float64 `json:"roll"`
	Duration float64 `json:"duration"`
}

// ScaleFactor divides each stick channel after shaping. A factor of 2 halves
// the stick authority on that channel.
type ScaleFactor struct {
	LeftHorizontal  float64 `json:"left_horizontal"`
	LeftVertical    float64 `json:"left_vertical"`
	RightHorizontal float64 `json:"right_horizontal"`
	RightVertical   float64 `json:"right_vertical"`
}

// UnitScale leaves every channel untouched.
func UnitScale() ScaleFactor {
	return ScaleFactor{LeftHorizontal: 1, LeftVertical: 1, RightHorizontal: 1, RightVertical: 1}
}
