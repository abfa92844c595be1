package types

// Attitude is the aircraft or gimbal attitude in degrees.
type Attitude struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// Velocity is the aircraft ground velocity in m/s, NED axes.
type Velocity struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// Location3D is a GNSS fix. Altitude is metres above the takeoff point.
type Location3D struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Valid reports whether the fix carries a usable coordinate.
func (l Location3D) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180 &&
		!(l.Latitude == 0 && l.Longitude == 0)
}

// VirtualStickState mirrors the vendor virtual-stick status.
type VirtualStickState struct {
	Enabled  bool `json:"enabled"`
	Advanced bool `json:"advanced"`
}

// StickPosition is a raw stick deflection, bounded by MaxStickPosition.
type StickPosition struct {
	Horizontal int `json:"horizontal"`
	Vertical   int `json:"vertical"`
}

// MaxStickPosition is the largest stick deflection the virtual-stick transport accepts.
const MaxStickPosition = 660

// ObstacleDirection selects which perception sensors a setting applies to.
type ObstacleDirection int

const (
	DirectionHorizontal ObstacleDirection = iota
	DirectionUpward
	DirectionDownward
)

func (d ObstacleDirection) String() string {
	switch d {
	case DirectionHorizontal:
		return "horizontal"
	case DirectionUpward:
		return "upward"
	case DirectionDownward:
		return "downward"
	default:
		return "unknown"
	}
}

// ObstacleAvoidanceType is the perception behaviour when an obstacle is detected.
type ObstacleAvoidanceType int

const (
	AvoidanceClose ObstacleAvoidanceType = iota
	AvoidanceBrake
	AvoidanceBypass
)
