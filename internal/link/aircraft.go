package link

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Aircraft drives the vendor flight controller through the bridge.
type Aircraft struct {
	client *Client
}

// NewAircraft wraps a client.
func NewAircraft(client *Client) *Aircraft {
	return &Aircraft{client: client}
}

// EncodeStickParam lays out an advanced command: roll, pitch, yaw, throttle
// as f64 followed by the four mode enums as u32.
func EncodeStickParam(p types.FlightControlParam) []byte {
	buf := make([]byte, 0, 4*8+4*4)
	for _, v := range []float64{p.Roll, p.Pitch, p.Yaw, p.VerticalThrottle} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, m := range []int{int(p.CoordinateSystem), int(p.VerticalControlMode), int(p.YawControlMode), int(p.RollPitchControlMode)} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m)) //nolint:gosec // small enums
	}
	return buf
}

// EncodeSticks lays out left then right stick as four i32.
func EncodeSticks(left, right types.StickPosition) []byte {
	buf := make([]byte, 0, 16)
	for _, v := range []int{left.Horizontal, left.Vertical, right.Horizontal, right.Vertical} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v))) //nolint:gosec // bounded by MaxStickPosition
	}
	return buf
}

// EncodeAction lays out an action code followed by its f64 arguments.
func EncodeAction(code uint32, args ...float64) []byte {
	buf := make([]byte, 0, 4+8*len(args))
	buf = binary.LittleEndian.AppendUint32(buf, code)
	for _, a := range args {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(a))
	}
	return buf
}

// SendVirtualStickParam is fire-and-forget; the bridge answers stick frames
// with nothing.
func (a *Aircraft) SendVirtualStickParam(p types.FlightControlParam) error {
	_, err := a.client.sendMessage(MsgStickParam, EncodeStickParam(p))
	return err
}

func (a *Aircraft) SetStickPositions(left, right types.StickPosition) error {
	_, err := a.client.sendMessage(MsgSticks, EncodeSticks(left, right))
	return err
}

func (a *Aircraft) action(ctx context.Context, op string, code uint32, args ...float64) error {
	_, err := a.client.Call(ctx, op, MsgAction, EncodeAction(code, args...))
	return err
}

func (a *Aircraft) EnableVirtualStick(ctx context.Context) error {
	return a.action(ctx, "enable virtual stick", ActionEnableVirtualStick)
}

func (a *Aircraft) DisableVirtualStick(ctx context.Context) error {
	return a.action(ctx, "disable virtual stick", ActionDisableVirtualStick)
}

func (a *Aircraft) SetVirtualStickAdvancedMode(ctx context.Context, enabled bool) error {
	return a.action(ctx, "set advanced mode", ActionAdvancedMode, boolArg(enabled))
}

// IsFlying queries the flight controller; the answer is the Result value.
func (a *Aircraft) IsFlying(ctx context.Context) (bool, error) {
	payload := binary.LittleEndian.AppendUint32(nil, QueryIsFlying)
	res, err := a.client.Call(ctx, "query is flying", MsgQuery, payload)
	if err != nil {
		return false, err
	}
	return res.Value != 0, nil
}

func (a *Aircraft) Takeoff(ctx context.Context) error {
	return a.action(ctx, "takeoff", ActionTakeoff)
}

func (a *Aircraft) StartAutoLanding(ctx context.Context) error {
	return a.action(ctx, "start auto landing", ActionAutoLanding)
}

func (a *Aircraft) SetHomeLocation(ctx context.Context, loc types.Location3D) error {
	return a.action(ctx, "set home location", ActionSetHomeLocation, loc.Latitude, loc.Longitude)
}

func (a *Aircraft) RotateGimbal(ctx context.Context, r types.GimbalRotation) error {
	return a.action(ctx, "rotate gimbal", ActionRotateGimbal, r.Pitch, r.Roll, r.Duration)
}

func (a *Aircraft) SetHeightLimit(ctx context.Context, meters float64) error {
	return a.action(ctx, "set height limit", ActionSetHeightLimit, meters)
}

func (a *Aircraft) SetObstacleAvoidance(ctx context.Context, t types.ObstacleAvoidanceType) error {
	return a.action(ctx, "set obstacle avoidance", ActionSetObstacleAvoidance, float64(t))
}

func (a *Aircraft) SetObstacleWarningDistance(ctx context.Context, dir types.ObstacleDirection, meters float64) error {
	return a.action(ctx, "set "+dir.String()+" warning distance", ActionSetObstacleWarningDst, float64(dir), meters)
}

func boolArg(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
