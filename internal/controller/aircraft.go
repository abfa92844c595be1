package controller

import (
	"context"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Aircraft is the flight-control surface the controller drives. Methods taking
// a context block until the aircraft reports the result.
type Aircraft interface {
	SendVirtualStickParam(p types.FlightControlParam) error
	SetStickPositions(left, right types.StickPosition) error

	EnableVirtualStick(ctx context.Context) error
	DisableVirtualStick(ctx context.Context) error
	SetVirtualStickAdvancedMode(ctx context.Context, enabled bool) error

	IsFlying(ctx context.Context) (bool, error)
	Takeoff(ctx context.Context) error
	StartAutoLanding(ctx context.Context) error
	SetHomeLocation(ctx context.Context, loc types.Location3D) error
	RotateGimbal(ctx context.Context, r types.GimbalRotation) error
	SetHeightLimit(ctx context.Context, meters float64) error
	SetObstacleAvoidance(ctx context.Context, t types.ObstacleAvoidanceType) error
	SetObstacleWarningDistance(ctx context.Context, dir types.ObstacleDirection, meters float64) error
}
