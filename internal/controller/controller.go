// Package controller sequences takeoff and readiness and streams virtual-stick
// commands to the aircraft while control is active.
package controller

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/monitor"
	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// ErrNotReady is returned by manual velocity requests outside the Ready state.
var ErrNotReady = errors.New("controller: drone is not ready")

// State is the readiness state.
type State int

const (
	StateNotReady State = iota
	StatePreparing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNotReady:
		return "not_ready"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	State            State
	Mode             strategy.Mode
	Position         types.Vector3D
	OrientationInSCS float64
	InitialLocation  *types.Location3D
	// GimbalAttitude is the last gimbal reading while a monitor runs.
	GimbalAttitude *types.Attitude
	// Fence is set only when the geofenced monitor runs.
	Fence       *monitor.Fence
	InsideFence bool
}

// Controller is implemented by VirtualDroneController and MockDroneController.
type Controller interface {
	PrepareDrone(mode strategy.Mode)
	Abort()
	Destroy()
	Land()
	ChangeDroneVelocity(forward, right, rotate float64, period time.Duration) error
	ChangeDroneVelocityBaseOnGround(north, east, rotate float64, period time.Duration) error
	RiseAndSetGimbal(pitch float64)
	OnControllerStatusData(d types.ControlStatusData)
	IsDroneReady() bool
	InitialLocation() (types.Location3D, bool)
	Status() Status
}

// Notifier surfaces vendor failures and notable events to the operator.
type Notifier func(level logrus.Level, msg string)

// Feedback reports control state changes to the remote device, e.g.
// ("Control", "Start").
type Feedback func(category, status string)

// Telemetry is what the controller needs from the status monitor.
type Telemetry interface {
	telemetry.RawDataObservable
	monitor.StatusSink
	SetInitialLocation(loc types.Location3D)
}

// Config holds controller settings.
type Config struct {
	// SendingFrequency is the command resend rate in Hz.
	SendingFrequency float64
	// TakeoffHeight is the hover height awaited after takeoff, in metres.
	TakeoffHeight float64
	// TakeoffTolerance is the accepted relative error around TakeoffHeight.
	TakeoffTolerance float64
	// HeightPollInterval is how often the takeoff height is checked.
	HeightPollInterval time.Duration
	// HeightLimit is applied once at setup, in metres.
	HeightLimit float64
	// ControlWarningDistance is the obstacle warning distance while controlled.
	ControlWarningDistance float64
	// DefaultWarningDistance is restored on Destroy.
	DefaultWarningDistance float64
	// RequestTimeout bounds every vendor call.
	RequestTimeout time.Duration

	Fence    monitor.Fence
	Monitor  monitor.Config
	Strategy strategy.Config
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		SendingFrequency:       5,
		TakeoffHeight:          1.2,
		TakeoffTolerance:       0.1,
		HeightPollInterval:     100 * time.Millisecond,
		HeightLimit:            2,
		ControlWarningDistance: 0.1,
		DefaultWarningDistance: 4.0,
		RequestTimeout:         5 * time.Second,
		Fence:                  monitor.Fence{Left: -5, Top: 5, Right: 5, Bottom: -5},
		Strategy:               strategy.DefaultConfig(),
	}
}

// SendInterval is the period between resent commands.
func (c Config) SendInterval() time.Duration {
	if c.SendingFrequency <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / c.SendingFrequency)
}

func logNotifier(log *logrus.Entry) Notifier {
	return func(level logrus.Level, msg string) {
		log.Log(level, msg)
	}
}
