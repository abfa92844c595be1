package controller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/monitor"
	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// positionMonitor is satisfied by both monitor variants.
type positionMonitor interface {
	strategy.PositionMonitor
	Start()
	Stop()
	Position() types.Vector3D
	GimbalAttitude() types.Attitude
}

// VirtualDroneController drives a real aircraft through the virtual stick.
//
// All state lives behind mu. Vendor calls that report a result are made
// without mu held; stick commands are sent with mu held so that nothing is
// sent once Abort has switched the state. Strategies call back into the
// controller with their own lock held, so monitor hand-over happens under
// attachMu with mu released.
type VirtualDroneController struct {
	aircraft  Aircraft
	telemetry Telemetry
	cfg       Config
	log       *logrus.Entry

	lifetime context.Context
	shutdown context.CancelFunc

	attachMu sync.Mutex

	mu              sync.Mutex
	notify          Notifier
	feedback        Feedback
	state           State
	strategy        strategy.Strategy
	monitor         positionMonitor
	initialLocation *types.Location3D
	param           types.FlightControlParam

	prepareCancel context.CancelFunc
	prepareDone   chan struct{}
	tickerCancel  context.CancelFunc
	tickerDone    chan struct{}
	resetTimer    *time.Timer
	resetGen      uint64

	location      *types.Location3D
	ultrasonic    float64
	hasUltrasonic bool
	registrations map[telemetry.Key]telemetry.ObserverID
}

// NewVirtual creates a controller and starts following location and
// ultrasonic height telemetry. Call Setup before preparing.
func NewVirtual(aircraft Aircraft, tele Telemetry, cfg Config) *VirtualDroneController {
	lifetime, shutdown := context.WithCancel(context.Background())
	log := logrus.WithField("component", "controller")
	c := &VirtualDroneController{
		aircraft:  aircraft,
		telemetry: tele,
		cfg:       cfg,
		log:       log,
		lifetime:  lifetime,
		shutdown:  shutdown,
		notify:    logNotifier(log),
		feedback:  func(string, string) {},
		param:     types.ZeroCommand(),
	}
	c.registrations = map[telemetry.Key]telemetry.ObserverID{
		telemetry.KeyAircraftLocation3D: tele.Register(telemetry.KeyAircraftLocation3D, c.onLocation),
		telemetry.KeyUltrasonicHeight:   tele.Register(telemetry.KeyUltrasonicHeight, c.onUltrasonicHeight),
	}
	return c
}

// OnNotify replaces the message notifier.
func (c *VirtualDroneController) OnNotify(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = n
}

// OnFeedback replaces the control feedback callback.
func (c *VirtualDroneController) OnFeedback(f Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feedback = f
}

// Setup applies the height limit and the close-range obstacle settings used
// while the drone is controlled indoors. Failures are reported, not returned.
func (c *VirtualDroneController) Setup(ctx context.Context) {
	c.call(ctx, "set height limit", func(ctx context.Context) error {
		return c.aircraft.SetHeightLimit(ctx, c.cfg.HeightLimit)
	})
	c.call(ctx, "set obstacle avoidance", func(ctx context.Context) error {
		return c.aircraft.SetObstacleAvoidance(ctx, types.AvoidanceClose)
	})
	c.setWarningDistance(ctx, c.cfg.ControlWarningDistance)
}

func (c *VirtualDroneController) setWarningDistance(ctx context.Context, meters float64) {
	for _, dir := range []types.ObstacleDirection{types.DirectionHorizontal, types.DirectionUpward, types.DirectionDownward} {
		c.call(ctx, "set "+dir.String()+" warning distance", func(ctx context.Context) error {
			return c.aircraft.SetObstacleWarningDistance(ctx, dir, meters)
		})
	}
}

// call runs a vendor request under the request timeout and reports failure.
func (c *VirtualDroneController) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	err := fn(ctx)
	if err != nil {
		c.report(logrus.ErrorLevel, fmt.Sprintf("failed to %s: %v", op, err))
	}
	return err
}

func (c *VirtualDroneController) report(level logrus.Level, msg string) {
	c.mu.Lock()
	n := c.notify
	c.mu.Unlock()
	n(level, msg)
}

func (c *VirtualDroneController) onLocation(_ telemetry.Key, value any) {
	loc, ok := value.(types.Location3D)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = &loc
}

func (c *VirtualDroneController) onUltrasonicHeight(_ telemetry.Key, value any) {
	dm, ok := value.(int)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ultrasonic = float64(dm) / 10
	c.hasUltrasonic = true
}

// height prefers the GNSS altitude and falls back to the ultrasonic sensor.
func (c *VirtualDroneController) height() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.location != nil && c.location.Valid() {
		return c.location.Altitude, true
	}
	if c.hasUltrasonic {
		return c.ultrasonic, true
	}
	return 0, false
}

// PrepareDrone selects the strategy for mode and, if not already ready or
// preparing, starts the takeoff and readiness sequence in the background.
func (c *VirtualDroneController) PrepareDrone(mode strategy.Mode) {
	c.attachMu.Lock()
	c.mu.Lock()
	next := strategy.New(mode, c.cfg.Strategy, c)
	prev := c.strategy
	c.strategy = next

	switch c.state {
	case StateReady:
		c.switchStrategyLocked(prev, next)
		c.log.WithField("mode", mode).Info("control strategy switched")
		return
	case StatePreparing:
		c.mu.Unlock()
		c.attachMu.Unlock()
		return
	}

	c.state = StatePreparing
	ctx, cancel := context.WithCancel(c.lifetime)
	done := make(chan struct{})
	c.prepareCancel, c.prepareDone = cancel, done
	c.mu.Unlock()
	c.attachMu.Unlock()

	c.log.WithField("mode", mode).Info("preparing drone")
	go c.prepare(ctx, done)
}

// switchStrategyLocked hands control to next while Ready. The held command is
// reset, the resend loop follows next's advanced-param need and the monitor
// is replaced when that need changes. Called with attachMu and mu held;
// releases both.
func (c *VirtualDroneController) switchStrategyLocked(prev, next strategy.Strategy) {
	c.stopResetTimerLocked()
	c.param = types.ZeroCommand()

	advanced := next.AdvancedParamNeeded()
	var tickerCancel context.CancelFunc
	var tickerDone chan struct{}
	if advanced {
		c.startTickerLocked()
	} else {
		tickerCancel, tickerDone = c.tickerCancel, c.tickerDone
		c.tickerCancel, c.tickerDone = nil, nil
	}

	mon := c.monitor
	var stale positionMonitor
	rebuild := prev == nil || prev.AdvancedParamNeeded() != advanced
	if rebuild {
		stale = mon
		mon = c.newMonitor(advanced)
		c.monitor = mon
	}
	c.mu.Unlock()

	if prev != nil {
		prev.UpdateMonitor(nil)
	}
	if rebuild {
		mon.Start()
	}
	next.UpdateMonitor(mon)
	c.attachMu.Unlock()

	if tickerCancel != nil {
		tickerCancel()
		<-tickerDone
	}
	if !rebuild {
		return
	}
	if stale != nil {
		stale.Stop()
	}
	if c.IsDroneReady() {
		_ = c.call(c.lifetime, "set advanced virtual stick", func(ctx context.Context) error {
			return c.aircraft.SetVirtualStickAdvancedMode(ctx, advanced)
		})
	}
}

func (c *VirtualDroneController) prepare(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.prepareDone != done {
			return
		}
		c.prepareCancel()
		c.prepareCancel, c.prepareDone = nil, nil
		if c.state == StatePreparing {
			c.state = StateNotReady
		}
	}()

	var flying bool
	err := c.call(ctx, "query flying state", func(ctx context.Context) error {
		var err error
		flying, err = c.aircraft.IsFlying(ctx)
		return err
	})
	if err != nil {
		return
	}

	if flying {
		c.log.Info("drone already flying, skipping takeoff")
		c.captureInitialLocation()
	} else {
		if err := c.call(ctx, "take off", c.aircraft.Takeoff); err != nil {
			return
		}
		if !c.waitForTakeoffHeight(ctx) {
			return
		}
		if loc, ok := c.captureInitialLocation(); ok {
			_ = c.call(ctx, "set home location", func(ctx context.Context) error {
				return c.aircraft.SetHomeLocation(ctx, loc)
			})
		}
	}
	c.becomeReady(ctx)
}

func (c *VirtualDroneController) waitForTakeoffHeight(ctx context.Context) bool {
	target := c.cfg.TakeoffHeight
	tolerance := target * c.cfg.TakeoffTolerance
	ticker := time.NewTicker(c.cfg.HeightPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			h, ok := c.height()
			if ok && math.Abs(h-target) <= tolerance {
				c.log.WithField("height", h).Info("takeoff height reached")
				return true
			}
		}
	}
}

func (c *VirtualDroneController) captureInitialLocation() (types.Location3D, bool) {
	c.mu.Lock()
	if c.location == nil || !c.location.Valid() {
		c.mu.Unlock()
		return types.Location3D{}, false
	}
	loc := *c.location
	c.initialLocation = &loc
	c.mu.Unlock()

	c.telemetry.SetInitialLocation(loc)
	return loc, true
}

func (c *VirtualDroneController) newMonitor(geofenced bool) positionMonitor {
	if geofenced {
		return monitor.NewGeofenced(c.telemetry, c.telemetry, c.cfg.Monitor, c.cfg.Fence, c.cfg.SendInterval())
	}
	return monitor.New(c.telemetry, c.telemetry, c.cfg.Monitor)
}

// becomeReady starts a monitor, enables the virtual stick and only then
// publishes the Ready state. An enable failure tears the monitor down again.
func (c *VirtualDroneController) becomeReady(ctx context.Context) {
	c.mu.Lock()
	advanced := c.strategy.AdvancedParamNeeded()
	c.mu.Unlock()

	mon := c.newMonitor(advanced)
	mon.Start()

	if err := c.call(ctx, "enable virtual stick", c.aircraft.EnableVirtualStick); err != nil {
		mon.Stop()
		return
	}
	if advanced {
		_ = c.call(ctx, "enable advanced virtual stick", func(ctx context.Context) error {
			return c.aircraft.SetVirtualStickAdvancedMode(ctx, true)
		})
	}

	c.attachMu.Lock()
	c.mu.Lock()
	if ctx.Err() != nil || c.state != StatePreparing {
		c.mu.Unlock()
		c.attachMu.Unlock()
		mon.Stop()
		return
	}
	c.monitor = mon
	c.state = StateReady
	c.param = types.ZeroCommand()
	st := c.strategy
	if st.AdvancedParamNeeded() {
		c.startTickerLocked()
	}
	feedback := c.feedback
	c.mu.Unlock()
	st.UpdateMonitor(mon)
	c.attachMu.Unlock()

	c.log.Info("drone ready")
	feedback("Control", "Start")
}

// startTickerLocked starts the command resend loop unless one is running.
func (c *VirtualDroneController) startTickerLocked() {
	if c.tickerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.lifetime)
	done := make(chan struct{})
	c.tickerCancel, c.tickerDone = cancel, done
	go c.runTicker(ctx, done)
}

func (c *VirtualDroneController) runTicker(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.SendInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if ctx.Err() == nil && c.state == StateReady {
				if err := c.aircraft.SendVirtualStickParam(c.param); err != nil {
					c.log.WithError(err).Debug("resend failed")
				}
			}
			c.mu.Unlock()
		}
	}
}

// Abort stops control immediately: pending preparation and the resend loop
// are cancelled and awaited before a final zero command is sent and the
// virtual stick is released.
func (c *VirtualDroneController) Abort() {
	c.attachMu.Lock()
	c.mu.Lock()
	wasReady := c.state == StateReady
	c.state = StateNotReady
	prepareCancel, prepareDone := c.prepareCancel, c.prepareDone
	tickerCancel, tickerDone := c.tickerCancel, c.tickerDone
	c.prepareCancel, c.prepareDone = nil, nil
	c.tickerCancel, c.tickerDone = nil, nil
	mon := c.monitor
	c.monitor = nil
	st := c.strategy
	c.stopResetTimerLocked()
	c.param = types.ZeroCommand()
	feedback := c.feedback
	c.mu.Unlock()
	if st != nil {
		st.UpdateMonitor(nil)
	}
	c.attachMu.Unlock()

	if prepareCancel != nil {
		prepareCancel()
		<-prepareDone
	}
	if tickerCancel != nil {
		tickerCancel()
		<-tickerDone
	}

	if err := c.aircraft.SendVirtualStickParam(types.ZeroCommand()); err != nil {
		c.log.WithError(err).Debug("zero command failed")
	}
	_ = c.call(c.lifetime, "disable virtual stick", c.aircraft.DisableVirtualStick)
	if mon != nil {
		mon.Stop()
	}
	if wasReady {
		c.log.Info("control aborted")
		feedback("Control", "Stop")
	}
}

// Destroy releases control, restores the default obstacle settings and stops
// following telemetry. The controller must not be used afterwards.
func (c *VirtualDroneController) Destroy() {
	c.Abort()

	ctx := context.Background()
	_ = c.call(ctx, "restore obstacle avoidance", func(ctx context.Context) error {
		return c.aircraft.SetObstacleAvoidance(ctx, types.AvoidanceBypass)
	})
	c.setWarningDistance(ctx, c.cfg.DefaultWarningDistance)

	c.mu.Lock()
	regs := c.registrations
	c.registrations = nil
	c.mu.Unlock()
	for key, id := range regs {
		c.telemetry.Unregister(key, id)
	}
	c.shutdown()
}

// Land aborts control and starts automatic landing.
func (c *VirtualDroneController) Land() {
	c.Abort()
	_ = c.call(c.lifetime, "start auto landing", c.aircraft.StartAutoLanding)
}

// ChangeDroneVelocity holds a body-frame velocity and yaw rate for period,
// then returns to hover.
func (c *VirtualDroneController) ChangeDroneVelocity(forward, right, rotate float64, period time.Duration) error {
	p := types.NewFlightControlParam()
	p.CoordinateSystem = types.CoordinateBody
	p.Roll = forward
	p.Pitch = right
	p.Yaw = rotate
	p.YawControlMode = types.YawAngularVelocity
	return c.holdCommand(p, period)
}

// ChangeDroneVelocityBaseOnGround holds a north/east velocity and yaw rate
// for period, then returns to hover.
func (c *VirtualDroneController) ChangeDroneVelocityBaseOnGround(north, east, rotate float64, period time.Duration) error {
	p := types.NewFlightControlParam()
	p.Roll = north
	p.Pitch = east
	p.Yaw = rotate
	p.YawControlMode = types.YawAngularVelocity
	return c.holdCommand(p, period)
}

func (c *VirtualDroneController) holdCommand(p types.FlightControlParam, period time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.param = p
	c.startTickerLocked()

	c.stopResetTimerLocked()
	gen := c.resetGen
	c.resetTimer = time.AfterFunc(period, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.resetGen == gen && c.state == StateReady {
			c.param = types.ZeroCommand()
		}
	})
	return nil
}

func (c *VirtualDroneController) stopResetTimerLocked() {
	c.resetGen++
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// RiseAndSetGimbal points the gimbal to an absolute pitch.
func (c *VirtualDroneController) RiseAndSetGimbal(pitch float64) {
	c.RotateGimbal(types.GimbalRotation{Pitch: pitch, Duration: 1})
}

// OnControllerStatusData hands a sample to the active strategy while Ready.
func (c *VirtualDroneController) OnControllerStatusData(d types.ControlStatusData) {
	c.mu.Lock()
	st := c.strategy
	ready := c.state == StateReady
	c.mu.Unlock()
	if !ready || st == nil {
		return
	}
	st.OnControllerStatusData(d)
}

// SendCommand replaces the held command and sends it once right away.
func (c *VirtualDroneController) SendCommand(p types.FlightControlParam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return
	}
	c.stopResetTimerLocked()
	c.param = p
	if err := c.aircraft.SendVirtualStickParam(p); err != nil {
		c.log.WithError(err).Warn("send command failed")
	}
}

// SetSticks writes raw stick positions.
func (c *VirtualDroneController) SetSticks(left, right types.StickPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return
	}
	if err := c.aircraft.SetStickPositions(left, right); err != nil {
		c.log.WithError(err).Warn("set sticks failed")
	}
}

// RotateGimbal issues a gimbal rotation without waiting for the result.
func (c *VirtualDroneController) RotateGimbal(r types.GimbalRotation) {
	go func() {
		_ = c.call(c.lifetime, "rotate gimbal", func(ctx context.Context) error {
			return c.aircraft.RotateGimbal(ctx, r)
		})
	}()
}

// IsDroneReady reports whether commands are flowing.
func (c *VirtualDroneController) IsDroneReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateReady
}

// InitialLocation returns the location captured when control started.
func (c *VirtualDroneController) InitialLocation() (types.Location3D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialLocation == nil {
		return types.Location3D{}, false
	}
	return *c.initialLocation, true
}

// Status returns the current state and estimate.
func (c *VirtualDroneController) Status() Status {
	c.mu.Lock()
	s := Status{State: c.state, OrientationInSCS: math.NaN()}
	if c.strategy != nil {
		s.Mode = c.strategy.Mode()
	}
	if c.initialLocation != nil {
		loc := *c.initialLocation
		s.InitialLocation = &loc
	}
	mon := c.monitor
	c.mu.Unlock()

	if mon != nil {
		s.Position = mon.Position()
		s.OrientationInSCS = mon.OrientationInSCS()
		gimbal := mon.GimbalAttitude()
		s.GimbalAttitude = &gimbal
		if g, ok := mon.(*monitor.GeofencedMonitor); ok {
			fence := g.Fence()
			s.Fence = &fence
			s.InsideFence = fence.Contains(s.Position.X, s.Position.Y)
		}
	}
	return s
}
