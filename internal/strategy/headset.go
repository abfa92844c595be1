package strategy

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/frame"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// gimbalDuration is the rotation time for each gimbal request, in seconds.
const gimbalDuration = 1.0

// Headset follows head motion: head yaw drives aircraft yaw, head height the
// altitude setpoint, head translation the horizontal velocity and head tilt
// the gimbal.
type Headset struct {
	cfg Config
	cmd Commander
	log *logrus.Entry

	mu                  sync.Mutex
	monitor             PositionMonitor
	sampled             bool
	lastValidSampleTime int64
	lastSendCmd         time.Time
	benchmarkLatched    bool
	benchmarkRotation   types.Vector3D
	benchmarkPosition   types.Vector3D
	lastValidRotation   types.Vector3D
	lastValidPosition   types.Vector3D
}

// NewHeadset creates a headset strategy.
func NewHeadset(cfg Config, cmd Commander) *Headset {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Headset{cfg: cfg, cmd: cmd, log: logrus.WithField("component", "headset")}
}

func (h *Headset) Mode() Mode                { return ModeHeadset }
func (h *Headset) VirtualStickNeeded() bool  { return true }
func (h *Headset) AdvancedParamNeeded() bool { return true }

// UpdateMonitor swaps the monitor. Detaching also resets the timing state so
// the next session primes again.
func (h *Headset) UpdateMonitor(m PositionMonitor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitor = m
	if m == nil {
		h.lastSendCmd = time.Time{}
		h.benchmarkLatched = false
	}
}

// OnControllerStatusData processes one pose sample.
func (h *Headset) OnControllerStatusData(d types.ControlStatusData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mon := h.monitor
	if mon == nil {
		return
	}
	if h.sampled && d.SampleTimestamp <= h.lastValidSampleTime {
		h.log.WithField("ts", d.SampleTimestamp).Debug("dropping stale sample")
		return
	}

	now := h.cfg.Now()
	first := h.lastSendCmd.IsZero()
	if !first && now.Sub(h.lastSendCmd) < h.cfg.CommandInterval {
		return
	}

	if !h.benchmarkLatched {
		h.benchmarkLatched = true
		h.benchmarkRotation = d.BenchmarkRotation
		h.benchmarkPosition = d.BenchmarkPosition
		h.lastValidRotation = d.BenchmarkRotation
		h.lastValidPosition = d.BenchmarkPosition
	}

	var gap float64
	if first {
		gap = float64(d.SampleTimestamp-d.BenchmarkSampleTimestamp) / 1000
		if gap <= 0 {
			h.markValid(d, now)
			return
		}
	} else {
		gap = now.Sub(h.lastSendCmd).Seconds()
	}

	yaw := h.targetYaw(mon, d, gap)
	altitude := d.CurrentPosition.Y
	velocity := h.velocity(mon, d, gap)

	h.rotateGimbal(d)

	limit := h.cfg.VelocityThreshold
	if limit > 0 && (math.Abs(velocity.X) > limit || math.Abs(velocity.Y) > limit || math.Abs(velocity.Z) > limit) {
		h.log.WithFields(logrus.Fields{
			"x": velocity.X, "y": velocity.Y, "z": velocity.Z, "threshold": limit,
		}).Warn("velocity over threshold, command discarded")
		return
	}

	p := types.GroundCommand(velocity.X, velocity.Y, &yaw, &altitude)
	if h.cfg.BodyFrame {
		p.CoordinateSystem = types.CoordinateBody
	}
	h.cmd.SendCommand(p)
	h.markValid(d, now)
}

func (h *Headset) markValid(d types.ControlStatusData, now time.Time) {
	h.sampled = true
	h.lastValidSampleTime = d.SampleTimestamp
	h.lastSendCmd = now
	h.lastValidPosition = d.CurrentPosition
	h.lastValidRotation = d.CurrentRotation
}

// targetYaw returns the vendor yaw matching the head's heading relative to
// its benchmark, optionally limited to MaxRotationVelocity.
func (h *Headset) targetYaw(mon PositionMonitor, d types.ControlStatusData, gap float64) float64 {
	target := frame.NormalizeToSCS(d.CurrentRotation.Y - h.benchmarkRotation.Y)
	current := mon.OrientationInSCS()
	if h.cfg.MaxRotationVelocity > 0 && !math.IsNaN(current) {
		delta := frame.ShortestAngleInSCS(current, target)
		step := h.cfg.MaxRotationVelocity * gap
		if math.Abs(delta) > step {
			target = frame.NormalizeToSCS(current + math.Copysign(step, delta))
		}
	}
	return mon.ConvertOrientationToNED(target)
}

// velocity finite-differences the head position and converts it to the
// command frame. The result is (north, east, down) or (forward, right, down).
func (h *Headset) velocity(mon PositionMonitor, d types.ControlStatusData, gap float64) types.Vector3D {
	// Headset world axes are X right, Y up, Z forward.
	cur := r3.Vector{X: d.CurrentPosition.X, Y: d.CurrentPosition.Z, Z: -d.CurrentPosition.Y}
	last := r3.Vector{X: h.lastValidPosition.X, Y: h.lastValidPosition.Z, Z: -h.lastValidPosition.Y}
	v := cur.Sub(last).Mul(h.cfg.MovementScale / gap)

	// Align with the head's benchmark heading so forward means SCS forward.
	x, y := frame.ConvertNEDToSCS(v.Y, v.X, h.benchmarkRotation.Y)
	scs := types.Vector3D{X: x, Y: y, Z: v.Z}
	if h.cfg.BodyFrame {
		return mon.ConvertCoordinateToBody(scs)
	}
	return mon.ConvertCoordinateToNED(scs)
}

func (h *Headset) rotateGimbal(d types.ControlStatusData) {
	pitch, ok := GimbalAngle(d.CurrentRotation.X)
	if !ok {
		return
	}
	r := types.GimbalRotation{Pitch: pitch, Duration: gimbalDuration}
	if h.cfg.GimbalRollSync {
		if roll, ok := GimbalAngle(d.CurrentRotation.Z); ok {
			r.Roll = roll
		}
	}
	h.cmd.RotateGimbal(r)
}

// GimbalAngle maps a head tilt to a gimbal angle: [0, 90] becomes [0, -90]
// and [270, 360) becomes [90, 0]. Other tilts have no mapping.
func GimbalAngle(tilt float64) (float64, bool) {
	t := frame.NormalizeToSCS(tilt)
	switch {
	case t <= 90:
		return -t, true
	case t >= 270:
		return 360 - t, true
	}
	return 0, false
}
