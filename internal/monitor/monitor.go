// Package monitor dead-reckons the aircraft position relative to where
// control started and exposes frame conversions anchored to that moment.
package monitor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/frame"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// StatusSink receives derived status lines.
type StatusSink interface {
	SetStatusLine(key telemetry.Key, line string)
}

// Config holds monitor settings.
type Config struct {
	// CompassOffset is added to every yaw reading, in degrees.
	CompassOffset float64
	// Now is the wall clock; nil means time.Now.
	Now func() time.Time
}

// SpatialPositionMonitor integrates velocity telemetry into a position in the
// self-maintained coordinate system and tracks the benchmark heading.
type SpatialPositionMonitor struct {
	source telemetry.RawDataObservable
	status StatusSink
	cfg    Config
	log    *logrus.Entry

	mu            sync.RWMutex
	started       bool
	registrations map[telemetry.Key]telemetry.ObserverID
	x, y, z       float64
	benchmark     float64
	current       float64
	lastUpdate    time.Time
	lastVelocity  types.Velocity
	gimbal        types.Attitude
}

// New creates a stopped monitor. status may be nil.
func New(source telemetry.RawDataObservable, status StatusSink, cfg Config) *SpatialPositionMonitor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SpatialPositionMonitor{
		source:    source,
		status:    status,
		cfg:       cfg,
		log:       logrus.WithField("component", "monitor"),
		benchmark: math.NaN(),
		current:   math.NaN(),
	}
}

// Start resets the estimate and subscribes to attitude, velocity and gimbal
// telemetry. Starting a started monitor is a no-op.
func (m *SpatialPositionMonitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.x, m.y, m.z = 0, 0, 0
	m.benchmark = math.NaN()
	m.current = math.NaN()
	m.lastUpdate = time.Time{}
	m.lastVelocity = types.Velocity{}
	m.mu.Unlock()

	regs := map[telemetry.Key]telemetry.ObserverID{
		telemetry.KeyAircraftAttitude: m.source.Register(telemetry.KeyAircraftAttitude, m.onAttitude),
		telemetry.KeyAircraftVelocity: m.source.Register(telemetry.KeyAircraftVelocity, m.onVelocity),
		telemetry.KeyGimbalAttitude:   m.source.Register(telemetry.KeyGimbalAttitude, m.onGimbalAttitude),
	}

	m.mu.Lock()
	m.registrations = regs
	m.mu.Unlock()
	m.log.Info("position monitor started")
}

// Stop unsubscribes from telemetry. The last estimate stays readable.
func (m *SpatialPositionMonitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	regs := m.registrations
	m.registrations = nil
	m.mu.Unlock()

	for key, id := range regs {
		m.source.Unregister(key, id)
	}
	m.log.Info("position monitor stopped")
}

func (m *SpatialPositionMonitor) onAttitude(_ telemetry.Key, value any) {
	att, ok := value.(types.Attitude)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	yaw := att.Yaw + m.cfg.CompassOffset
	if math.IsNaN(m.benchmark) {
		m.benchmark = yaw
		m.lastUpdate = m.cfg.Now()
		m.log.WithField("benchmark", yaw).Info("benchmark orientation latched")
	}
	m.current = yaw
}

func (m *SpatialPositionMonitor) onVelocity(_ telemetry.Key, value any) {
	v, ok := value.(types.Velocity)
	if !ok {
		return
	}
	m.mu.Lock()
	if !m.started || m.lastUpdate.IsZero() {
		m.mu.Unlock()
		return
	}
	now := m.cfg.Now()
	dt := now.Sub(m.lastUpdate).Seconds()
	north := (v.North + m.lastVelocity.North) / 2
	east := (v.East + m.lastVelocity.East) / 2
	down := (v.Down + m.lastVelocity.Down) / 2

	dx, dy := frame.ConvertNEDToSCS(north, east, m.benchmark)
	m.x += dx * dt
	m.y += dy * dt
	m.z += down * dt
	m.lastUpdate = now
	m.lastVelocity = v
	line := fmt.Sprintf("x %.2f, y %.2f, z %.2f", m.x, m.y, m.z)
	m.mu.Unlock()

	if m.status != nil {
		m.status.SetStatusLine(telemetry.KeyMonitorPosition, line)
	}
}

func (m *SpatialPositionMonitor) onGimbalAttitude(_ telemetry.Key, value any) {
	att, ok := value.(types.Attitude)
	if !ok {
		return
	}
	m.mu.Lock()
	m.gimbal = att
	m.mu.Unlock()
}

// X returns the estimated displacement to the right of the benchmark heading, in metres.
func (m *SpatialPositionMonitor) X() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.x
}

// Y returns the estimated displacement along the benchmark heading, in metres.
func (m *SpatialPositionMonitor) Y() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.y
}

// Z returns the estimated downward displacement, in metres.
func (m *SpatialPositionMonitor) Z() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.z
}

// Position returns x, y and z together.
func (m *SpatialPositionMonitor) Position() types.Vector3D {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.Vector3D{X: m.x, Y: m.y, Z: m.z}
}

// OrientationBenchmark returns the latched heading, or NaN before the first
// attitude reading.
func (m *SpatialPositionMonitor) OrientationBenchmark() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.benchmark
}

// CurrentOrientation returns the latest heading including the compass offset.
func (m *SpatialPositionMonitor) CurrentOrientation() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OrientationInSCS returns the heading relative to the benchmark in [0, 360).
// It is NaN until the benchmark is latched.
func (m *SpatialPositionMonitor) OrientationInSCS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if math.IsNaN(m.benchmark) {
		return math.NaN()
	}
	return frame.NormalizeToSCS(m.current - m.benchmark)
}

// GimbalAttitude returns the last gimbal attitude reading.
func (m *SpatialPositionMonitor) GimbalAttitude() types.Attitude {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gimbal
}

// ConvertCoordinateToNED rotates an SCS vector into north/east/down.
func (m *SpatialPositionMonitor) ConvertCoordinateToNED(v types.Vector3D) types.Vector3D {
	return frame.ConvertCoordinateToNED(v, m.benchmarkOrZero())
}

// ConvertCoordinateToBody rotates an SCS vector into the live body frame.
func (m *SpatialPositionMonitor) ConvertCoordinateToBody(v types.Vector3D) types.Vector3D {
	m.mu.RLock()
	current, benchmark := m.current, m.benchmark
	m.mu.RUnlock()
	if math.IsNaN(benchmark) {
		return frame.ConvertCoordinateToBody(v, 0, 0)
	}
	return frame.ConvertCoordinateToBody(v, current, benchmark)
}

// ConvertOrientationToNED converts an SCS heading to a vendor yaw.
func (m *SpatialPositionMonitor) ConvertOrientationToNED(orientationInSCS float64) float64 {
	return frame.ConvertOrientationToNED(orientationInSCS, m.benchmarkOrZero())
}

func (m *SpatialPositionMonitor) benchmarkOrZero() float64 {
	b := m.OrientationBenchmark()
	if math.IsNaN(b) {
		return 0
	}
	return b
}
