package telemetry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// earthRadiusMeters is the mean Earth radius used for distance lines.
const earthRadiusMeters = 6371010.0

// Value types by key:
//
//	KeyConnection, KeyFlightControllerConnection,
//	KeyIsFlying, KeyWindWarning            bool
//	KeyAircraftAttitude, KeyGimbalAttitude types.Attitude
//	KeyAircraftVelocity                    types.Velocity
//	KeyAircraftLocation3D                  types.Location3D
//	KeyUltrasonicHeight                    int (decimetres)
//	KeyBatteryTemperature                  float64 (Celsius)
//	KeySignalQuality                       int (0-200)
//	KeyVirtualStickState                   types.VirtualStickState

// LineListener receives every status line change.
type LineListener func(key Key, line string)

type sample struct {
	value any
	at    time.Time
}

// StatusMonitor caches the latest telemetry values, renders them as
// human-readable status lines and relays them to observers.
type StatusMonitor struct {
	*Hub

	mu              sync.RWMutex
	latest          map[Key]sample
	lines           map[Key]string
	initialLocation *types.Location3D
	staleThreshold  time.Duration
	listener        LineListener
	log             *logrus.Entry
}

// NewStatusMonitor creates a StatusMonitor. A zero threshold disables
// staleness checking.
func NewStatusMonitor(staleThreshold time.Duration) *StatusMonitor {
	return &StatusMonitor{
		Hub:            NewHub(),
		latest:         make(map[Key]sample),
		lines:          make(map[Key]string),
		staleThreshold: staleThreshold,
		log:            logrus.WithField("component", "status"),
	}
}

// OnStatusLine installs the listener for status line changes.
func (m *StatusMonitor) OnStatusLine(l LineListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// SetInitialLocation sets the reference used by the location line.
func (m *StatusMonitor) SetInitialLocation(loc types.Location3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialLocation = &loc
}

// Publish records a telemetry value, refreshes its status line and notifies
// observers of key.
func (m *StatusMonitor) Publish(key Key, value any) {
	m.mu.Lock()
	m.latest[key] = sample{value: value, at: time.Now()}
	line, ok := m.formatLocked(key, value)
	if ok {
		m.lines[key] = line
	}
	listener := m.listener
	m.mu.Unlock()

	if ok && listener != nil {
		listener(key, line)
	}
	m.Notify(key, value)
}

// SetStatusLine sets a line that is not backed by a raw telemetry value.
func (m *StatusMonitor) SetStatusLine(key Key, line string) {
	m.mu.Lock()
	m.lines[key] = line
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(key, line)
	}
}

// Latest returns the last value published for key, or ErrNoValue / ErrStale.
func (m *StatusMonitor) Latest(key Key) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.latest[key]
	if !ok {
		return nil, ErrNoValue
	}
	if m.staleThreshold > 0 && time.Since(s.at) > m.staleThreshold {
		return nil, ErrStale
	}
	return s.value, nil
}

// Snapshot returns a copy of all status lines.
func (m *StatusMonitor) Snapshot() map[Key]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Key]string, len(m.lines))
	for k, v := range m.lines {
		out[k] = v
	}
	return out
}

// Lines returns the status lines as "key: line", sorted by key.
func (m *StatusMonitor) Lines() []string {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+snap[Key(k)])
	}
	return out
}

func (m *StatusMonitor) formatLocked(key Key, value any) (string, bool) {
	switch v := value.(type) {
	case bool:
		switch key {
		case KeyConnection, KeyFlightControllerConnection:
			return connectedString(v), true
		case KeyWindWarning:
			if v {
				return "Wind warning", true
			}
			return "Calm", true
		default:
			return yesNo(v), true
		}
	case types.Attitude:
		return fmt.Sprintf("%.1f/%.1f/%.1f", v.Yaw, v.Roll, v.Pitch), true
	case types.Velocity:
		return fmt.Sprintf("N %.2f, E %.2f, D %.2f", v.North, v.East, v.Down), true
	case types.Location3D:
		if m.initialLocation == nil {
			return fmt.Sprintf("%.7f, %.7f, %.1fm", v.Latitude, v.Longitude, v.Altitude), true
		}
		return fmt.Sprintf("%.7f, %.7f, %.1fm (%.1fm from home)",
			v.Latitude, v.Longitude, v.Altitude, Distance(*m.initialLocation, v)), true
	case types.VirtualStickState:
		return fmt.Sprintf("Enabled: %s, Advanced: %s", yesNo(v.Enabled), yesNo(v.Advanced)), true
	case float64:
		if key == KeyBatteryTemperature {
			return fmt.Sprintf("%.1f°C", v), true
		}
		return fmt.Sprintf("%.2f", v), true
	case int:
		switch key {
		case KeyUltrasonicHeight:
			return fmt.Sprintf("%.1fm", float64(v)/10), true
		case KeySignalQuality:
			return SignalQuality(v), true
		}
		return fmt.Sprintf("%d", v), true
	}
	m.log.WithField("key", key).Debugf("no status line for value of type %T", value)
	return "", false
}

// Distance returns the great-circle distance between two fixes in metres.
func Distance(a, b types.Location3D) float64 {
	pa := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	pb := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return pa.Distance(pb).Radians() * earthRadiusMeters
}

// SignalQuality classifies a 0-200 link quality reading.
func SignalQuality(q int) string {
	switch {
	case q >= 60:
		return fmt.Sprintf("Good (%d)", q)
	case q >= 40:
		return fmt.Sprintf("Normal (%d)", q)
	default:
		return fmt.Sprintf("Bad (%d)", q)
	}
}

func connectedString(b bool) string {
	if b {
		return "Connected"
	}
	return "Disconnected"
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
