package monitor

import (
	"math"
	"time"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Fence is an axis-aligned rectangle in the monitor's X/Y plane, in metres.
// Top is the +Y edge and Right the +X edge.
type Fence struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Contains reports whether (x, y) lies inside the fence, edges included.
func (f Fence) Contains(x, y float64) bool {
	return x >= f.Left && x <= f.Right && y >= f.Bottom && y <= f.Top
}

// GeofencedMonitor limits outbound velocity so that one command interval
// cannot carry the estimate across the fence.
type GeofencedMonitor struct {
	*SpatialPositionMonitor
	fence    Fence
	interval time.Duration
}

// NewGeofenced creates a geofenced monitor. interval is the command period.
func NewGeofenced(source telemetry.RawDataObservable, status StatusSink, cfg Config, fence Fence, interval time.Duration) *GeofencedMonitor {
	return &GeofencedMonitor{
		SpatialPositionMonitor: New(source, status, cfg),
		fence:                  fence,
		interval:               interval,
	}
}

// Fence returns the configured boundary.
func (g *GeofencedMonitor) Fence() Fence {
	return g.fence
}

// ConvertCoordinateToNED clamps the horizontal SCS components, then rotates.
func (g *GeofencedMonitor) ConvertCoordinateToNED(v types.Vector3D) types.Vector3D {
	return g.SpatialPositionMonitor.ConvertCoordinateToNED(g.clamp(v))
}

func (g *GeofencedMonitor) clamp(v types.Vector3D) types.Vector3D {
	dt := g.interval.Seconds()
	if dt <= 0 {
		return v
	}
	pos := g.Position()
	switch {
	case v.X > 0:
		v.X = math.Min(v.X, (g.fence.Right-pos.X)/dt)
	case v.X < 0:
		v.X = math.Max(v.X, (g.fence.Left-pos.X)/dt)
	}
	switch {
	case v.Y > 0:
		v.Y = math.Min(v.Y, (g.fence.Top-pos.Y)/dt)
	case v.Y < 0:
		v.Y = math.Max(v.Y, (g.fence.Bottom-pos.Y)/dt)
	}
	return v
}
