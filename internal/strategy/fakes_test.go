package strategy

import (
	"sync"
	"time"

	"github.com/eytandecker/headset-pilot/internal/frame"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// fakeCommander records everything strategies send.
type fakeCommander struct {
	mu       sync.Mutex
	commands []types.FlightControlParam
	sticks   [][2]types.StickPosition
	gimbal   []types.GimbalRotation
}

func (f *fakeCommander) SendCommand(p types.FlightControlParam) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, p)
}

func (f *fakeCommander) SetSticks(left, right types.StickPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sticks = append(f.sticks, [2]types.StickPosition{left, right})
}

func (f *fakeCommander) RotateGimbal(r types.GimbalRotation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gimbal = append(f.gimbal, r)
}

func (f *fakeCommander) CommandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func (f *fakeCommander) LastCommand() (types.FlightControlParam, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return types.FlightControlParam{}, false
	}
	return f.commands[len(f.commands)-1], true
}

// fakeMonitor is a monitor with a fixed benchmark and heading.
type fakeMonitor struct {
	benchmark float64
	current   float64
}

func (m *fakeMonitor) OrientationInSCS() float64 {
	return frame.NormalizeToSCS(m.current - m.benchmark)
}

func (m *fakeMonitor) ConvertCoordinateToNED(v types.Vector3D) types.Vector3D {
	return frame.ConvertCoordinateToNED(v, m.benchmark)
}

func (m *fakeMonitor) ConvertCoordinateToBody(v types.Vector3D) types.Vector3D {
	return frame.ConvertCoordinateToBody(v, m.current, m.benchmark)
}

func (m *fakeMonitor) ConvertOrientationToNED(o float64) float64 {
	return frame.ConvertOrientationToNED(o, m.benchmark)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
