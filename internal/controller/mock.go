package controller

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// MockDroneController flips readiness and logs what it receives. It is used
// to exercise the remote side without an aircraft.
type MockDroneController struct {
	log *logrus.Entry

	mu       sync.Mutex
	ready    bool
	mode     strategy.Mode
	samples  int
	feedback Feedback
}

// NewMock creates a mock controller.
func NewMock() *MockDroneController {
	return &MockDroneController{
		log:      logrus.WithField("component", "mock-controller"),
		feedback: func(string, string) {},
	}
}

// OnFeedback replaces the control feedback callback.
func (m *MockDroneController) OnFeedback(f Feedback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = f
}

func (m *MockDroneController) PrepareDrone(mode strategy.Mode) {
	m.mu.Lock()
	m.mode = mode
	was := m.ready
	m.ready = true
	fb := m.feedback
	m.mu.Unlock()
	m.log.WithField("mode", mode).Info("prepare drone")
	if !was {
		fb("Control", "Start")
	}
}

func (m *MockDroneController) Abort() {
	m.mu.Lock()
	was := m.ready
	m.ready = false
	fb := m.feedback
	m.mu.Unlock()
	m.log.Info("abort")
	if was {
		fb("Control", "Stop")
	}
}

func (m *MockDroneController) Destroy() { m.Abort() }
func (m *MockDroneController) Land()    { m.Abort() }

func (m *MockDroneController) ChangeDroneVelocity(forward, right, rotate float64, period time.Duration) error {
	if !m.IsDroneReady() {
		return ErrNotReady
	}
	m.log.WithFields(logrus.Fields{"forward": forward, "right": right, "rotate": rotate, "period": period}).Info("change velocity")
	return nil
}

func (m *MockDroneController) ChangeDroneVelocityBaseOnGround(north, east, rotate float64, period time.Duration) error {
	if !m.IsDroneReady() {
		return ErrNotReady
	}
	m.log.WithFields(logrus.Fields{"north": north, "east": east, "rotate": rotate, "period": period}).Info("change ground velocity")
	return nil
}

func (m *MockDroneController) RiseAndSetGimbal(pitch float64) {
	m.log.WithField("pitch", pitch).Info("set gimbal")
}

func (m *MockDroneController) OnControllerStatusData(d types.ControlStatusData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	m.samples++
	m.log.WithField("ts", d.SampleTimestamp).Debug("sample received")
}

// SampleCount returns how many samples arrived while ready.
func (m *MockDroneController) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples
}

func (m *MockDroneController) IsDroneReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *MockDroneController) InitialLocation() (types.Location3D, bool) {
	return types.Location3D{}, false
}

func (m *MockDroneController) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{State: StateNotReady, Mode: m.mode}
	if m.ready {
		s.State = StateReady
	}
	return s
}

var (
	_ Controller = (*MockDroneController)(nil)
	_ Controller = (*VirtualDroneController)(nil)
)
