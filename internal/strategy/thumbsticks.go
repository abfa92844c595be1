package strategy

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Thumbsticks maps controller thumbsticks straight onto the virtual sticks.
type Thumbsticks struct {
	cfg Config
	cmd Commander
	log *logrus.Entry

	mu            sync.Mutex
	seen          bool
	lastTimestamp int64
}

// NewThumbsticks creates a thumbstick strategy.
func NewThumbsticks(cfg Config, cmd Commander) *Thumbsticks {
	return &Thumbsticks{cfg: cfg, cmd: cmd, log: logrus.WithField("component", "thumbsticks")}
}

func (t *Thumbsticks) Mode() Mode                    { return ModeThumbsticks }
func (t *Thumbsticks) VirtualStickNeeded() bool      { return true }
func (t *Thumbsticks) AdvancedParamNeeded() bool     { return t.cfg.AdvancedThumbsticks }
func (t *Thumbsticks) UpdateMonitor(PositionMonitor) {}

// OnControllerStatusData drops out-of-order samples and writes stick positions.
func (t *Thumbsticks) OnControllerStatusData(d types.ControlStatusData) {
	t.mu.Lock()
	if t.seen && d.SampleTimestamp <= t.lastTimestamp {
		t.mu.Unlock()
		t.log.WithField("ts", d.SampleTimestamp).Debug("dropping out-of-order sample")
		return
	}
	t.seen = true
	t.lastTimestamp = d.SampleTimestamp
	t.mu.Unlock()

	c, s := t.cfg.Curve, t.cfg.Scale
	left := types.StickPosition{
		Horizontal: c.StickPosition(d.LeftThumbStickValue.X, s.LeftHorizontal),
		Vertical:   c.StickPosition(d.LeftThumbStickValue.Y, s.LeftVertical),
	}
	right := types.StickPosition{
		Horizontal: c.StickPosition(d.RightThumbStickValue.X, s.RightHorizontal),
		Vertical:   c.StickPosition(d.RightThumbStickValue.Y, s.RightVertical),
	}
	t.cmd.SetSticks(left, right)
}
