package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

func TestThumbsticksWritesScaledSticks(t *testing.T) {
	cmd := &fakeCommander{}
	cfg := DefaultConfig()
	cfg.Scale = types.ScaleFactor{LeftHorizontal: 1, LeftVertical: 2, RightHorizontal: 1, RightVertical: 1}
	s := New(ModeThumbsticks, cfg, cmd)

	s.OnControllerStatusData(types.ControlStatusData{
		LeftThumbStickValue:  types.Vector2D{X: 1, Y: 1},
		RightThumbStickValue: types.Vector2D{X: -1, Y: 0},
		SampleTimestamp:      10,
	})

	require.Len(t, cmd.sticks, 1)
	left, right := cmd.sticks[0][0], cmd.sticks[0][1]
	assert.Equal(t, types.MaxStickPosition, left.Horizontal)
	assert.Equal(t, types.MaxStickPosition/2, left.Vertical)
	assert.Equal(t, -types.MaxStickPosition, right.Horizontal)
	assert.Equal(t, 0, right.Vertical)
}

func TestThumbsticksDropsOutOfOrderSamples(t *testing.T) {
	cmd := &fakeCommander{}
	s := NewThumbsticks(DefaultConfig(), cmd)

	for _, ts := range []int64{5, 5, 4, 6, 1, 7} {
		s.OnControllerStatusData(types.ControlStatusData{SampleTimestamp: ts})
	}
	assert.Len(t, cmd.sticks, 3)
}

func TestThumbsticksFlags(t *testing.T) {
	s := NewThumbsticks(DefaultConfig(), &fakeCommander{})
	assert.True(t, s.VirtualStickNeeded())
	assert.False(t, s.AdvancedParamNeeded())
	assert.Equal(t, ModeThumbsticks, s.Mode())

	cfg := DefaultConfig()
	cfg.AdvancedThumbsticks = true
	assert.True(t, NewThumbsticks(cfg, &fakeCommander{}).AdvancedParamNeeded())
}
