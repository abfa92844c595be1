package controller

import (
	"context"
	"sync"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// fakeAircraft records vendor calls. All methods are safe for concurrent use.
type fakeAircraft struct {
	mu sync.Mutex

	flying    bool
	enableErr error

	params       []types.FlightControlParam
	sticks       int
	enables      int
	disables     int
	advanced     int
	advancedOn   bool
	takeoffs     int
	landings     int
	home         []types.Location3D
	gimbal       []types.GimbalRotation
	heightLimit  float64
	avoidance    []types.ObstacleAvoidanceType
	warningDists map[types.ObstacleDirection]float64
}

func newFakeAircraft() *fakeAircraft {
	return &fakeAircraft{warningDists: map[types.ObstacleDirection]float64{}}
}

func (f *fakeAircraft) SendVirtualStickParam(p types.FlightControlParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, p)
	return nil
}

func (f *fakeAircraft) SetStickPositions(_, _ types.StickPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sticks++
	return nil
}

func (f *fakeAircraft) EnableVirtualStick(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enables++
	return f.enableErr
}

func (f *fakeAircraft) DisableVirtualStick(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disables++
	return nil
}

func (f *fakeAircraft) SetVirtualStickAdvancedMode(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.advanced++
	}
	f.advancedOn = enabled
	return nil
}

func (f *fakeAircraft) IsFlying(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flying, nil
}

func (f *fakeAircraft) Takeoff(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takeoffs++
	return nil
}

func (f *fakeAircraft) StartAutoLanding(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.landings++
	return nil
}

func (f *fakeAircraft) SetHomeLocation(_ context.Context, loc types.Location3D) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.home = append(f.home, loc)
	return nil
}

func (f *fakeAircraft) RotateGimbal(_ context.Context, r types.GimbalRotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gimbal = append(f.gimbal, r)
	return nil
}

func (f *fakeAircraft) SetHeightLimit(_ context.Context, meters float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heightLimit = meters
	return nil
}

func (f *fakeAircraft) SetObstacleAvoidance(_ context.Context, t types.ObstacleAvoidanceType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.avoidance = append(f.avoidance, t)
	return nil
}

func (f *fakeAircraft) SetObstacleWarningDistance(_ context.Context, dir types.ObstacleDirection, meters float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warningDists[dir] = meters
	return nil
}

func (f *fakeAircraft) counts() (takeoffs, enables, disables int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.takeoffs, f.enables, f.disables
}

func (f *fakeAircraft) paramCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}

func (f *fakeAircraft) lastParam() types.FlightControlParam {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return types.FlightControlParam{}
	}
	return f.params[len(f.params)-1]
}

func (f *fakeAircraft) stickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sticks
}

func (f *fakeAircraft) advancedMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advancedOn
}
