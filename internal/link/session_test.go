package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

func TestDefaultSessionConfig(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, DefaultSessionConfig().PollInterval)
}

func TestSessionRequestsTelemetry(t *testing.T) {
	_, bridge, _ := newLinked(t, testConfig(), nil)

	require.Eventually(t, func() bool {
		return len(bridge.framesOfType(MsgRequestTelemetry)) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSessionSubscribe(t *testing.T) {
	c, bridge, pub := newLinked(t, testConfig(), nil)
	s := NewSession(c, pub, DefaultSessionConfig())
	require.NoError(t, s.Subscribe())

	require.Eventually(t, func() bool {
		return len(bridge.framesOfType(MsgSubscribe)) == len(telemetry.Keys)
	}, time.Second, 5*time.Millisecond)
	first := bridge.framesOfType(MsgSubscribe)[0]
	assert.Equal(t, string(telemetry.Keys[0])+"\x00", string(first.payload))
}

func TestSessionPublishesTelemetry(t *testing.T) {
	_, bridge, pub := newLinked(t, testConfig(), nil)

	require.NoError(t, bridge.sendTelemetry(telemetry.KeyAircraftAttitude, f64s(1, 2, 90)))
	require.NoError(t, bridge.sendTelemetry("Compass", u32s(1)))
	require.NoError(t, bridge.sendTelemetry(telemetry.KeyIsFlying, u32s(1)))

	require.Eventually(t, func() bool {
		_, ok := pub.get(telemetry.KeyIsFlying)
		return ok
	}, time.Second, 5*time.Millisecond)

	v, ok := pub.get(telemetry.KeyAircraftAttitude)
	require.True(t, ok)
	assert.Equal(t, types.Attitude{Pitch: 1, Roll: 2, Yaw: 90}, v)
	_, ok = pub.get("Compass")
	assert.False(t, ok)
}

func TestSessionFeedsStatusMonitor(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	bridge := &fakeBridge{conn: serverConn}
	go bridge.run()

	c := NewClient(testConfig())
	require.NoError(t, c.connectWithConn(context.Background(), clientConn))

	status := telemetry.NewStatusMonitor(time.Minute)
	s := NewSession(c, status, SessionConfig{PollInterval: time.Hour})
	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	require.NoError(t, bridge.sendTelemetry(telemetry.KeyUltrasonicHeight, u32s(15)))
	require.Eventually(t, func() bool {
		return status.Snapshot()[telemetry.KeyUltrasonicHeight] == "1.5m"
	}, time.Second, 5*time.Millisecond)

	// Losing the bridge ends the session and marks the link down.
	require.NoError(t, serverConn.Close())
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
	v, err := status.Latest(telemetry.KeyConnection)
	require.NoError(t, err)
	assert.Equal(t, false, v)
	_ = c.Close()
}

func TestSessionStopsOnCancel(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	bridge := &fakeBridge{conn: serverConn}
	go bridge.run()

	c := NewClient(testConfig())
	require.NoError(t, c.connectWithConn(context.Background(), clientConn))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewSession(c, newRecordingPublisher(), SessionConfig{}).Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
}
