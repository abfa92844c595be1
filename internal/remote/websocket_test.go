package remote

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

func dialTestServer(t *testing.T, s *WebsocketServer) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebsocketForwardsControlStatus(t *testing.T) {
	sink := &recordingSink{}
	s := NewWebsocketServer(NewHandler(sink, nil, HandlerConfig{}), WebsocketConfig{})
	conn := dialTestServer(t, s)

	sample := types.ControlStatusData{CurrentRotation: types.Vector3D{Y: 30}, SampleTimestamp: 5}
	require.NoError(t, conn.WriteJSON(controlStatusMessage(t, sample)))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, sample, sink.last())
	assert.Equal(t, 1, s.PeerCount())
}

func TestWebsocketAnswersPing(t *testing.T) {
	s := NewWebsocketServer(NewHandler(&recordingSink{}, nil, HandlerConfig{From: "drone"}), WebsocketConfig{})
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteJSON(RootMessage{Type: TypePing, Data: "42"}))

	var reply RootMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypePong, reply.Type)
	assert.Equal(t, "42", reply.Data)
	assert.Equal(t, "drone", reply.From)
}

func TestWebsocketSurvivesMalformedFrames(t *testing.T) {
	sink := &recordingSink{}
	s := NewWebsocketServer(NewHandler(sink, nil, HandlerConfig{}), WebsocketConfig{})
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteJSON(controlStatusMessage(t, types.ControlStatusData{SampleTimestamp: 9})))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketSendsPeriodicPings(t *testing.T) {
	s := NewWebsocketServer(NewHandler(&recordingSink{}, nil, HandlerConfig{}), WebsocketConfig{PingInterval: 20 * time.Millisecond})
	conn := dialTestServer(t, s)

	var msg RootMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypePing, msg.Type)
	assert.NotEmpty(t, msg.Data)
}

func TestWebsocketBroadcastAndDisconnect(t *testing.T) {
	s := NewWebsocketServer(NewHandler(&recordingSink{}, nil, HandlerConfig{}), WebsocketConfig{})
	conn := dialTestServer(t, s)
	require.Eventually(t, func() bool { return s.PeerCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Broadcast(RootMessage{Type: TypeLog, Data: "control started"})
	var msg RootMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "control started", msg.Data)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return s.PeerCount() == 0 }, time.Second, 5*time.Millisecond)
}
