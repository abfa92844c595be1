package link

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
)

type frame struct {
	header  Header
	payload []byte
}

// reply is what the fake bridge answers to an Action or Query. ok=false
// leaves the request unanswered.
type reply struct {
	status  uint32
	value   uint32
	message string
	ok      bool
}

// fakeBridge plays the server side of a net.Pipe.
type fakeBridge struct {
	conn    net.Conn
	respond func(h Header, payload []byte) reply

	writeMu sync.Mutex
	mu      sync.Mutex
	frames  []frame
}

func readFrame(conn net.Conn) (Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(conn, headerBuf); err != nil {
		return Header{}, nil, err
	}
	h, err := DecodeHeader(headerBuf)
	if err != nil {
		return Header{}, nil, err
	}
	payload := make([]byte, h.Size-HeaderSize)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return Header{}, nil, err
	}
	return h, payload, nil
}

func (b *fakeBridge) run() {
	for {
		h, payload, err := readFrame(b.conn)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.frames = append(b.frames, frame{header: h, payload: payload})
		b.mu.Unlock()

		if (h.Type == MsgAction || h.Type == MsgQuery) && b.respond != nil {
			if r := b.respond(h, payload); r.ok {
				// Answer off the read goroutine so the client's writes never
				// wait on our reply.
				go b.sendResult(h.ID, r)
			}
		}
	}
}

func (b *fakeBridge) write(msgType, id uint32, payload []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := b.conn.Write(append(EncodeHeader(msgType, id, len(payload)), payload...))
	return err
}

func (b *fakeBridge) sendResult(id uint32, r reply) {
	payload := binary.LittleEndian.AppendUint32(nil, r.status)
	payload = binary.LittleEndian.AppendUint32(payload, r.value)
	payload = append(payload, r.message...)
	payload = append(payload, 0)
	_ = b.write(MsgResult, id, payload)
}

func (b *fakeBridge) sendTelemetry(key telemetry.Key, value []byte) error {
	return b.write(MsgTelemetry, 0, EncodeTelemetry(key, value))
}

func (b *fakeBridge) framesOfType(msgType uint32) []frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []frame
	for _, f := range b.frames {
		if f.header.Type == msgType {
			out = append(out, f)
		}
	}
	return out
}

// recordingPublisher captures published telemetry.
type recordingPublisher struct {
	mu     sync.Mutex
	values map[telemetry.Key]any
	count  int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{values: make(map[telemetry.Key]any)}
}

func (p *recordingPublisher) Publish(key telemetry.Key, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	p.count++
}

func (p *recordingPublisher) get(key telemetry.Key) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func testConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           4560,
		Timeout:        time.Second,
		AppName:        "test-app",
		RequestTimeout: time.Second,
	}
}

// newLinked connects a client to a fake bridge and starts a session. The
// session and pipe are torn down with the test.
func newLinked(t *testing.T, cfg Config, respond func(Header, []byte) reply) (*Client, *fakeBridge, *recordingPublisher) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	bridge := &fakeBridge{conn: serverConn, respond: respond}
	go bridge.run()

	c := NewClient(cfg)
	require.NoError(t, c.connectWithConn(context.Background(), clientConn))

	pub := newRecordingPublisher()
	s := NewSession(c, pub, SessionConfig{PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		_ = serverConn.Close()
		<-done
	})
	return c, bridge, pub
}

func okReply(h Header, payload []byte) reply {
	return reply{ok: true}
}
