package link

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Config holds flight-control link configuration.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	AppName string

	// SerialPort switches the transport from TCP to a serial radio.
	SerialPort string
	BaudRate   uint

	RequestTimeout time.Duration
}

// ConnectionState represents the client's connection lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Result is the bridge's answer to an Action or Query.
type Result struct {
	Status  uint32
	Value   uint32
	Message string
}

// Client manages one connection to the flight-control bridge.
type Client struct {
	config Config
	log    *logrus.Entry

	// mu serializes writes. conn is replaced only while holding both mu
	// and connMu; the reader takes connMu alone.
	mu     sync.Mutex
	connMu sync.RWMutex
	conn   io.ReadWriteCloser
	state  atomic.Int32
	nextID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan Result
}

// NewClient creates a new link client.
func NewClient(cfg Config) *Client {
	c := &Client{
		config:  cfg,
		log:     logrus.WithField("component", "link"),
		pending: make(map[uint32]chan Result),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Connect opens the transport and sends the OPEN message.
func (c *Client) Connect(ctx context.Context) error {
	if c.config.SerialPort != "" {
		port, err := serial.Open(serial.OpenOptions{
			PortName:        c.config.SerialPort,
			BaudRate:        c.config.BaudRate,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
			ParityMode:      serial.PARITY_NONE,
		})
		if err != nil {
			return errors.Wrapf(err, "link open serial %s", c.config.SerialPort)
		}
		return c.connectWithConn(ctx, port)
	}

	addr := net.JoinHostPort(c.config.Host, fmt.Sprint(c.config.Port))
	dialer := net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "link dial")
	}
	return c.connectWithConn(ctx, conn)
}

// connectWithConn performs the handshake on an already open transport.
func (c *Client) connectWithConn(ctx context.Context, conn io.ReadWriteCloser) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "link connect")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Store(int32(StateConnecting))
	c.setConn(conn)

	appName := append([]byte(c.config.AppName), 0)
	if _, err := c.sendMessageLocked(MsgOpen, appName); err != nil {
		c.state.Store(int32(StateDisconnected))
		return errors.Wrap(err, "link open")
	}

	c.state.Store(int32(StateConnected))
	return nil
}

// Close sends a CLOSE message, shuts the transport down and fails every
// outstanding request.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	_, _ = c.sendMessageLocked(MsgClose, nil)

	err := c.conn.Close()
	c.setConn(nil)
	c.state.Store(int32(StateDisconnected))
	c.failPending()
	return err
}

func (c *Client) setConn(conn io.ReadWriteCloser) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) sendMessage(msgType uint32, payload []byte) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendMessageLocked(msgType, payload)
}

// sendMessageLocked writes one frame and returns its id; caller must hold c.mu.
func (c *Client) sendMessageLocked(msgType uint32, payload []byte) (uint32, error) {
	if c.conn == nil {
		return 0, ErrNotConnected
	}

	id := c.nextID.Add(1)
	frame := append(EncodeHeader(msgType, id, len(payload)), payload...)
	if _, err := c.conn.Write(frame); err != nil {
		return 0, errors.Wrap(err, "write frame")
	}
	return id, nil
}

// ReadNext reads the next complete frame from the bridge.
func (c *Client) ReadNext() (Header, []byte, error) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return Header{}, nil, ErrNotConnected
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(conn, headerBuf); err != nil {
		return Header{}, nil, errors.Wrap(err, "read header")
	}

	h, err := DecodeHeader(headerBuf)
	if err != nil {
		return Header{}, nil, err
	}

	payloadSize := h.Size - HeaderSize
	if payloadSize == 0 {
		return h, nil, nil
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return Header{}, nil, errors.Wrap(err, "read payload")
	}
	return h, payload, nil
}

// Call sends a request and blocks until the matching Result arrives, ctx is
// done or the request timeout elapses. A non-OK status is returned as a
// *types.VendorError.
func (c *Client) Call(ctx context.Context, op string, msgType uint32, payload []byte) (Result, error) {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	ch := make(chan Result, 1)

	// The id is reserved under the write lock so the result cannot arrive
	// before the waiter is registered.
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return Result{}, ErrNotConnected
	}
	id := c.nextID.Load() + 1
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	sent, err := c.sendMessageLocked(msgType, payload)
	c.mu.Unlock()

	if err != nil || sent != id {
		c.forget(id)
		if err == nil {
			err = errors.Errorf("request id mismatch: reserved %d, sent %d", id, sent)
		}
		return Result{}, errors.Wrap(err, op)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return Result{}, errors.Wrap(ErrConnectionClosed, op)
		}
		if res.Status != StatusOK {
			return res, &types.VendorError{Op: op, Code: int(res.Status), Message: res.Message}
		}
		return res, nil
	case <-ctx.Done():
		c.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, errors.Wrap(ErrRequestTimeout, op)
		}
		return Result{}, errors.Wrap(ctx.Err(), op)
	}
}

// resolve hands a Result frame to its waiter. Results nobody waits for are
// dropped.
func (c *Client) resolve(id uint32, payload []byte) {
	res, err := ParseResult(payload)
	if err != nil {
		c.log.WithError(err).WithField("id", id).Warn("malformed result")
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.pendingMu.Unlock()

	if !ok {
		c.log.WithField("id", id).Debug("result for unknown request")
		return
	}
	ch <- res
}

func (c *Client) forget(id uint32) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// ParseResult decodes a Result payload: status u32, value u32, message\0.
func ParseResult(data []byte) (Result, error) {
	if len(data) < 8 {
		return Result{}, fmt.Errorf("result too short: got %d bytes, need 8", len(data))
	}
	return Result{
		Status:  binary.LittleEndian.Uint32(data[0:4]),
		Value:   binary.LittleEndian.Uint32(data[4:8]),
		Message: cString(data[8:]),
	}, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
