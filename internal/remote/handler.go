package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Sink receives decoded control samples and control requests. Implemented
// by the drone controllers.
type Sink interface {
	OnControllerStatusData(d types.ControlStatusData)
	PrepareDrone(mode strategy.Mode)
	Abort()
	Land()
}

// StatusSink receives the measured data-channel latency line.
type StatusSink interface {
	SetStatusLine(key telemetry.Key, line string)
}

// Reply sends a message back on the transport the request arrived on.
type Reply func(m RootMessage) error

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// From identifies this process in outgoing messages. Generated when empty.
	From    string
	Channel string
	// Mode is used when the remote side requests control.
	Mode strategy.Mode
	Now  func() time.Time
}

// Handler dispatches data-channel messages. It is shared by every transport.
type Handler struct {
	sink   Sink
	status StatusSink
	from   string
	chann  string
	mode   strategy.Mode
	now    func() time.Time
	log    *logrus.Entry

	mu          sync.Mutex
	lastPingAt  int64
	latency     time.Duration
	haveLatency bool
}

// NewHandler builds a Handler forwarding samples to sink. status may be nil.
func NewHandler(sink Sink, status StatusSink, cfg HandlerConfig) *Handler {
	if cfg.From == "" {
		cfg.From = "headset-pilot-" + uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		sink:   sink,
		status: status,
		from:   cfg.From,
		chann:  cfg.Channel,
		mode:   cfg.Mode,
		now:    cfg.Now,
		log:    logrus.WithField("component", "remote"),
	}
}

// From returns the identity stamped on outgoing messages.
func (h *Handler) From() string { return h.from }

// Latency returns the last measured one-way latency.
func (h *Handler) Latency() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latency, h.haveLatency
}

func (h *Handler) message(msgType, data string) RootMessage {
	return RootMessage{Data: data, Channel: h.chann, Type: msgType, From: h.from}
}

// Ping builds a latency probe carrying the current time in milliseconds.
func (h *Handler) Ping() RootMessage {
	return h.message(TypePing, strconv.FormatInt(h.now().UnixMilli(), 10))
}

// Handle decodes and dispatches one raw frame.
func (h *Handler) Handle(raw []byte, reply Reply) error {
	m, err := DecodeMessage(raw)
	if err != nil {
		return errors.Wrap(err, "decode message")
	}
	return h.Dispatch(m, reply)
}

// Dispatch handles a decoded message. Unknown types are ignored.
func (h *Handler) Dispatch(m RootMessage, reply Reply) error {
	switch {
	case m.Is(TypePing):
		if reply == nil {
			return nil
		}
		return errors.Wrap(reply(h.message(TypePong, m.Data)), "send pong")

	case m.Is(TypePong):
		return h.onPong(m.Data)

	case m.Is(TypeControlStatus):
		var d types.ControlStatusData
		if err := json.Unmarshal([]byte(m.Data), &d); err != nil {
			return errors.Wrap(err, "decode control status")
		}
		h.sink.OnControllerStatusData(d)
		return nil

	case m.Is(TypeControl):
		return h.onControl(m.Data)

	case m.Is(TypeLog):
		h.log.WithField("from", m.From).Info(m.Data)
		return nil
	}

	h.log.WithField("type", m.Type).Debug("ignoring message")
	return nil
}

func (h *Handler) onControl(data string) error {
	switch {
	case strings.EqualFold(data, ControlStart):
		h.sink.PrepareDrone(h.mode)
	case strings.EqualFold(data, ControlStop):
		h.sink.Abort()
	case strings.EqualFold(data, ControlLand):
		h.sink.Land()
	default:
		return errors.Errorf("unknown control request %q", data)
	}
	return nil
}

// Feedback builds the message reporting a control state change.
func (h *Handler) Feedback(category, status string) RootMessage {
	return h.message(category, status)
}

// Notice builds a log message for the remote operator.
func (h *Handler) Notice(text string) RootMessage {
	return h.message(TypeLog, text)
}

// onPong records the latency of an echoed probe. Echoes older than the
// newest one seen are dropped.
func (h *Handler) onPong(data string) error {
	sent, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "pong payload %q", data)
	}

	h.mu.Lock()
	if sent < h.lastPingAt {
		h.mu.Unlock()
		return nil
	}
	h.lastPingAt = sent
	h.latency = time.Duration(h.now().UnixMilli()-sent) * time.Millisecond / 2
	h.haveLatency = true
	latency := h.latency
	h.mu.Unlock()

	line := fmt.Sprintf("%d ms", latency.Milliseconds())
	h.log.WithField("latency", line).Debug("data latency")
	if h.status != nil {
		h.status.SetStatusLine(telemetry.KeyDataLatency, line)
	}
	return nil
}

// RunPinger sends a probe every interval until ctx is done or send fails.
func (h *Handler) RunPinger(ctx context.Context, interval time.Duration, send Reply) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := send(h.Ping()); err != nil {
				return errors.Wrap(err, "send ping")
			}
		}
	}
}
