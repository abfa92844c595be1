package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eytandecker/headset-pilot/internal/config"
	"github.com/eytandecker/headset-pilot/internal/controller"
	"github.com/eytandecker/headset-pilot/internal/link"
	internalmcp "github.com/eytandecker/headset-pilot/internal/mcp"
	"github.com/eytandecker/headset-pilot/internal/monitor"
	"github.com/eytandecker/headset-pilot/internal/remote"
	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("headset-pilot exited")
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	setupLogging(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	status := telemetry.NewStatusMonitor(cfg.Polling.StaleThreshold)
	status.OnStatusLine(func(key telemetry.Key, line string) {
		logrus.WithField("component", "status").WithField("key", key).Debug(line)
	})

	client := link.NewClient(link.Config{
		Host:           cfg.Link.Host,
		Port:           cfg.Link.Port,
		Timeout:        cfg.Link.Timeout,
		AppName:        cfg.Link.AppName,
		SerialPort:     cfg.Link.SerialPort,
		BaudRate:       uint(max(cfg.Link.BaudRate, 0)),
		RequestTimeout: cfg.Link.RequestTimeout,
	})

	mode, err := strategy.ParseMode(cfg.Control.Mode)
	if err != nil {
		logrus.WithError(err).Warn("falling back to headset mode")
		mode = strategy.ModeHeadset
	}

	var (
		drone controller.Controller
		setup func(context.Context)
	)
	if cfg.Control.MockController {
		drone = controller.NewMock()
	} else {
		virtual := controller.NewVirtual(link.NewAircraft(client), status, controllerConfig(cfg))
		setup = virtual.Setup
		drone = virtual
	}
	defer drone.Destroy()

	handler := remote.NewHandler(drone, status, remote.HandlerConfig{Mode: mode})
	var outputs []remote.Reply

	if cfg.Remote.WSAddr != "" {
		ws := remote.NewWebsocketServer(handler, remote.WebsocketConfig{
			Addr:         cfg.Remote.WSAddr,
			Path:         cfg.Remote.WSPath,
			PingInterval: cfg.Remote.PingInterval,
		})
		outputs = append(outputs, func(m remote.RootMessage) error {
			ws.Broadcast(m)
			return nil
		})
		go func() { logExit("websocket", ws.Run(ctx)) }()
	}
	if cfg.Remote.MQTTBroker != "" {
		mq := remote.NewMQTTTransport(handler, remote.MQTTConfig{
			Broker:       cfg.Remote.MQTTBroker,
			ClientID:     cfg.Remote.MQTTClientID,
			TopicIn:      cfg.Remote.MQTTTopicIn,
			TopicOut:     cfg.Remote.MQTTTopicOut,
			PingInterval: cfg.Remote.PingInterval,
		})
		outputs = append(outputs, mq.Send)
		go func() { logExit("mqtt", mq.Run(ctx)) }()
	}
	wireFeedback(drone, handler, outputs)

	go runLinkLoop(ctx, cfg, client, status, setup)

	if !cfg.MCP.Enabled {
		<-ctx.Done()
		return nil
	}
	mcpServer := internalmcp.NewServer(drone, status)
	if err := mcpServer.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	// stdout carries the MCP stdio transport.
	logrus.SetOutput(os.Stderr)
}

func controllerConfig(cfg config.Config) controller.Config {
	c := controller.DefaultConfig()
	c.SendingFrequency = cfg.Control.SendingFrequency
	c.TakeoffHeight = cfg.Control.TakeoffHeight
	c.TakeoffTolerance = cfg.Control.TakeoffTolerance
	c.HeightLimit = cfg.Control.HeightLimit
	c.RequestTimeout = cfg.Link.RequestTimeout
	c.Fence = monitor.Fence{
		Left:   cfg.Control.FenceLeft,
		Top:    cfg.Control.FenceTop,
		Right:  cfg.Control.FenceRight,
		Bottom: cfg.Control.FenceBottom,
	}
	c.Monitor = monitor.Config{CompassOffset: cfg.Control.CompassOffset}

	s := strategy.DefaultConfig()
	s.CommandInterval = c.SendInterval()
	s.MovementScale = cfg.Control.MovementScale
	s.MaxRotationVelocity = cfg.Control.MaxRotationVelocity
	s.VelocityThreshold = cfg.Control.VelocityThreshold
	s.BodyFrame = strings.EqualFold(cfg.Control.VelocityFrame, "body")
	s.GimbalRollSync = cfg.Control.GimbalRollSync
	s.AdvancedThumbsticks = cfg.Control.AdvancedThumbsticks
	if curve, err := strategy.ParseCurve(cfg.Control.Curve); err == nil {
		s.Curve = curve
	} else {
		logrus.WithError(err).Warn("using the exponential stick curve")
	}
	if scale, err := config.LoadScale(cfg.Scale); err == nil {
		s.Scale = scale
	} else {
		logrus.WithError(err).Warn("using unit stick scale")
	}
	c.Strategy = s
	return c
}

// wireFeedback sends control state changes and vendor failures to every
// remote output.
func wireFeedback(drone controller.Controller, handler *remote.Handler, outputs []remote.Reply) {
	send := func(m remote.RootMessage) {
		for _, out := range outputs {
			if err := out(m); err != nil {
				logrus.WithError(err).Debug("remote send failed")
			}
		}
	}
	feedback := func(category, status string) { send(handler.Feedback(category, status)) }

	switch d := drone.(type) {
	case *controller.VirtualDroneController:
		d.OnFeedback(feedback)
		log := logrus.WithField("component", "controller")
		d.OnNotify(func(level logrus.Level, msg string) {
			log.Log(level, msg)
			if level <= logrus.WarnLevel {
				send(handler.Notice(msg))
			}
		})
	case *controller.MockDroneController:
		d.OnFeedback(feedback)
	}
}

func logExit(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).WithField("component", name).Error("stopped")
	}
}

// runLinkLoop connects to the flight-control bridge and pumps telemetry,
// retrying with exponential backoff (1s → 30s cap) on failure.
func runLinkLoop(ctx context.Context, cfg config.Config, client *link.Client, status *telemetry.StatusMonitor, setup func(context.Context)) {
	log := logrus.WithField("component", "link")
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		if err := runLink(ctx, cfg, client, status, setup); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.WithError(err).WithField("retry_in", backoff).Warn("disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runLink connects, subscribes and runs the telemetry session. Returns when
// the connection is lost or ctx is done.
func runLink(ctx context.Context, cfg config.Config, client *link.Client, status *telemetry.StatusMonitor, setup func(context.Context)) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	status.Publish(telemetry.KeyConnection, true)

	session := link.NewSession(client, status, link.SessionConfig{PollInterval: cfg.Polling.Interval})
	if err := session.Subscribe(); err != nil {
		return err
	}
	if setup != nil {
		// Setup waits on results the session delivers.
		go setup(ctx)
	}
	return session.Run(ctx)
}
