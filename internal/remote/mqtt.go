package remote

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MQTTConfig configures the broker transport.
type MQTTConfig struct {
	Broker       string
	ClientID     string
	TopicIn      string
	TopicOut     string
	PingInterval time.Duration
	Timeout      time.Duration
}

// MQTTTransport receives data-channel frames on TopicIn and answers on TopicOut.
type MQTTTransport struct {
	client  mqtt.Client
	handler *Handler
	cfg     MQTTConfig
	log     *logrus.Entry
}

// NewMQTTTransport builds a transport with its own paho client.
func NewMQTTTransport(handler *Handler, cfg MQTTConfig) *MQTTTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = "headset-pilot-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	return newMQTTTransport(mqtt.NewClient(opts), handler, cfg)
}

func newMQTTTransport(client mqtt.Client, handler *Handler, cfg MQTTConfig) *MQTTTransport {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTTransport{
		client:  client,
		handler: handler,
		cfg:     cfg,
		log:     logrus.WithFields(logrus.Fields{"component": "mqtt", "client_id": cfg.ClientID}),
	}
}

func (t *MQTTTransport) wait(token mqtt.Token, op string) error {
	if !token.WaitTimeout(t.cfg.Timeout) {
		return errors.Errorf("mqtt %s: timed out", op)
	}
	return errors.Wrapf(token.Error(), "mqtt %s", op)
}

// Run connects, subscribes and pings until ctx is cancelled.
func (t *MQTTTransport) Run(ctx context.Context) error {
	if err := t.wait(t.client.Connect(), "connect"); err != nil {
		return err
	}
	defer t.client.Disconnect(250)
	t.log.WithField("broker", t.cfg.Broker).Info("connected to broker")

	if err := t.wait(t.client.Subscribe(t.cfg.TopicIn, 0, t.onMessage), "subscribe"); err != nil {
		return err
	}
	t.log.WithField("topic", t.cfg.TopicIn).Info("subscribed")

	if t.cfg.PingInterval > 0 {
		err := t.handler.RunPinger(ctx, t.cfg.PingInterval, t.publish)
		if errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (t *MQTTTransport) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := t.handler.Handle(msg.Payload(), t.publish); err != nil {
		t.log.WithError(err).WithField("topic", msg.Topic()).Warn("dropping message")
	}
}

// Send publishes m on the outgoing topic.
func (t *MQTTTransport) Send(m RootMessage) error {
	return t.publish(m)
}

func (t *MQTTTransport) publish(m RootMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	return t.wait(t.client.Publish(t.cfg.TopicOut, 0, false, payload), "publish")
}
