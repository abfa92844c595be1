package link

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
)

// Publisher receives decoded telemetry. Implemented by telemetry.StatusMonitor.
type Publisher interface {
	Publish(key telemetry.Key, value any)
}

// SessionConfig holds configuration for a Session.
type SessionConfig struct {
	PollInterval time.Duration
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{PollInterval: 200 * time.Millisecond}
}

// Session pumps one connected client: it subscribes to every telemetry key,
// requests a snapshot every poll interval and dispatches what the bridge sends.
type Session struct {
	client    *Client
	publisher Publisher
	cfg       SessionConfig
}

// NewSession creates a Session backed by the given client and publisher.
func NewSession(client *Client, publisher Publisher, cfg SessionConfig) *Session {
	return &Session{client: client, publisher: publisher, cfg: cfg}
}

// Subscribe sends a SUBSCRIBE message for each telemetry key.
func (s *Session) Subscribe() error {
	for _, k := range telemetry.Keys {
		if _, err := s.client.sendMessage(MsgSubscribe, append([]byte(k), 0)); err != nil {
			return err
		}
	}
	return nil
}

// Run blocks, requesting telemetry and processing frames. It exits when ctx
// is cancelled or the connection is lost; outstanding requests fail either way.
func (s *Session) Run(ctx context.Context) error {
	interval := s.cfg.PollInterval
	if interval == 0 {
		interval = 200 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.client.failPending()

	done := make(chan error, 1)
	go s.readLoop(done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case <-ticker.C:
			if _, err := s.client.sendMessage(MsgRequestTelemetry, nil); err != nil {
				return err
			}
		}
	}
}

func (s *Session) readLoop(done chan<- error) {
	log := s.client.log
	for {
		h, data, err := s.client.ReadNext()
		if err != nil {
			s.publisher.Publish(telemetry.KeyConnection, false)
			s.client.failPending()
			done <- err
			return
		}
		switch h.Type {
		case MsgTelemetry:
			key, v, err := ParseTelemetry(data)
			if err != nil {
				if errors.Is(err, ErrUnknownTelemetry) {
					log.WithField("key", key).Debug("ignoring telemetry")
				} else {
					log.WithError(err).Warn("parse telemetry")
				}
				continue
			}
			s.publisher.Publish(key, v)
		case MsgResult:
			s.client.resolve(h.ID, data)
		case MsgException:
			log.WithField("id", h.ID).Warn("bridge exception")
		}
	}
}
