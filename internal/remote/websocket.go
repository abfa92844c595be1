package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WebsocketConfig configures the websocket server.
type WebsocketConfig struct {
	Addr         string
	Path         string
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// WebsocketServer accepts data-channel peers. Each peer gets one reader and
// one pinger; writes to a peer are serialized.
type WebsocketServer struct {
	handler  *Handler
	cfg      WebsocketConfig
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	timeout time.Duration
}

func (p *peer) send(m RootMessage) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.timeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
	}
	return p.conn.WriteJSON(m)
}

// NewWebsocketServer builds a server dispatching frames to handler.
func NewWebsocketServer(handler *Handler, cfg WebsocketConfig) *WebsocketServer {
	if cfg.Path == "" {
		cfg.Path = "/control"
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &WebsocketServer{
		handler: handler,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   logrus.WithField("component", "websocket"),
		peers: make(map[*peer]struct{}),
	}
}

// Mux returns an http.Handler serving the data channel on the configured path.
func (s *WebsocketServer) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	return mux
}

// PeerCount returns the number of connected peers.
func (s *WebsocketServer) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Broadcast sends m to every connected peer.
func (s *WebsocketServer) Broadcast(m RootMessage) {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		if err := p.send(m); err != nil {
			s.log.WithError(err).Debug("broadcast failed")
		}
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (s *WebsocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	p := &peer{conn: conn, timeout: s.cfg.WriteTimeout}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
	}()

	log := s.log.WithField("peer", r.RemoteAddr)
	log.Info("peer connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if s.cfg.PingInterval > 0 {
		go func() {
			if err := s.handler.RunPinger(ctx, s.cfg.PingInterval, p.send); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("pinger stopped")
			}
		}()
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("peer read failed")
			}
			log.Info("peer disconnected")
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if err := s.handler.Handle(data, p.send); err != nil {
			log.WithError(err).Warn("dropping message")
		}
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *WebsocketServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", s.cfg.Addr).Info("websocket server listening")

	select {
	case err := <-errc:
		return errors.Wrap(err, "websocket server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}
