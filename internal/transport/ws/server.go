// Package ws serves conversation sessions over websocket.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
	"github.com/kailas-cloud/nearby/internal/usecase/conversation"
)

// Session-level notice codes, in addition to the loop's.
const (
	NoticeBusy     = "busy"
	NoticeBadEvent = "bad_event"
)

const busyMessage = "Still working on your previous messages. Please wait.\n" +
	"ما زلت أعمل على رسائلك السابقة. يرجى الانتظار."

// Handler runs the conversation loop for one inbound message.
type Handler interface {
	Handle(ctx context.Context, sess conversation.Session, text string) error
}

// Config holds session settings.
type Config struct {
	LocationTimeout time.Duration
	HistoryLimit    int
	InboxSize       int
	WriteTimeout    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
	// CheckOrigin overrides the same-origin check. Nil allows any origin.
	CheckOrigin func(r *http.Request) bool
}

func (c *Config) applyDefaults() {
	if c.LocationTimeout <= 0 {
		c.LocationTimeout = 15 * time.Second
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 8
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// Server upgrades HTTP requests to conversation sessions.
type Server struct {
	handler  Handler
	cfg      Config
	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a session server.
func NewServer(handler Handler, cfg Config) *Server {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler: handler,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// ServeHTTP blocks for the lifetime of the session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess := newSession(conn, s.cfg)
	log = log.With(zap.String("session_id", sess.id))
	ctx := logger.ContextWithLogger(s.ctx, log)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	log.Info("session opened")
	start := time.Now()
	sess.run(ctx, s.handler)
	log.Info("session closed", zap.Duration("duration", time.Since(start)))
}

// Close ends every open session.
func (s *Server) Close() {
	s.cancel()
}
