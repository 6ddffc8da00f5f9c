package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domconv "github.com/kailas-cloud/nearby/internal/domain/conversation"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/usecase/conversation"
	"github.com/kailas-cloud/nearby/internal/usecase/location"
	"github.com/kailas-cloud/nearby/internal/usecase/search"
)

// ErrSessionClosed is returned by writes after the session ended.
var ErrSessionClosed = errors.New("session closed")

// session is one websocket connection. The read loop owns the connection's
// reader; writes are serialized by writeMu.
type session struct {
	id      string
	conn    *websocket.Conn
	cfg     Config
	history *domconv.History
	broker  *location.Broker
	inbox   chan string

	writeMu sync.Mutex
	closed  bool
}

func newSession(conn *websocket.Conn, cfg Config) *session {
	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		cfg:     cfg,
		history: domconv.NewHistory(cfg.HistoryLimit),
		inbox:   make(chan string, cfg.InboxSize),
	}
	s.broker = location.NewBroker(s, cfg.LocationTimeout)
	return s
}

func (s *session) ID() string                { return s.id }
func (s *session) History() *domconv.History { return s.history }
func (s *session) Locator() search.Locator   { return s.broker }

func (s *session) Reply(ctx context.Context, text string) error {
	return s.write(ctx, outbound{Type: TypeReply, Content: text})
}

func (s *session) Results(ctx context.Context, r conversation.Results) error {
	return s.write(ctx, outbound{Type: TypeResults, Data: r})
}

func (s *session) Notice(ctx context.Context, n conversation.Notice) error {
	return s.write(ctx, outbound{Type: TypeNotice, Code: n.Code, Message: n.Message})
}

// RequestLocation asks the client for its position.
func (s *session) RequestLocation(ctx context.Context, requestID string) error {
	return s.write(ctx, outbound{Type: TypeLocationRequest, RequestID: requestID})
}

func (s *session) write(ctx context.Context, ev outbound) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return fmt.Errorf("write %s: %w", ev.Type, ErrSessionClosed)
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	return nil
}

func (s *session) markClosed() {
	s.writeMu.Lock()
	s.closed = true
	s.writeMu.Unlock()
}

// run serves the session until the client disconnects or ctx ends.
func (s *session) run(ctx context.Context, handler Handler) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	// Unblocks the read loop when the server shuts down.
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.work(ctx, handler)
	}()
	go func() {
		defer wg.Done()
		s.keepalive(ctx)
	}()

	err := s.readLoop(ctx)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("session read ended", zap.Error(err))
	}

	cancel()
	close(s.inbox)
	wg.Wait()
	s.markClosed()
}

// readLoop dispatches client events. Location responses are delivered here so
// that a loop waiting for one is not blocked behind the inbox.
func (s *session) readLoop(ctx context.Context) error {
	log := logger.FromContext(ctx)

	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err //nolint:wrapcheck // terminal, logged by run
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		var ev inbound
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Debug("malformed client event", zap.Error(err))
			_ = s.Notice(ctx, conversation.Notice{Code: NoticeBadEvent, Message: "malformed event"})
			continue
		}

		switch ev.Type {
		case TypeMessage:
			if ev.Content == "" {
				continue
			}
			select {
			case s.inbox <- ev.Content:
			default:
				_ = s.Notice(ctx, conversation.Notice{Code: NoticeBusy, Message: busyMessage})
			}
		case TypeLocationResponse:
			if ev.Lat == nil || ev.Lon == nil {
				continue
			}
			matched := s.broker.Deliver(ev.RequestID, geo.Point{Lat: *ev.Lat, Lon: *ev.Lon})
			log.Debug("location response", zap.String("request_id", ev.RequestID), zap.Bool("matched", matched))
		default:
			log.Debug("ignoring client event", zap.String("type", ev.Type))
		}
	}
}

// work handles inbox messages one at a time.
func (s *session) work(ctx context.Context, handler Handler) {
	log := logger.FromContext(ctx)
	for text := range s.inbox {
		if ctx.Err() != nil {
			continue // drain
		}
		if err := handler.Handle(ctx, s, text); err != nil {
			log.Debug("message not completed", zap.Error(err))
		}
	}
}

func (s *session) keepalive(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.FromContext(ctx).Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
