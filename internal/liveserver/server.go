// Package liveserver pushes a live preview of the editing session over WebSocket.
// Every inbound edit is applied through the session and answered with a fresh compile.
package liveserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"strategy-logic-go/internal/compiler"
	"strategy-logic-go/internal/condition"
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/preview"
	"strategy-logic-go/internal/session"
)

// Editor is the part of session.Manager the server drives.
type Editor interface {
	Apply(ctx context.Context, action condition.Action) (session.Snapshot, error)
	Snapshot(ctx context.Context) (session.Snapshot, error)
	Submit(ctx context.Context) (session.Snapshot, error)
}

// 入站消息类型
const (
	KindApply    = "apply"
	KindSnapshot = "snapshot"
	KindSubmit   = "submit"
)

// Inbound is one message from the editor UI.
type Inbound struct {
	Kind   string            `json:"kind"`
	Action *condition.Action `json:"action,omitempty"`
}

// Update is pushed after every processed message.
type Update struct {
	Kind          string                     `json:"kind"`
	Revision      int64                      `json:"revision"`
	Logic         models.StrategyLogicConfig `json:"logic"`
	Summary       []preview.Section          `json:"summary"`
	Issues        []compiler.Issue           `json:"issues"`
	Participating []models.ValueRef          `json:"participating"`
	Unused        []string                   `json:"unused"`
	Error         string                     `json:"error,omitempty"`
}

func newUpdate(kind string, snap session.Snapshot, err error) Update {
	u := Update{
		Kind:          kind,
		Revision:      snap.Revision,
		Logic:         snap.Config,
		Summary:       snap.Summary,
		Issues:        snap.Report.Issues,
		Participating: snap.Used,
		Unused:        snap.UnusedIndicators,
	}
	if err != nil {
		u.Error = err.Error()
	}
	return u
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Server pushes live previews of one editing session to websocket clients.
type Server struct {
	editor   Editor
	cfg      models.ServerConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates a Server for editor; a nil logger discards output.
func New(editor Editor, cfg models.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		editor:  editor,
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowedOriginHost == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == s.cfg.AllowedOriginHost
}

// Handler returns the routes: GET /ws and GET /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Sugar().Infof("Live preview listening on %s", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Sugar().Warnf("WebSocket upgrade error: %v", err)
		return
	}
	c := &client{conn: conn}
	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	ctx := r.Context()
	snap, err := s.editor.Snapshot(ctx)
	if err := s.write(c, newUpdate(KindSnapshot, snap, err)); err != nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Sugar().Warnf("WebSocket read error: %v", err)
			}
			return
		}
		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			snap, _ := s.editor.Snapshot(ctx)
			if s.write(c, newUpdate("", snap, err)) != nil {
				return
			}
			continue
		}
		s.handle(ctx, c, msg)
	}
}

// handle answers the sender; successful edits and submits are broadcast to every client.
func (s *Server) handle(ctx context.Context, c *client, msg Inbound) {
	var (
		snap session.Snapshot
		err  error
	)
	switch msg.Kind {
	case KindApply:
		if msg.Action == nil {
			snap, _ = s.editor.Snapshot(ctx)
			err = errors.New("apply message without action")
		} else {
			snap, err = s.editor.Apply(ctx, *msg.Action)
		}
	case KindSnapshot:
		snap, err = s.editor.Snapshot(ctx)
	case KindSubmit:
		snap, err = s.editor.Submit(ctx)
	default:
		snap, _ = s.editor.Snapshot(ctx)
		err = errors.New("unknown message kind " + msg.Kind)
	}

	update := newUpdate(msg.Kind, snap, err)
	if err != nil || msg.Kind == KindSnapshot {
		_ = s.write(c, update)
		return
	}
	s.broadcast(update)
}

func (s *Server) broadcast(u Update) {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := s.write(c, u); err != nil {
			s.logger.Sugar().Debugf("Dropping update %d for a disconnected client: %v", u.Revision, err)
		}
	}
}

func (s *Server) write(c *client, u Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.cfg.WriteTimeoutSec > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Duration(s.cfg.WriteTimeoutSec) * time.Second))
	}
	return c.conn.WriteJSON(u)
}
