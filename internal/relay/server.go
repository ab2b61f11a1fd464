package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/checkers-relay/internal/obslog"
	"github.com/park285/checkers-relay/internal/protocol"
)

const (
	writeTimeout   = 5 * time.Second
	rejectTimeout  = 2 * time.Second
	defaultCapText = "Game is full"
)

// Server exposes a Hub over WebSocket plus a health endpoint and an
// optional static file directory.
type Server struct {
	hub       *Hub
	queueSize int
	staticDir string
	capText   string
	stats     *StatsStore
	srv       *http.Server
}

type Option func(*Server)

func WithQueueSize(n int) Option      { return func(s *Server) { s.queueSize = n } }
func WithStaticDir(dir string) Option { return func(s *Server) { s.staticDir = dir } }

// WithCapacityText sets the message carried in the rejection payload.
func WithCapacityText(text string) Option {
	return func(s *Server) {
		if strings.TrimSpace(text) != "" {
			s.capText = text
		}
	}
}

// WithStatsStore lets /healthz report the persisted counters as well.
func WithStatsStore(st *StatsStore) Option { return func(s *Server) { s.stats = st } }

func NewServer(hub *Hub, opts ...Option) *Server {
	s := &Server{hub: hub, queueSize: 16, capText: defaultCapText}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler routes /ws, /healthz and everything else. A WebSocket
// handshake on / is accepted as well.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)

	var files http.Handler = http.NotFoundHandler()
	if fi, err := os.Stat(s.staticDir); err == nil && fi.IsDir() {
		files = http.FileServer(http.Dir(s.staticDir))
	} else if s.staticDir != "" {
		obslog.L().Info("relay_static_disabled", zap.String("dir", s.staticDir))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if isUpgrade(r) {
			s.serveWS(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
	return mux
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	obslog.L().Info("relay_listen", zap.String("addr", addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Warn("relay_accept_failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	m := NewMember(s.queueSize)
	_, ok, err := s.hub.Join(ctx, m)
	if err != nil {
		_ = c.Close(websocket.StatusGoingAway, "relay stopping")
		return
	}
	if !ok {
		s.reject(ctx, c)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(ctx, cancel, c, m)
	}()

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st != websocket.StatusNormalClosure && st != websocket.StatusGoingAway && ctx.Err() == nil {
				obslog.L().Debug("relay_read_end", zap.String("conn_id", m.ID.String()), zap.Error(err))
			}
			break
		}
		if typ != websocket.MessageText {
			continue
		}
		if err := s.hub.Relay(ctx, m.ID, data); err != nil {
			break
		}
	}

	// detached from ctx so the slot is freed even when the request is gone
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
	_ = s.hub.Leave(leaveCtx, m.ID)
	leaveCancel()
	cancel()
	<-done
	_ = c.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) reject(ctx context.Context, c *websocket.Conn) {
	wctx, cancel := context.WithTimeout(ctx, rejectTimeout)
	defer cancel()
	if err := c.Write(wctx, websocket.MessageText, protocol.CapacityError(s.capText)); err != nil {
		obslog.L().Debug("relay_reject_write_failed", zap.Error(err))
	}
	_ = c.Close(websocket.StatusPolicyViolation, "game full")
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, m *Member) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-m.Outbound():
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				obslog.L().Debug("relay_write_failed", zap.String("conn_id", m.ID.String()), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

// Health is the /healthz body.
type Health struct {
	Status string    `json:"status"`
	Hub    Snapshot  `json:"hub"`
	Stored *Snapshot `json:"stored,omitempty"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	snap, err := s.hub.Stats(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	resp := Health{Status: "ok", Hub: snap}
	if s.stats != nil {
		if stored, err := s.stats.Load(ctx); err == nil {
			resp.Stored = &stored
		} else {
			obslog.L().Warn("relay_stats_load_failed", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
