package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-live-server/pkg/chessdto"
)

const (
	maxMessageBytes   = 16 << 10
	writeTimeout      = 10 * time.Second
	disconnectTimeout = 5 * time.Second
	commandTimeout    = 10 * time.Second
)

// Coordinator is the part of session.Coordinator the transport needs.
type Coordinator interface {
	Handle(ctx context.Context, connID string, cmd chessdto.Command) error
	Disconnect(ctx context.Context, connID string) error
	ReportError(connID string, err error)
	View(ctx context.Context, gameID string) (*chessdto.GameView, error)
	CreateGame(ctx context.Context, name string) (*chessdto.GameView, error)
	Active() int
}

type Options struct {
	AllowedOrigins []string
	PingInterval   time.Duration
}

type Server struct {
	coord   Coordinator
	hub     *Hub
	logger  *zap.Logger
	origins []string
	ping    time.Duration

	mu      sync.Mutex
	closing bool
	live    sync.WaitGroup
}

func NewServer(coord Coordinator, hub *Hub, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Server{coord: coord, hub: hub, logger: logger, origins: opts.AllowedOrigins, ping: ping}
}

// ServeWS upgrades the request and serves one client until it disconnects.
// It is mounted outside gin: nhooyr hijacks the connection itself and gin's
// writer would mark the response as written first.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !s.enter() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.live.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     s.origins,
		InsecureSkipVerify: len(s.origins) == 0,
	})
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	id := uuid.NewString()
	cl := s.hub.register(id)
	s.logger.Info("ws_connect", zap.String("conn_id", id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(context.Background())
	go s.writeLoop(ctx, cancel, conn, cl)
	s.readLoop(ctx, conn, id)
	cancel()

	s.hub.unregister(id)
	dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
	if err := s.coord.Disconnect(dctx, id); err != nil {
		s.logger.Warn("ws_disconnect_error", zap.String("conn_id", id), zap.Error(err))
	}
	dcancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	s.logger.Info("ws_close", zap.String("conn_id", id))
}

func (s *Server) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.live.Add(1)
	return true
}

// Shutdown refuses new sockets, hangs up the open ones and waits until each
// has left its game. http.Server.Shutdown does not reach hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	n := s.hub.closeAll(websocket.StatusGoingAway, "server shutting down")
	s.logger.Info("ws_shutdown", zap.Int("connections", n))

	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop handles commands one at a time, so a disconnect is processed only
// after the last command from this connection. A command that was read runs
// on its own context and is judged even if the socket dies meanwhile.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, id string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			s.coord.ReportError(id, chessdto.DomainError{Code: chessdto.CodeBadRequest, Message: "text frames only"})
			continue
		}
		var cmd chessdto.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.coord.ReportError(id, chessdto.DomainError{Code: chessdto.CodeBadRequest, Message: "malformed message"})
			continue
		}
		hctx, hcancel := context.WithTimeout(context.Background(), commandTimeout)
		_ = s.coord.Handle(hctx, id, cmd)
		hcancel()
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, cl *client) {
	defer cancel()
	t := time.NewTicker(s.ping)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-cl.dropped:
			_ = conn.Close(cl.code, cl.reason)
			return
		case msg := <-cl.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			wcancel()
			if err != nil {
				s.logger.Debug("ws_write_error", zap.String("conn_id", cl.id), zap.Error(err))
				return
			}
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				s.logger.Debug("ws_ping_error", zap.String("conn_id", cl.id), zap.Error(err))
				return
			}
		}
	}
}
