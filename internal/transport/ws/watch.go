// Package ws streams live run state over WebSocket connections.
package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/service"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Message is one frame sent to a watcher.
type Message struct {
	Type  string           `json:"type"`
	Run   *domain.RunState `json:"run,omitempty"`
	Error string           `json:"error,omitempty"`
}

const (
	TypeState = "state"
	TypeError = "error"
)

// Server handles watch connections.
type Server struct {
	service  *service.Service
	interval time.Duration
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a watch server that polls the ledger every interval.
func NewServer(svc *service.Service, interval time.Duration, logger *zap.Logger) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service:  svc,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Requests already passed the access gate.
				return true
			},
		},
	}
}

// RegisterRoutes registers the watch route on g.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/runs/:run_id/watch", s.HandleWatch)
}

// HandleWatch sends the run's state on connect and again whenever it
// changes, then closes the connection once the run is terminal.
// GET /api/runs/:run_id/watch
func (s *Server) HandleWatch(c echo.Context) error {
	runID := c.Param("run_id")

	// Resolve before upgrading so unknown runs get a plain 404.
	run, err := s.service.GetRun(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.String("run_id", runID), zap.Error(err))
		return nil
	}
	defer conn.Close()

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	s.writePump(c, conn, run, closed)
	return nil
}

// readPump drains client frames so pongs and close frames are processed.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("watch connection closed", zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) writePump(c echo.Context, conn *websocket.Conn, run *domain.RunState, closed <-chan struct{}) {
	poll := time.NewTicker(s.interval)
	ping := time.NewTicker(pingInterval)
	defer func() {
		poll.Stop()
		ping.Stop()
	}()

	ctx := c.Request().Context()
	runID := run.RunID
	last := *run
	if !s.send(conn, Message{Type: TypeState, Run: run}) {
		return
	}

	for {
		if last.Status.IsTerminal() {
			s.close(conn, websocket.CloseNormalClosure, "run finished")
			return
		}

		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			current, err := s.service.GetRun(ctx, runID)
			if err != nil {
				s.send(conn, Message{Type: TypeError, Error: err.Error()})
				s.close(conn, websocket.CloseInternalServerErr, "ledger unavailable")
				return
			}
			if sameState(last, *current) {
				continue
			}
			last = *current
			if !s.send(conn, Message{Type: TypeState, Run: current}) {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg Message) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("failed to write watch message", zap.Error(err))
		return false
	}
	return true
}

func (s *Server) close(conn *websocket.Conn, code int, text string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

func sameState(a, b domain.RunState) bool {
	return a.Status == b.Status &&
		a.Query == b.Query &&
		a.Answer == b.Answer &&
		a.Error == b.Error &&
		equalTime(a.StartedAt, b.StartedAt) &&
		equalTime(a.FinishedAt, b.FinishedAt)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
