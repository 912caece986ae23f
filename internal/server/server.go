// Package server exposes the command dispatcher to a local front-end over
// WebSocket and plain HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/llehouerou/wavecord/internal/commands"
	"github.com/llehouerou/wavecord/internal/errmsg"
)

const (
	maxMessageSize = 64 << 10
	writeWait      = 5 * time.Second
)

// Dispatcher runs named commands. *commands.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(cmd string, args json.RawMessage) (any, error)
	Commands() []string
}

// StatusFunc reports whether the presence session is connected.
type StatusFunc func() bool

// Request is a command sent by the front-end.
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request. Error is the message shown to the user.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Connected bool     `json:"connected"`
	Commands  []string `json:"commands"`
}

// Server serves the command endpoints.
type Server struct {
	dispatcher Dispatcher
	connected  StatusFunc
	log        *slog.Logger
	origins    map[string]bool
	upgrader   websocket.Upgrader
	router     *http.ServeMux

	mu    sync.Mutex
	http  *http.Server
	conns map[*wsConn]struct{}
	wg    sync.WaitGroup
}

// New creates a server. Browser requests are accepted only from
// allowedOrigins; requests without an Origin header are always accepted.
func New(d Dispatcher, connected StatusFunc, allowedOrigins []string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		dispatcher: d,
		connected:  connected,
		log:        log,
		origins:    make(map[string]bool, len(allowedOrigins)),
		router:     http.NewServeMux(),
		conns:      make(map[*wsConn]struct{}),
	}
	for _, o := range allowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.router.HandleFunc("GET /ws", s.handleWebSocket)
	s.router.HandleFunc("POST /invoke/{cmd}", s.handleInvoke)
	s.router.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.log.Info("command server listening", "addr", ln.Addr().String())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight commands.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)

	// Hijacked websocket connections are not closed by http.Server.
	s.mu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.origins[origin]
}

func (s *Server) handle(req Request) Response {
	res, err := s.dispatcher.Dispatch(req.Cmd, req.Args)
	if err != nil {
		s.log.Debug("command failed", "cmd", req.Cmd, "err", err)
		return Response{ID: req.ID, Error: commands.ErrorMessage(req.Cmd, err)}
	}
	return Response{ID: req.ID, OK: true, Result: res}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &wsConn{conn: conn, id: uuid.NewString()}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	log := s.log.With("conn", c.id)
	log.Debug("front-end connected", "remote", r.RemoteAddr)
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.close()
		log.Debug("front-end disconnected")
		s.wg.Done()
	}()

	conn.SetReadLimit(maxMessageSize)

	// Each command runs on its own goroutine; wait for them before closing.
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", "err", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.write(log, Response{Error: errmsg.Format(errmsg.OpDecodeRequest, err)})
			continue
		}

		inflight.Add(1)
		go func(req Request) {
			defer inflight.Done()
			c.write(log, s.handle(req))
		}(req)
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(log *slog.Logger, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(resp); err != nil {
		log.Debug("websocket write failed", "err", err)
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	_ = c.conn.Close()
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		writeJSON(w, http.StatusForbidden, Response{Error: "origin not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: errmsg.Format(errmsg.OpDecodeRequest, err)})
		return
	}

	req := Request{Cmd: r.PathValue("cmd")}
	if len(body) > 0 {
		req.Args = body
	}

	resp := s.handle(req)
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Connected: s.connected(),
		Commands:  s.dispatcher.Commands(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
