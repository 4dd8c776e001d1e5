// Package ws handles WebSocket connection management, including upgrading
// HTTP connections, maintaining active client sessions, and dispatching
// incoming frames to the appropriate handlers.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/metrics"
	"github.com/pookieplum/chat-app/internal/protocol"
)

// MaxFrameBytes caps the size of a client data frame.
const MaxFrameBytes = 16 << 10

// waitTimeoutMs bounds each poll so the event loop notices shutdown.
const waitTimeoutMs = 500

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	ListenAddr     string        // address to listen on, e.g. ":8080"
	WorkerPoolSize int           // max concurrent read-worker goroutines
	MaxConnections int           // hard cap on total connections
	ReadTimeout    time.Duration // timeout for WebSocket read operations
	WriteTimeout   time.Duration // timeout for WebSocket write operations
}

// DefaultServerConfig returns a ServerConfig with production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8080",
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// SessionTracker records connection lifetimes. The Redis session store
// satisfies it.
type SessionTracker interface {
	Create(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// AdmitFunc decides whether a client at remote may open a new connection.
type AdmitFunc func(ctx context.Context, remote string) bool

// Server is the WebSocket server built on gobwas/ws and epoll. It upgrades
// HTTP connections, registers them with the poller, and hands ready
// connections to a bounded worker pool for frame reading.
type Server struct {
	config       ServerConfig
	epoll        *Epoll
	conns        *ConnectionManager
	sessions     SessionTracker
	workerPool   chan struct{}
	onMessage    func(conn *Connection, data []byte)
	onDisconnect func(connID string)
	admit        AdmitFunc
	mux          *http.ServeMux
	httpServer   *http.Server
	log          *logrus.Logger
	done         chan struct{}
	startedAt    time.Time
}

// NewServer creates a Server. onMessage is called from a worker goroutine
// for every complete text frame; frames of one connection never overlap.
// A nil sessions disables session tracking.
func NewServer(config ServerConfig, sessions SessionTracker, onMessage func(conn *Connection, data []byte), logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = DefaultServerConfig().WorkerPoolSize
	}
	s := &Server{
		config:     config,
		conns:      NewConnectionManager(),
		sessions:   sessions,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		onMessage:  onMessage,
		mux:        http.NewServeMux(),
		log:        logger,
		done:       make(chan struct{}),
	}
	s.mux.HandleFunc("/ws", s.handleUpgrade)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// SetOnDisconnect registers a callback invoked when a connection is removed,
// before its session is deleted.
func (s *Server) SetOnDisconnect(fn func(connID string)) {
	s.onDisconnect = fn
}

// SetAdmission installs a gate consulted before each upgrade.
func (s *Server) SetAdmission(fn AdmitFunc) {
	s.admit = fn
}

// Handler returns the HTTP routes served by Start.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start creates the poller, starts the event loop and heartbeat, and blocks
// serving HTTP until Shutdown.
func (s *Server) Start() error {
	var err error
	s.epoll, err = NewEpoll()
	if err != nil {
		return fmt.Errorf("ws: create epoll: %w", err)
	}

	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.startEventLoop()
	StartHeartbeat(s, DefaultHeartbeatConfig())

	s.log.WithFields(logrus.Fields{
		"addr":      s.config.ListenAddr,
		"workers":   s.config.WorkerPoolSize,
		"max_conns": s.config.MaxConnections,
	}).Info("ws: server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ws: http server: %w", err)
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.epoll == nil {
		http.Error(w, "server not started", http.StatusServiceUnavailable)
		return
	}
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if s.admit != nil {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.admit(r.Context(), host) {
			http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
			return
		}
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.WithError(err).Debug("ws: upgrade failed")
		return
	}

	c := NewConnection(uuid.NewString(), conn)
	log := s.log.WithField("session", c.ID)

	s.conns.Add(c)
	if err := s.epoll.Add(c); err != nil {
		log.WithError(err).Error("ws: epoll add failed")
		s.conns.Remove(c.ID)
		return
	}
	metrics.ConnectionsTotal.Inc()

	if s.sessions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.sessions.Create(ctx, c.ID); err != nil {
			log.WithError(err).Warn("ws: create session failed")
		}
		cancel()
	}

	msg, err := protocol.NewServerMessage(protocol.TypeSessionCreated, protocol.SessionCreatedMsg{SessionID: c.ID})
	if err == nil {
		err = c.WriteMessage(msg)
	}
	if err != nil {
		log.WithError(err).Warn("ws: send session_created failed")
	}

	log.WithFields(logrus.Fields{"fd": c.Fd, "total": s.conns.Count()}).Debug("ws: new connection")
}

// handleHealth reports status, connection count and uptime as JSON.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// startEventLoop waits for readiness and dispatches each ready connection to
// a worker, bounded by the worker pool semaphore.
func (s *Server) startEventLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conns, err := s.epoll.Wait(waitTimeoutMs)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if !isEINTR(err) {
				s.log.WithError(err).Warn("ws: epoll wait failed")
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}

		for _, c := range conns {
			c := c
			s.workerPool <- struct{}{}
			go func() {
				defer func() { <-s.workerPool }()
				s.handleConn(c)
			}()
		}
	}
}

// handleConn reads one frame from a ready connection. Control frames are
// consumed without reaching the application. Read failures remove the
// connection.
func (s *Server) handleConn(c *Connection) {
	// Level-triggered epoll may report a connection that is already being read.
	if !c.processing.CompareAndSwap(false, true) {
		return
	}
	defer c.processing.Store(false)

	data, closed := s.readFrame(c)
	if closed {
		s.RemoveConnection(c)
		return
	}
	if s.epoll != nil {
		s.epoll.Rearm(c)
	}

	if len(data) == 0 || s.onMessage == nil {
		return
	}
	start := time.Now()
	s.onMessage(c, data)
	metrics.FrameLatency.Observe(time.Since(start).Seconds())
}

// readFrame returns the payload of the next data frame, or closed=true when
// the connection should be dropped.
func (s *Server) readFrame(c *Connection) (data []byte, closed bool) {
	if s.config.ReadTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		defer c.Conn.SetReadDeadline(time.Time{})
	}

	header, reader, err := wsutil.NextReader(c.rd, ws.StateServerSide)
	if err != nil {
		// A timeout is a stale readiness report; the heartbeat handles dead peers.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, false
		}
		return nil, true
	}
	c.Touch()

	if header.OpCode.IsControl() {
		if header.OpCode == ws.OpClose {
			return nil, true
		}
		if _, err := io.Copy(io.Discard, reader); err != nil {
			return nil, true
		}
		return nil, false
	}

	data, err = io.ReadAll(io.LimitReader(reader, MaxFrameBytes+1))
	if err != nil || len(data) > MaxFrameBytes {
		return nil, true
	}
	return data, false
}

// RemoveConnection unregisters and closes c, runs the disconnect callback and
// deletes the session. Concurrent calls for one connection clean up once.
func (s *Server) RemoveConnection(c *Connection) {
	if s.epoll != nil {
		_ = s.epoll.Remove(c)
	}
	if !s.conns.Remove(c.ID) {
		return
	}
	metrics.ConnectionsTotal.Dec()

	if s.onDisconnect != nil {
		s.onDisconnect(c.ID)
	}

	if s.sessions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.sessions.Delete(ctx, c.ID); err != nil {
			s.log.WithError(err).WithField("session", c.ID).Warn("ws: delete session failed")
		}
		cancel()
	}

	s.log.WithFields(logrus.Fields{"session": c.ID, "total": s.conns.Count()}).Debug("ws: connection closed")
}

// SendMessage writes a text frame to the connection identified by connID.
func (s *Server) SendMessage(connID string, data []byte) error {
	c := s.conns.Get(connID)
	if c == nil {
		return fmt.Errorf("ws: connection %s not found", connID)
	}

	if s.config.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return c.WriteMessage(data)
}

// Connections returns the live connection registry.
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown stops the HTTP listener and event loop and closes every
// connection, running the disconnect callback for each.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("ws: shutting down server")
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("ws: http shutdown failed")
		}
	}

	for _, c := range s.conns.All() {
		s.RemoveConnection(c)
	}

	if s.epoll != nil {
		_ = s.epoll.Close()
	}

	s.log.Info("ws: server stopped")
	return err
}
