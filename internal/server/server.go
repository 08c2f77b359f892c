// Package server exposes the live display and clock feeds over WebSocket.
// Browsers on the second screen connect to /ws and receive every state
// change; the latest known state is replayed on connect so a fresh screen
// is never blank.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/rankmaster/internal/clock"
	"github.com/lox/rankmaster/internal/display"
)

// Message is the wire envelope for broadcasts.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	// MessageTypeDisplay carries a display.Packet.
	MessageTypeDisplay = "display"
	// MessageTypeClock carries a clock.Snapshot.
	MessageTypeClock = "clock"
)

// Server is the WebSocket broadcast hub.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	conns      map[*conn]bool
	register   chan *conn
	unregister chan *conn
	logger     *log.Logger

	mu          sync.RWMutex
	lastDisplay *Message
	lastClock   *Message

	ctx     context.Context
	cancel  context.CancelFunc
	runOnce sync.Once
	httpd   *http.Server
}

// New creates a broadcast server listening on addr.
func New(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// The display surface is served from anywhere on the venue LAN.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:      make(map[*conn]bool),
		register:   make(chan *conn),
		unregister: make(chan *conn),
		logger:     logger.WithPrefix("server"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the server until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.httpd = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.logger.Info("starting display server", "addr", s.addr)
	if err := s.httpd.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down and closes every connection.
func (s *Server) Stop() error {
	s.cancel()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.close()
	}
	s.mu.Unlock()
	if s.httpd != nil {
		return s.httpd.Shutdown(context.Background())
	}
	return nil
}

// Handler returns the HTTP handler, for hosts that mount it themselves.
func (s *Server) Handler() http.Handler {
	s.runOnce.Do(func() { go s.run() })
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// BroadcastDisplay pushes a display packet to every connected screen.
func (s *Server) BroadcastDisplay(packet display.Packet) {
	msg, err := envelope(MessageTypeDisplay, packet)
	if err != nil {
		s.logger.Error("failed to encode display packet", "error", err)
		return
	}
	s.mu.Lock()
	s.lastDisplay = msg
	s.mu.Unlock()
	s.broadcast(msg)
}

// BroadcastClock pushes a clock snapshot to every connected screen.
func (s *Server) BroadcastClock(snapshot clock.Snapshot) {
	msg, err := envelope(MessageTypeClock, snapshot)
	if err != nil {
		s.logger.Error("failed to encode clock snapshot", "error", err)
		return
	}
	s.mu.Lock()
	s.lastClock = msg
	s.mu.Unlock()
	s.broadcast(msg)
}

// PublishDisplay adapts the server to the display broadcast port.
func (s *Server) PublishDisplay(_ context.Context, packet display.Packet) error {
	s.BroadcastDisplay(packet)
	return nil
}

func (s *Server) broadcast(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		if err := c.send(msg); err != nil {
			s.logger.Debug("dropping slow connection", "error", err)
		}
	}
}

func (s *Server) run() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.conns[c] = true
			lastDisplay, lastClock := s.lastDisplay, s.lastClock
			total := len(s.conns)
			s.mu.Unlock()
			s.logger.Info("screen connected", "total", total)

			// Replay current state so the new screen renders immediately.
			if lastDisplay != nil {
				_ = c.send(lastDisplay)
			}
			if lastClock != nil {
				_ = c.send(lastClock)
			}

		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.conns[c]; ok {
				delete(s.conns, c)
				_ = c.close()
			}
			total := len(s.conns)
			s.mu.Unlock()
			s.logger.Info("screen disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newConn(ws, s.logger)
	s.register <- c
	c.start()

	go func() {
		<-c.ctx.Done()
		select {
		case s.unregister <- c:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func envelope(msgType string, v any) (*Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Data: data}, nil
}
