package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned when sending to a connection that has shut down.
var ErrConnClosed = errors.New("connection closed")

const writeTimeout = 10 * time.Second

// conn wraps one WebSocket client. Writes go through a buffered channel and
// a single write pump; the read pump only watches for the peer going away,
// screens never send anything meaningful.
type conn struct {
	ws        *websocket.Conn
	outbound  chan *Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, logger *log.Logger) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		ws:       ws,
		outbound: make(chan *Message, 64),
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *conn) start() {
	go c.writePump()
	go c.readPump()
}

func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.ws.Close()
	})
	return err
}

// send queues a message. A full buffer closes the connection rather than
// blocking the broadcast path.
func (c *conn) send(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnClosed
	case c.outbound <- msg:
		return nil
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.close()
		return ErrConnClosed
	}
}

func (c *conn) writePump() {
	defer c.close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		}
	}
}

func (c *conn) readPump() {
	defer c.close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
