package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	closeWait      = time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
	maxMessageSize = 4 << 20
)

var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull means the peer is not draining its socket.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is one live link to the relay. Send never blocks: events are queued
// for a writer goroutine. Receive blocks and must be called from a single
// goroutine. Close unblocks Receive.
type Conn interface {
	Send(ev Event) error
	Receive() (Event, error)
	Close() error
}

// Dialer opens a Conn. The context bounds the handshake.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebsocketDialer dials the relay over a websocket.
type WebsocketDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Dial connects and starts the connection's writer.
func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return NewWebsocketConn(ws, logger.With(slog.String("remote", d.URL))), nil
}

type websocketConn struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewWebsocketConn wraps an established websocket, client or server side.
func NewWebsocketConn(ws *websocket.Conn, logger *slog.Logger) Conn {
	c := &websocketConn{
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.writePump()
	return c
}

func (c *websocketConn) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Name, err)
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *websocketConn) Receive() (Event, error) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			return Event{}, err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}
		return ev, nil
	}
}

func (c *websocketConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		err = c.ws.Close()
	})
	return err
}

// writePump is the only writer of data frames on the socket.
func (c *websocketConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Error("write failed", slog.String("error", err.Error()))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
