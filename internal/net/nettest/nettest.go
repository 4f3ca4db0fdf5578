// Package nettest provides an in-memory transport for exercising sync
// clients without sockets.
package nettest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	boardnet "LiveBoard/internal/net"
)

// ErrRefused is returned by a Dialer that is down.
var ErrRefused = errors.New("connection refused")

const bufferSize = 64

// Conn is one end of an in-memory pipe.
type Conn struct {
	in   chan boardnet.Event
	peer *Conn
	done chan struct{}
	once sync.Once
}

// Pipe returns two connected ends.
func Pipe() (*Conn, *Conn) {
	a := &Conn{in: make(chan boardnet.Event, bufferSize), done: make(chan struct{})}
	b := &Conn{in: make(chan boardnet.Event, bufferSize), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// Send delivers ev to the peer without blocking.
func (c *Conn) Send(ev boardnet.Event) error {
	select {
	case <-c.done:
		return boardnet.ErrConnClosed
	case <-c.peer.done:
		return boardnet.ErrConnClosed
	default:
	}
	select {
	case c.peer.in <- ev:
		return nil
	default:
		return boardnet.ErrSendBufferFull
	}
}

// Receive returns the next event. Events already delivered are drained
// before a closed peer is reported as io.EOF.
func (c *Conn) Receive() (boardnet.Event, error) {
	select {
	case ev := <-c.in:
		return ev, nil
	default:
	}
	select {
	case ev := <-c.in:
		return ev, nil
	case <-c.done:
		return boardnet.Event{}, boardnet.ErrConnClosed
	case <-c.peer.done:
		return boardnet.Event{}, io.EOF
	}
}

// Close shuts this end; the peer sees io.EOF.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// Closed reports whether this end has been closed.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Emit encodes and sends an event.
func (c *Conn) Emit(name boardnet.EventName, payload any) error {
	ev, err := boardnet.NewEvent(name, payload)
	if err != nil {
		return err
	}
	return c.Send(ev)
}

// Next waits up to timeout for the next event.
func (c *Conn) Next(timeout time.Duration) (boardnet.Event, error) {
	select {
	case ev := <-c.in:
		return ev, nil
	case <-c.done:
		return boardnet.Event{}, boardnet.ErrConnClosed
	case <-time.After(timeout):
		return boardnet.Event{}, context.DeadlineExceeded
	}
}

// Dialer hands out pipes. The far end of every successful dial is
// delivered on Accepted.
type Dialer struct {
	mu    sync.Mutex
	down  bool
	dials int

	Accepted chan *Conn
}

// NewDialer returns a Dialer that accepts connections.
func NewDialer() *Dialer {
	return &Dialer{Accepted: make(chan *Conn, bufferSize)}
}

// Dial implements boardnet.Dialer.
func (d *Dialer) Dial(ctx context.Context) (boardnet.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.down {
		return nil, ErrRefused
	}
	client, server := Pipe()
	d.Accepted <- server
	return client, nil
}

// SetDown makes subsequent dials fail (true) or succeed (false).
func (d *Dialer) SetDown(down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.down = down
}

// Dials returns how many dials were attempted.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Accept waits up to timeout for the server end of the next connection.
func (d *Dialer) Accept(timeout time.Duration) (*Conn, error) {
	select {
	case c := <-d.Accepted:
		return c, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}
