package net

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"LiveBoard/internal/state"
)

// ErrTransportUnavailable is returned when an outbound event is dropped
// because the client is not connected. Dropped events are not queued.
var ErrTransportUnavailable = errors.New("transport unavailable")

// Defaults match the reconnection policy of the web client.
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultHandshakeTimeout  = 5 * time.Second

	inboundBuffer = 64
)

// Options configures connection behavior.
type Options struct {
	ReconnectAttempts int           // retries per outage; after that the client stays disconnected
	ReconnectDelay    time.Duration // fixed delay between retries
	HandshakeTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return o
}

// Inbound is one item from the connection loop: a peer event, or a
// lifecycle event that may carry the new Conn or the failure cause.
type Inbound struct {
	Event Event
	Err   error
	conn  Conn
}

// Client translates between local mutations and the transport, and owns the
// connection state machine.
//
// Start, Handle, Emit*, State and Rejoin must be called from the single
// goroutine that drains Inbound. Only the connection loop runs elsewhere,
// and it talks to that goroutine exclusively through the Inbound channel.
type Client struct {
	dialer Dialer
	roomID string
	user   state.User
	opts   Options
	logger *slog.Logger

	machine       *Machine
	conn          Conn
	awaitingBatch bool
	looping       bool

	inbound   chan Inbound
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewClient creates a client for one room. Nothing is dialed until Start.
func NewClient(dialer Dialer, roomID string, user state.User, opts Options, logger *slog.Logger) *Client {
	return &Client{
		dialer:  dialer,
		roomID:  roomID,
		user:    user,
		opts:    opts.withDefaults(),
		logger:  logger.With(slog.String("component", "sync_client"), slog.String("room", roomID)),
		machine: NewMachine(),
		inbound: make(chan Inbound, inboundBuffer),
	}
}

// Inbound delivers peer and lifecycle events in arrival order.
func (c *Client) Inbound() <-chan Inbound {
	return c.inbound
}

// State returns the connection state.
func (c *Client) State() ConnState {
	return c.machine.State()
}

// Start begins the join attempt. The connection loop stops when ctx is
// cancelled or Close is called.
func (c *Client) Start(ctx context.Context) error {
	if c.ctx != nil {
		return errors.New("client already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c.launch()
}

// Rejoin restarts the connection loop after the retry budget ran out. It
// is a no-op while a loop is still running.
func (c *Client) Rejoin() error {
	if c.ctx == nil {
		return errors.New("client not started")
	}
	if c.looping || c.ctx.Err() != nil {
		return nil
	}
	return c.launch()
}

func (c *Client) launch() error {
	if err := c.machine.Begin(); err != nil {
		return err
	}
	c.looping = true
	c.wg.Add(1)
	go c.run(c.ctx)
	c.logger.Info("joining room", slog.String("user", c.user.ID))
	return nil
}

// Close stops the connection loop, including any pending retry, and closes
// the live connection. Events still buffered in Inbound are abandoned.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.machine.Reset()
		c.logger.Info("sync client closed")
	})
}

// Handle processes one Inbound item. Lifecycle events drive the state
// machine; peer events are passed back for the caller to apply. The bool is
// false when the event was consumed or must be ignored.
func (c *Client) Handle(in Inbound) (Event, bool) {
	ev := in.Event
	if !ev.Name.IsLifecycle() {
		if c.awaitingBatch && ev.Name.IsIncremental() {
			c.logger.Debug("ignoring incremental event before batch", slog.String("event", string(ev.Name)))
			return Event{}, false
		}
		if ev.Name == EventElementsBatch {
			c.awaitingBatch = false
		}
		return ev, true
	}

	from := c.machine.State()
	to, err := c.machine.Handle(ev.Name)
	if err != nil {
		c.logger.Warn("ignoring lifecycle event", slog.String("error", err.Error()))
		if in.conn != nil {
			_ = in.conn.Close()
		}
		return Event{}, false
	}
	c.logger.Info("connection state", slog.String("event", string(ev.Name)),
		slog.String("from", string(from)), slog.String("to", string(to)))

	switch ev.Name {
	case EventConnect, EventReconnect:
		c.conn = in.conn
		c.awaitingBatch = true
		join := JoinPayload{RoomID: c.roomID, UserID: c.user.ID, User: &c.user}
		if err := c.emit(EventJoin, join); err != nil {
			c.logger.Error("send join", slog.String("error", err.Error()))
		}
	case EventDisconnect, EventConnectError, EventReconnectError:
		c.conn = nil
		if in.Err != nil {
			c.logger.Warn("connection lost", slog.String("error", in.Err.Error()))
		}
	case EventReconnectFailed:
		c.looping = false
		c.logger.Warn("reconnection attempts exhausted", slog.Int("attempts", c.opts.ReconnectAttempts))
	}
	return ev, true
}

// EmitCreated broadcasts a local create.
func (c *Client) EmitCreated(el state.DrawingElement) error {
	return c.emit(EventElementCreated, el)
}

// EmitUpdated broadcasts a local update.
func (c *Client) EmitUpdated(el state.DrawingElement) error {
	return c.emit(EventElementUpdated, el)
}

// EmitDeleted broadcasts a local delete.
func (c *Client) EmitDeleted(id string) error {
	return c.emit(EventElementDeleted, id)
}

// EmitCursor broadcasts the local user's cursor.
func (c *Client) EmitCursor(at state.Point) error {
	return c.emit(EventUserCursor, state.CursorUpdate{UserID: c.user.ID, Cursor: at})
}

// EmitMutation broadcasts a mutation produced by undo or redo.
func (c *Client) EmitMutation(m state.Mutation) error {
	switch m.Kind {
	case state.MutationCreate:
		return c.EmitCreated(m.Element)
	case state.MutationUpdate:
		return c.EmitUpdated(m.Element)
	case state.MutationDelete:
		return c.EmitDeleted(m.Element.ID)
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}

func (c *Client) emit(name EventName, payload any) error {
	if c.machine.State() != StateConnected || c.conn == nil {
		c.logger.Warn("dropping outbound event", slog.String("event", string(name)),
			slog.String("state", string(c.machine.State())))
		return ErrTransportUnavailable
	}
	ev, err := NewEvent(name, payload)
	if err != nil {
		return err
	}
	if err := c.conn.Send(ev); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	c.logger.Debug("sent", slog.String("event", string(name)))
	return nil
}

// run is the connection loop. It dials, pumps peer events into Inbound and
// retries a bounded number of times with a fixed delay after every outage.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	attempts := 0
	for {
		conn, err := c.dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err == nil {
			name := EventConnect
			if attempts > 0 {
				name = EventReconnect
			}
			attempts = 0
			if !c.push(ctx, Inbound{Event: Event{Name: name}, conn: conn}) {
				_ = conn.Close()
				return
			}
			readErr := c.read(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			if !c.push(ctx, Inbound{Event: Event{Name: EventDisconnect}, Err: readErr}) {
				return
			}
		} else {
			name := EventConnectError
			if attempts > 0 {
				name = EventReconnectError
			}
			if !c.push(ctx, Inbound{Event: Event{Name: name}, Err: err}) {
				return
			}
		}

		if attempts >= c.opts.ReconnectAttempts {
			c.push(ctx, Inbound{Event: Event{Name: EventReconnectFailed}})
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.opts.ReconnectDelay):
		}
		attempts++
		if !c.push(ctx, Inbound{Event: Event{Name: EventReconnectAttempt}}) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()
	return c.dialer.Dial(dialCtx)
}

// read forwards peer events until the connection fails or ctx ends.
func (c *Client) read(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		ev, err := conn.Receive()
		if err != nil {
			return err
		}
		if ev.Name.IsLifecycle() || ev.Name == EventJoin {
			c.logger.Warn("peer sent reserved event", slog.String("event", string(ev.Name)))
			continue
		}
		if !c.push(ctx, Inbound{Event: ev}) {
			return ctx.Err()
		}
	}
}

func (c *Client) push(ctx context.Context, in Inbound) bool {
	select {
	case c.inbound <- in:
		return true
	case <-ctx.Done():
		return false
	}
}
