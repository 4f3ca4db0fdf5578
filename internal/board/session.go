package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/state"
)

// ErrSessionClosed is returned by calls on a session that was torn down.
var ErrSessionClosed = errors.New("session closed")

// Config tunes every session a Board opens.
type Config struct {
	Options      boardnet.Options
	HistoryDepth int

	// Now is the wall clock behind element timestamps. Nil means time.Now.
	Now func() time.Time

	// OnEvent, if set, is called on the dispatcher goroutine after each
	// inbound event has been applied. It must not call back into the session.
	OnEvent func(ev boardnet.Event, st boardnet.ConnState)
}

// Session is one room: its element store, undo history, presence and sync
// client. All of it is owned by a single dispatcher goroutine; public
// methods hand work to that goroutine and wait for the result, so the
// state itself needs no locks.
type Session struct {
	roomID string
	user   state.User
	cfg    Config
	logger *slog.Logger

	clock    *state.Clock
	store    *state.ElementStore
	history  *state.History
	presence *state.Presence
	client   *boardnet.Client

	ops       chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(parent context.Context, dialer boardnet.Dialer, roomID string, user state.User, cfg Config, logger *slog.Logger) *Session {
	logger = logger.With(slog.String("component", "session"), slog.String("room", roomID))
	clock := state.NewClock()
	if cfg.Now != nil {
		clock = state.NewClockAt(cfg.Now)
	}
	store := state.NewElementStore()
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		roomID:   roomID,
		user:     user,
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		store:    store,
		history:  state.NewHistory(store, clock, cfg.HistoryDepth),
		presence: state.NewPresence(),
		client:   boardnet.NewClient(dialer, roomID, user, cfg.Options, logger),
		ops:      make(chan func()),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// RoomID returns the room this session belongs to.
func (s *Session) RoomID() string { return s.roomID }

// Close tears the room down: the dispatcher stops, then the connection
// loop and any pending reconnection are stopped. Events that arrive
// afterwards are never applied.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.client.Close()
		s.logger.Info("left room")
	})
}

func (s *Session) run() {
	defer close(s.done)
	if err := s.client.Start(s.ctx); err != nil {
		s.logger.Error("start sync client", slog.String("error", err.Error()))
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case op := <-s.ops:
			op()
		case in := <-s.client.Inbound():
			s.handle(in)
		}
	}
}

// do runs fn on the dispatcher goroutine and waits for it.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.ops <- func() { defer close(finished); fn() }:
	case <-s.done:
		return ErrSessionClosed
	}
	<-finished
	return nil
}

// CreateElement stamps, stores, records and broadcasts a new element. An
// empty ID is filled in. Broadcast failures do not fail the call.
func (s *Session) CreateElement(el state.DrawingElement) (state.DrawingElement, error) {
	var out state.DrawingElement
	var err error
	if derr := s.do(func() { out, err = s.createElement(el) }); derr != nil {
		return state.DrawingElement{}, derr
	}
	return out, err
}

// UpdateElement replaces a stored element with el, keeping its creation
// stamp. Clearing the text of a text element deletes it.
func (s *Session) UpdateElement(el state.DrawingElement) (state.DrawingElement, error) {
	var out state.DrawingElement
	var err error
	if derr := s.do(func() { out, err = s.updateElement(el) }); derr != nil {
		return state.DrawingElement{}, derr
	}
	return out, err
}

// MoveElement translates an element by dx, dy.
func (s *Session) MoveElement(id string, dx, dy float64) (state.DrawingElement, error) {
	var out state.DrawingElement
	var err error
	derr := s.do(func() {
		prior, ok := s.store.Get(id)
		if !ok {
			err = fmt.Errorf("move %s: %w", id, state.ErrUnknownElement)
			return
		}
		out, err = s.updateElement(prior.Translate(dx, dy))
	})
	if derr != nil {
		return state.DrawingElement{}, derr
	}
	return out, err
}

// DeleteElement removes an element. Deleting a missing id is a no-op.
func (s *Session) DeleteElement(id string) error {
	var err error
	if derr := s.do(func() { err = s.deleteElement(id) }); derr != nil {
		return derr
	}
	return err
}

// Undo reverses the latest local mutation and broadcasts the result.
func (s *Session) Undo() (state.Mutation, error) {
	return s.replay((*state.History).Undo)
}

// Redo reapplies the latest undone mutation and broadcasts the result.
func (s *Session) Redo() (state.Mutation, error) {
	return s.replay((*state.History).Redo)
}

func (s *Session) replay(step func(*state.History) (state.Mutation, error)) (state.Mutation, error) {
	var m state.Mutation
	var err error
	derr := s.do(func() {
		m, err = step(s.history)
		if err != nil {
			return
		}
		s.broadcast(s.client.EmitMutation(m))
	})
	if derr != nil {
		return state.Mutation{}, derr
	}
	return m, err
}

// MoveCursor broadcasts the local cursor. It is never stored or recorded.
func (s *Session) MoveCursor(at state.Point) error {
	return s.do(func() { s.broadcast(s.client.EmitCursor(at)) })
}

// Rejoin restarts the connection after reconnection attempts ran out.
func (s *Session) Rejoin() error {
	var err error
	if derr := s.do(func() { err = s.client.Rejoin() }); derr != nil {
		return derr
	}
	return err
}

// Elements returns the room's elements in insertion order.
func (s *Session) Elements() []state.DrawingElement {
	var out []state.DrawingElement
	_ = s.do(func() { out = s.store.All() })
	return out
}

// Element returns one element by id.
func (s *Session) Element(id string) (state.DrawingElement, bool) {
	var el state.DrawingElement
	var ok bool
	_ = s.do(func() { el, ok = s.store.Get(id) })
	return el, ok
}

// Users returns the other members of the room.
func (s *Session) Users() []state.User {
	var out []state.User
	_ = s.do(func() { out = s.presence.Users() })
	return out
}

// Cursors returns the last known cursors of the other members.
func (s *Session) Cursors() []state.CursorUpdate {
	var out []state.CursorUpdate
	_ = s.do(func() { out = s.presence.Cursors() })
	return out
}

// State returns the connection state. A closed session is disconnected.
func (s *Session) State() boardnet.ConnState {
	st := boardnet.StateDisconnected
	_ = s.do(func() { st = s.client.State() })
	return st
}

// CanUndo and CanRedo report whether the history has entries.
func (s *Session) CanUndo() bool {
	var ok bool
	_ = s.do(func() { ok = s.history.CanUndo() })
	return ok
}

func (s *Session) CanRedo() bool {
	var ok bool
	_ = s.do(func() { ok = s.history.CanRedo() })
	return ok
}

func (s *Session) createElement(el state.DrawingElement) (state.DrawingElement, error) {
	el = el.Clone()
	if el.ID == "" {
		el.ID = state.NewElementID()
	}
	if el.OwnerID == "" {
		el.OwnerID = s.user.ID
	}
	ts := s.clock.Tick()
	el.Created, el.Updated = ts, ts
	if err := s.store.Create(el); err != nil {
		return state.DrawingElement{}, fmt.Errorf("create %s: %w", el.ID, err)
	}
	s.history.RecordCreate(el)
	s.broadcast(s.client.EmitCreated(el))
	return el, nil
}

func (s *Session) updateElement(el state.DrawingElement) (state.DrawingElement, error) {
	prior, ok := s.store.Get(el.ID)
	if !ok {
		return state.DrawingElement{}, fmt.Errorf("update %s: %w", el.ID, state.ErrUnknownElement)
	}
	if el.Type == state.ElementText && strings.TrimSpace(el.Text) == "" {
		return prior, s.deleteElement(el.ID)
	}
	el = el.Clone()
	el.Created = prior.Created
	if el.OwnerID == "" {
		el.OwnerID = prior.OwnerID
	}
	el.Updated = s.clock.Tick()
	changed, err := s.store.Update(el)
	if err != nil {
		return state.DrawingElement{}, fmt.Errorf("update %s: %w", el.ID, err)
	}
	if !changed {
		return state.DrawingElement{}, fmt.Errorf("update %s: stored value is newer", el.ID)
	}
	s.history.RecordUpdate(prior, el)
	s.broadcast(s.client.EmitUpdated(el))
	return el, nil
}

func (s *Session) deleteElement(id string) error {
	prior, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	s.store.Delete(id)
	s.history.RecordDelete(prior)
	s.broadcast(s.client.EmitDeleted(id))
	return nil
}

// broadcast logs a failed send. Local edits never fail because of the
// transport; peers catch up from the next batch.
func (s *Session) broadcast(err error) {
	switch {
	case err == nil:
	case errors.Is(err, boardnet.ErrTransportUnavailable):
		s.logger.Debug("edit kept local", slog.String("error", err.Error()))
	default:
		s.logger.Error("broadcast failed", slog.String("error", err.Error()))
	}
}

// handle applies one inbound item. Peer edits go straight to the store and
// presence and never touch the undo history.
func (s *Session) handle(in boardnet.Inbound) {
	if s.ctx.Err() != nil {
		return
	}
	ev, ok := s.client.Handle(in)
	if !ok {
		return
	}
	if err := s.apply(ev); err != nil {
		s.logger.Warn("dropping peer event", slog.String("event", string(ev.Name)), slog.String("error", err.Error()))
		return
	}
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(ev, s.client.State())
	}
}

func (s *Session) apply(ev boardnet.Event) error {
	switch ev.Name {
	case boardnet.EventConnect, boardnet.EventReconnect:
		// Members are re-announced after join, like the elements batch.
		s.presence = state.NewPresence()

	case boardnet.EventUserJoined:
		u, err := ev.User()
		if err != nil {
			return err
		}
		if u.ID != s.user.ID {
			s.presence.UpsertUser(u)
		}

	case boardnet.EventUserLeft:
		id, err := ev.ID()
		if err != nil {
			return err
		}
		s.presence.RemoveUser(id)

	case boardnet.EventUserCursor:
		c, err := ev.Cursor()
		if err != nil {
			return err
		}
		s.presence.UpdateCursor(c.UserID, c.Cursor)

	case boardnet.EventElementCreated:
		el, err := ev.Element()
		if err != nil {
			return err
		}
		s.clock.Observe(el.Updated)
		err = s.store.Create(el)
		if errors.Is(err, state.ErrDuplicateID) {
			_, err = s.store.Update(el)
		}
		return err

	case boardnet.EventElementUpdated:
		el, err := ev.Element()
		if err != nil {
			return err
		}
		s.clock.Observe(el.Updated)
		changed, err := s.store.Update(el)
		if err != nil {
			return err
		}
		if !changed {
			s.logger.Debug("stale update ignored", slog.String("element", el.ID), slog.Int64("updated", el.Updated))
		}

	case boardnet.EventElementDeleted:
		id, err := ev.ID()
		if err != nil {
			return err
		}
		s.store.Delete(id)

	case boardnet.EventElementsBatch:
		els, err := ev.Elements()
		if err != nil {
			return err
		}
		for _, el := range els {
			s.clock.Observe(el.Updated)
		}
		skipped := s.store.ReplaceAll(els)
		s.logger.Info("room state replaced", slog.Int("elements", s.store.Len()), slog.Int("skipped", skipped))
	}
	return nil
}
