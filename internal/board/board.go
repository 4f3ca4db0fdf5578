package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/state"
)

// ErrNoRoom is returned when no room has been joined.
var ErrNoRoom = errors.New("not in a room")

// Board is the surface the UI layer talks to. It holds at most one room
// session and fully tears the old one down before opening the next, so a
// late event from the previous room can never reach the new room's state.
type Board struct {
	ctx    context.Context
	dialer boardnet.Dialer
	user   state.User
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// New creates a board for user. Sessions live until ctx ends or Close.
func New(ctx context.Context, dialer boardnet.Dialer, user state.User, cfg Config, logger *slog.Logger) *Board {
	return &Board{
		ctx:    ctx,
		dialer: dialer,
		user:   user,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "board"), slog.String("user", user.ID)),
	}
}

// User returns the local identity.
func (b *Board) User() state.User { return b.user }

// JoinRoom switches to roomID, discarding all state of the previous room.
func (b *Board) JoinRoom(roomID string) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.logger.Info("switching rooms", slog.String("from", b.current.roomID), slog.String("to", roomID))
		b.current.Close()
	}
	b.current = newSession(b.ctx, b.dialer, roomID, b.user, b.cfg, b.logger)
	return b.current
}

// Leave tears down the current room, if any.
func (b *Board) Leave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.Close()
		b.current = nil
	}
}

// Close is Leave; the board can be reused with JoinRoom.
func (b *Board) Close() { b.Leave() }

// Session returns the current room session.
func (b *Board) Session() (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil, ErrNoRoom
	}
	return b.current, nil
}

// State returns the current connection state; disconnected outside a room.
func (b *Board) State() boardnet.ConnState {
	s, err := b.Session()
	if err != nil {
		return boardnet.StateDisconnected
	}
	return s.State()
}

// Create adds an element to the current room.
func (b *Board) Create(el state.DrawingElement) (state.DrawingElement, error) {
	s, err := b.Session()
	if err != nil {
		return state.DrawingElement{}, err
	}
	return s.CreateElement(el)
}

// Update replaces an element in the current room.
func (b *Board) Update(el state.DrawingElement) (state.DrawingElement, error) {
	s, err := b.Session()
	if err != nil {
		return state.DrawingElement{}, err
	}
	return s.UpdateElement(el)
}

// Delete removes an element from the current room.
func (b *Board) Delete(id string) error {
	s, err := b.Session()
	if err != nil {
		return err
	}
	return s.DeleteElement(id)
}

// Elements returns the current room's elements.
func (b *Board) Elements() []state.DrawingElement {
	s, err := b.Session()
	if err != nil {
		return nil
	}
	return s.Elements()
}

// Undo reverses the latest local edit in the current room.
func (b *Board) Undo() (state.Mutation, error) {
	s, err := b.Session()
	if err != nil {
		return state.Mutation{}, err
	}
	return s.Undo()
}

// Redo reapplies the latest undone edit in the current room.
func (b *Board) Redo() (state.Mutation, error) {
	s, err := b.Session()
	if err != nil {
		return state.Mutation{}, err
	}
	return s.Redo()
}
