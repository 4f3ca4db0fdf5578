package relay

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/state"
)

// member is one websocket connection. It belongs to at most one room.
type member struct {
	id     string
	conn   boardnet.Conn
	user   state.User
	roomID string
}

// room is the authoritative copy of one drawing. It lives while somebody
// is in it and for the grace period after the last member leaves.
type room struct {
	id      string
	store   *state.ElementStore
	members map[string]*member
	evict   *time.Timer
}

// Hub keeps every live room and fans events out to its members.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*room
	grace  time.Duration
	logger *slog.Logger
}

// NewHub returns an empty hub. Empty rooms are kept for grace; zero drops
// them with their last member.
func NewHub(logger *slog.Logger, grace time.Duration) *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		grace:  grace,
		logger: logger.With(slog.String("component", "hub")),
	}
}

// Join puts m into the requested room, sends it the room's elements and
// current members, and announces it to everyone else. A member that was
// already in another room leaves it first; joining the same room again only
// resends the room's state.
func (h *Hub) Join(m *member, p boardnet.JoinPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[m.roomID]; ok && m.roomID == p.RoomID {
		h.syncLocked(r, m)
		return
	}
	if m.roomID != "" {
		h.leaveLocked(m)
	}
	m.user = state.User{ID: p.UserID, Name: p.UserID}
	if p.User != nil {
		m.user = *p.User
		m.user.ID = p.UserID
	}
	m.user.IsActive = true
	m.user.JoinedAt = time.Now().UnixMilli()

	r, ok := h.rooms[p.RoomID]
	if !ok {
		r = &room{id: p.RoomID, store: state.NewElementStore(), members: make(map[string]*member)}
		h.rooms[p.RoomID] = r
		h.logger.Info("room opened", slog.String("room", r.id))
	}
	if r.evict != nil {
		r.evict.Stop()
		r.evict = nil
		h.logger.Info("room resumed", slog.String("room", r.id), slog.Int("elements", r.store.Len()))
	}
	r.members[m.id] = m
	m.roomID = r.id

	h.syncLocked(r, m)
	h.broadcastLocked(r, m, boardnet.EventUserJoined, m.user)
	h.logger.Info("member joined", slog.String("room", r.id), slog.String("user", m.user.ID),
		slog.Int("members", len(r.members)))
}

// syncLocked sends m the room's elements followed by the other members.
func (h *Hub) syncLocked(r *room, m *member) {
	h.sendLocked(m, boardnet.EventElementsBatch, r.store.All())
	for _, other := range r.members {
		if other.id != m.id {
			h.sendLocked(m, boardnet.EventUserJoined, other.user)
		}
	}
}

// Leave removes m from its room, if any. An emptied room is dropped after
// the hub's grace period unless somebody joins it first.
func (h *Hub) Leave(m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(m)
}

func (h *Hub) leaveLocked(m *member) {
	r, ok := h.rooms[m.roomID]
	m.roomID = ""
	if !ok {
		return
	}
	delete(r.members, m.id)
	h.broadcastLocked(r, m, boardnet.EventUserLeft, m.user.ID)
	h.logger.Info("member left", slog.String("room", r.id), slog.String("user", m.user.ID),
		slog.Int("members", len(r.members)))
	if len(r.members) > 0 {
		return
	}
	if h.grace <= 0 {
		h.closeLocked(r)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(h.grace, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		// A join may have stopped or replaced this timer after it fired.
		if r.evict == timer && h.rooms[r.id] == r {
			h.closeLocked(r)
		}
	})
	r.evict = timer
}

func (h *Hub) closeLocked(r *room) {
	delete(h.rooms, r.id)
	h.logger.Info("room closed", slog.String("room", r.id), slog.Int("elements", r.store.Len()))
}

// Apply handles an event from m. Element events are applied to the room's
// store first and forwarded only if they changed it, so stale or replayed
// writes stop at the relay.
func (h *Hub) Apply(m *member, ev boardnet.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[m.roomID]
	if !ok {
		return errNotJoined
	}

	switch ev.Name {
	case boardnet.EventElementCreated, boardnet.EventElementUpdated:
		el, err := ev.Element()
		if err != nil {
			return err
		}
		var changed bool
		if ev.Name == boardnet.EventElementCreated {
			err = r.store.Create(el)
			changed = err == nil
			if errors.Is(err, state.ErrDuplicateID) {
				changed, err = r.store.Update(el)
			}
		} else {
			changed, err = r.store.Update(el)
		}
		if err != nil {
			return err
		}
		if !changed {
			h.logger.Debug("stale write dropped", slog.String("room", r.id), slog.String("element", el.ID))
			return nil
		}
		h.forwardLocked(r, m, ev)

	case boardnet.EventElementDeleted:
		id, err := ev.ID()
		if err != nil {
			return err
		}
		if r.store.Delete(id) {
			h.forwardLocked(r, m, ev)
		}

	case boardnet.EventUserCursor:
		c, err := ev.Cursor()
		if err != nil {
			return err
		}
		c.UserID = m.user.ID
		h.broadcastLocked(r, m, boardnet.EventUserCursor, c)

	default:
		return errUnexpectedEvent
	}
	return nil
}

// Snapshot returns a live room's elements.
func (h *Hub) Snapshot(roomID string) ([]state.DrawingElement, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil, false
	}
	return r.store.All(), true
}

// Rooms returns the number of live rooms.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) sendLocked(m *member, name boardnet.EventName, payload any) {
	ev, err := boardnet.NewEvent(name, payload)
	if err != nil {
		h.logger.Error("encode event", slog.String("event", string(name)), slog.String("error", err.Error()))
		return
	}
	h.deliverLocked(m, ev)
}

func (h *Hub) broadcastLocked(r *room, from *member, name boardnet.EventName, payload any) {
	ev, err := boardnet.NewEvent(name, payload)
	if err != nil {
		h.logger.Error("encode event", slog.String("event", string(name)), slog.String("error", err.Error()))
		return
	}
	h.forwardLocked(r, from, ev)
}

// forwardLocked sends ev to every member of r except from.
func (h *Hub) forwardLocked(r *room, from *member, ev boardnet.Event) {
	for _, m := range r.members {
		if m.id != from.id {
			h.deliverLocked(m, ev)
		}
	}
}

// deliverLocked never blocks. A member whose buffer is full has fallen
// too far behind and is disconnected; it resyncs from the batch on rejoin.
// Closing writes a close frame to a possibly stalled socket, so it runs
// outside the hub lock.
func (h *Hub) deliverLocked(m *member, ev boardnet.Event) {
	if err := m.conn.Send(ev); err != nil {
		h.logger.Warn("dropping member", slog.String("member", m.id), slog.String("event", string(ev.Name)),
			slog.String("error", err.Error()))
		go m.conn.Close()
	}
}
