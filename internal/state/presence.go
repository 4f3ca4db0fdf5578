package state

import "slices"

// Presence tracks who is in the room and where their cursors are. Every
// field is last-write-wins and staleness is tolerated.
type Presence struct {
	users   map[string]User
	order   []string
	cursors map[string]Point
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{
		users:   make(map[string]User),
		cursors: make(map[string]Point),
	}
}

// UpsertUser adds u or replaces the stored profile with the same id.
func (p *Presence) UpsertUser(u User) {
	if _, ok := p.users[u.ID]; !ok {
		p.order = append(p.order, u.ID)
	}
	p.users[u.ID] = u
}

// RemoveUser drops the user and its cursor. Unknown ids are ignored.
func (p *Presence) RemoveUser(id string) bool {
	delete(p.cursors, id)
	if _, ok := p.users[id]; !ok {
		return false
	}
	delete(p.users, id)
	if i := slices.Index(p.order, id); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return true
}

// UpdateCursor sets the cursor of a known user. Cursors for users that have
// not joined are dropped so a late cursor cannot resurrect a departed user.
func (p *Presence) UpdateCursor(userID string, at Point) bool {
	if _, ok := p.users[userID]; !ok {
		return false
	}
	p.cursors[userID] = at
	return true
}

// User returns the profile for id.
func (p *Presence) User(id string) (User, bool) {
	u, ok := p.users[id]
	return u, ok
}

// Users returns the members in join order.
func (p *Presence) Users() []User {
	out := make([]User, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.users[id])
	}
	return out
}

// Cursors returns the last known cursor of each user that has one.
func (p *Presence) Cursors() []CursorUpdate {
	out := make([]CursorUpdate, 0, len(p.cursors))
	for _, id := range p.order {
		if at, ok := p.cursors[id]; ok {
			out = append(out, CursorUpdate{UserID: id, Cursor: at})
		}
	}
	return out
}
