package state

import "slices"

// ElementStore is the canonical id -> element mapping for one room.
//
// It does no locking: a client mutates it from a single dispatcher
// goroutine, and the relay guards each room's store with the room lock.
// Elements go in and come out as copies, so nothing outside the store can
// alias its point slices.
type ElementStore struct {
	elements map[string]DrawingElement
	order    []string // insertion order, for stable iteration
}

// NewElementStore creates an empty store.
func NewElementStore() *ElementStore {
	return &ElementStore{elements: make(map[string]DrawingElement)}
}

// Create inserts a new element. It never overwrites: an existing id is
// ErrDuplicateID, since create and update resolve conflicts differently.
func (s *ElementStore) Create(el DrawingElement) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if _, exists := s.elements[el.ID]; exists {
		return ErrDuplicateID
	}
	s.insert(el)
	return nil
}

// Update replaces the stored element only if el.Updated is strictly greater
// than the stored Updated; ties keep the stored value. An update for an id
// that is not stored is promoted to an insert, which covers an update racing
// ahead of its create. The bool reports whether the store changed.
func (s *ElementStore) Update(el DrawingElement) (bool, error) {
	if err := el.Validate(); err != nil {
		return false, err
	}
	stored, exists := s.elements[el.ID]
	if !exists {
		s.insert(el)
		return true, nil
	}
	if el.Updated <= stored.Updated {
		return false, nil
	}
	s.elements[el.ID] = el.Clone()
	return true, nil
}

// Put stores el unconditionally, inserting or replacing. Undo and redo use
// it because a local history replay always wins locally.
func (s *ElementStore) Put(el DrawingElement) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if _, exists := s.elements[el.ID]; exists {
		s.elements[el.ID] = el.Clone()
		return nil
	}
	s.insert(el)
	return nil
}

// Delete removes id if present. Deleting a missing id is a no-op; the bool
// reports whether anything was removed.
func (s *ElementStore) Delete(id string) bool {
	if _, exists := s.elements[id]; !exists {
		return false
	}
	delete(s.elements, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// ReplaceAll swaps the whole mapping for the given batch without any
// timestamp comparison. Invalid elements are dropped and counted; for a
// repeated id the last occurrence wins.
func (s *ElementStore) ReplaceAll(elements []DrawingElement) (skipped int) {
	s.elements = make(map[string]DrawingElement, len(elements))
	s.order = make([]string, 0, len(elements))
	for _, el := range elements {
		if err := s.Put(el); err != nil {
			skipped++
		}
	}
	return skipped
}

// Get returns a copy of the element with the given id.
func (s *ElementStore) Get(id string) (DrawingElement, bool) {
	el, ok := s.elements[id]
	if !ok {
		return DrawingElement{}, false
	}
	return el.Clone(), true
}

// All returns a snapshot in insertion order.
func (s *ElementStore) All() []DrawingElement {
	out := make([]DrawingElement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id].Clone())
	}
	return out
}

// Len returns the number of stored elements.
func (s *ElementStore) Len() int {
	return len(s.order)
}

func (s *ElementStore) insert(el DrawingElement) {
	s.elements[el.ID] = el.Clone()
	s.order = append(s.order, el.ID)
}
