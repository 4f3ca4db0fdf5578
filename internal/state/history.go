package state

// DefaultHistoryDepth is how many local mutations can be undone before the
// oldest ones are dropped.
const DefaultHistoryDepth = 100

// MutationKind names a store operation.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Mutation is one applied store operation. For deletes only Element.ID is
// meaningful to peers.
type Mutation struct {
	Kind    MutationKind
	Element DrawingElement
}

type historyEntry struct {
	forward Mutation
	inverse Mutation
}

// History is the bounded, linear undo/redo record of local mutations.
//
// Entries hold copies of elements, never references into the store, so a
// later remote overwrite cannot change what an undo restores. Remote
// mutations must not be recorded here.
type History struct {
	store *ElementStore
	clock *Clock
	undo  *ring[historyEntry]
	redo  *ring[historyEntry]
}

// NewHistory creates an empty history over store. depth <= 0 means
// DefaultHistoryDepth.
func NewHistory(store *ElementStore, clock *Clock, depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{
		store: store,
		clock: clock,
		undo:  newRing[historyEntry](depth),
		redo:  newRing[historyEntry](depth),
	}
}

// RecordCreate records a local create; its inverse is a delete.
func (h *History) RecordCreate(el DrawingElement) {
	h.record(historyEntry{
		forward: Mutation{Kind: MutationCreate, Element: el.Clone()},
		inverse: Mutation{Kind: MutationDelete, Element: el.Clone()},
	})
}

// RecordUpdate records a local update; its inverse restores the full prior value.
func (h *History) RecordUpdate(prior, next DrawingElement) {
	h.record(historyEntry{
		forward: Mutation{Kind: MutationUpdate, Element: next.Clone()},
		inverse: Mutation{Kind: MutationUpdate, Element: prior.Clone()},
	})
}

// RecordDelete records a local delete; its inverse re-creates the prior value.
func (h *History) RecordDelete(prior DrawingElement) {
	h.record(historyEntry{
		forward: Mutation{Kind: MutationDelete, Element: prior.Clone()},
		inverse: Mutation{Kind: MutationCreate, Element: prior.Clone()},
	})
}

// Undo reverses the most recent local mutation directly on the store,
// bypassing the timestamp gate, and returns what was applied so the caller
// can broadcast it.
func (h *History) Undo() (Mutation, error) {
	entry, ok := h.undo.pop()
	if !ok {
		return Mutation{}, ErrNothingToUndo
	}
	applied, err := h.apply(entry.inverse)
	if err != nil {
		return Mutation{}, err
	}
	h.redo.push(entry)
	return applied, nil
}

// Redo reapplies the most recently undone mutation.
func (h *History) Redo() (Mutation, error) {
	entry, ok := h.redo.pop()
	if !ok {
		return Mutation{}, ErrNothingToRedo
	}
	applied, err := h.apply(entry.forward)
	if err != nil {
		return Mutation{}, err
	}
	h.undo.push(entry)
	return applied, nil
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return h.undo.len() > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return h.redo.len() > 0 }

func (h *History) record(entry historyEntry) {
	h.undo.push(entry)
	h.redo.clear()
}

// apply writes m to the store. Creates and updates get a fresh Updated so
// that peers, which gate on timestamps, accept the replayed value.
func (h *History) apply(m Mutation) (Mutation, error) {
	el := m.Element.Clone()
	switch m.Kind {
	case MutationDelete:
		h.store.Delete(el.ID)
	default:
		el.Updated = h.clock.Tick()
		if err := h.store.Put(el); err != nil {
			return Mutation{}, err
		}
	}
	return Mutation{Kind: m.Kind, Element: el}, nil
}
