package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture applies local edits the way a session does: store first, then record.
type fixture struct {
	store   *ElementStore
	clock   *Clock
	history *History
}

func newFixture(depth int) *fixture {
	store := NewElementStore()
	clock := NewClockAt(func() time.Time { return time.UnixMilli(1000) })
	return &fixture{store: store, clock: clock, history: NewHistory(store, clock, depth)}
}

func (f *fixture) create(t *testing.T, id string, x float64) DrawingElement {
	t.Helper()
	ts := f.clock.Tick()
	el := DrawingElement{ID: id, Type: ElementRect, Points: []Point{{X: x, Y: x}, {X: x + 10, Y: x + 10}}, Created: ts, Updated: ts}
	require.NoError(t, f.store.Create(el))
	f.history.RecordCreate(el)
	return el
}

func (f *fixture) move(t *testing.T, id string, dx float64) {
	t.Helper()
	prior, ok := f.store.Get(id)
	require.True(t, ok)
	next := prior.Translate(dx, 0)
	next.Updated = f.clock.Tick()
	changed, err := f.store.Update(next)
	require.NoError(t, err)
	require.True(t, changed)
	f.history.RecordUpdate(prior, next)
}

func (f *fixture) remove(t *testing.T, id string) {
	t.Helper()
	prior, ok := f.store.Get(id)
	require.True(t, ok)
	f.store.Delete(id)
	f.history.RecordDelete(prior)
}

// assertRestored checks that after holds the same elements as before with
// identical content. Replays restamp Updated, so it may only move forward.
func assertRestored(t *testing.T, before, after []DrawingElement) {
	t.Helper()
	require.Len(t, after, len(before))
	for i, want := range before {
		got := after[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Points, got.Points, want.ID)
		assert.Equal(t, want.Style, got.Style, want.ID)
		assert.Equal(t, want.Text, got.Text, want.ID)
		assert.Equal(t, want.OwnerID, got.OwnerID, want.ID)
		assert.Equal(t, want.Created, got.Created, want.ID)
		assert.GreaterOrEqual(t, got.Updated, want.Updated, want.ID)
	}
}

func TestUndoRedoInverseLaw(t *testing.T) {
	f := newFixture(0)
	f.create(t, "a", 0)
	f.create(t, "b", 50)
	f.move(t, "a", 5)
	f.remove(t, "b")
	f.move(t, "a", 7)
	f.create(t, "c", 100)

	before := f.store.All()
	const n = 6
	for i := 0; i < n; i++ {
		_, err := f.history.Undo()
		require.NoError(t, err, "undo %d", i)
	}
	assert.Empty(t, f.store.All())

	for i := 0; i < n; i++ {
		_, err := f.history.Redo()
		require.NoError(t, err, "redo %d", i)
	}
	assertRestored(t, before, f.store.All())
}

func TestUndoReturnsMutationToBroadcast(t *testing.T) {
	f := newFixture(0)
	a := f.create(t, "a", 0)
	f.move(t, "a", 5)
	moved, _ := f.store.Get("a")

	m, err := f.history.Undo()
	require.NoError(t, err)
	assert.Equal(t, MutationUpdate, m.Kind)
	assert.Equal(t, a.Points, m.Element.Points)
	assert.Greater(t, m.Element.Updated, moved.Updated, "replayed value must win at peers")

	m, err = f.history.Undo()
	require.NoError(t, err)
	assert.Equal(t, MutationDelete, m.Kind)
	assert.Equal(t, "a", m.Element.ID)

	m, err = f.history.Redo()
	require.NoError(t, err)
	assert.Equal(t, MutationCreate, m.Kind)
	got, ok := f.store.Get("a")
	require.True(t, ok)
	assert.Equal(t, m.Element, got)
}

func TestEmptyHistoryReportsNothingToDo(t *testing.T) {
	f := newFixture(0)
	_, err := f.history.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
	_, err = f.history.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestNewEditInvalidatesRedo(t *testing.T) {
	f := newFixture(0)
	f.create(t, "a", 0)
	f.create(t, "b", 10)

	_, err := f.history.Undo()
	require.NoError(t, err)
	require.True(t, f.history.CanRedo())

	f.move(t, "a", 3)
	assert.False(t, f.history.CanRedo())
	_, err = f.history.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestHistoryEvictsOldestBeyondDepth(t *testing.T) {
	f := newFixture(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		f.create(t, id, 0)
	}

	for i := 0; i < 3; i++ {
		_, err := f.history.Undo()
		require.NoError(t, err)
	}
	_, err := f.history.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	var ids []string
	for _, el := range f.store.All() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestHistoryIsNotCorruptedByRemoteOverwrite(t *testing.T) {
	f := newFixture(0)
	f.create(t, "a", 0)
	original, _ := f.store.Get("a")

	// A peer's newer edit lands in the store but not in the history.
	remote := original.Translate(500, 500)
	remote.Updated = original.Updated + 1000
	changed, err := f.store.Update(remote)
	require.NoError(t, err)
	require.True(t, changed)
	f.clock.Observe(remote.Updated)

	f.move(t, "a", 1)
	_, err = f.history.Undo()
	require.NoError(t, err)

	got, _ := f.store.Get("a")
	assert.Equal(t, remote.Points, got.Points, "undo restores the value this client replaced")
}

func TestUndoWinsOverNewerStoredValue(t *testing.T) {
	f := newFixture(0)
	f.create(t, "a", 0)

	stored, _ := f.store.Get("a")
	stored.Updated += 1_000_000
	_, err := f.store.Update(stored)
	require.NoError(t, err)

	_, err = f.history.Undo()
	require.NoError(t, err)
	_, ok := f.store.Get("a")
	assert.False(t, ok)
}

func TestRingEvictsOldest(t *testing.T) {
	r := newRing[int](2)
	assert.False(t, r.push(1))
	assert.False(t, r.push(2))
	assert.True(t, r.push(3))

	v, ok := r.pop()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	v, _ = r.pop()
	assert.Equal(t, 2, v)
	_, ok = r.pop()
	assert.False(t, ok)
}
