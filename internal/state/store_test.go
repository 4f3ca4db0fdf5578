package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func element(id string, updated int64, pts ...Point) DrawingElement {
	if len(pts) == 0 {
		pts = []Point{{X: 0, Y: 0}}
	}
	return DrawingElement{
		ID:      id,
		Type:    ElementPen,
		Points:  pts,
		Style:   Style{StrokeColor: "#000000", StrokeWidth: 2, Opacity: 1},
		Created: 1,
		Updated: updated,
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := NewElementStore()
	require.NoError(t, s.Create(element("e1", 10)))

	err := s.Create(element("e1", 20))
	assert.ErrorIs(t, err, ErrDuplicateID)

	got, ok := s.Get("e1")
	require.True(t, ok)
	assert.Equal(t, int64(10), got.Updated)
}

func TestCreateRejectsInvalidElements(t *testing.T) {
	s := NewElementStore()

	noPoints := element("e1", 10)
	noPoints.Points = nil
	assert.ErrorIs(t, s.Create(noPoints), ErrInvalidElement)

	backwards := element("e2", 10)
	backwards.Created = 11
	assert.ErrorIs(t, s.Create(backwards), ErrInvalidElement)

	badType := element("e3", 10)
	badType.Type = "blob"
	assert.ErrorIs(t, s.Create(badType), ErrInvalidElement)

	assert.Equal(t, 0, s.Len())
}

func TestUpdateTimestampGating(t *testing.T) {
	a := element("e1", 100, Point{X: 1, Y: 1})
	b := element("e1", 50, Point{X: 2, Y: 2})

	t.Run("stale update after newer is ignored", func(t *testing.T) {
		s := NewElementStore()
		require.NoError(t, s.Create(a))

		changed, err := s.Update(b)
		require.NoError(t, err)
		assert.False(t, changed)

		got, _ := s.Get("e1")
		assert.Equal(t, a, got)
	})

	t.Run("newer update after stale wins", func(t *testing.T) {
		s := NewElementStore()
		_, err := s.Update(b)
		require.NoError(t, err)

		changed, err := s.Update(a)
		require.NoError(t, err)
		assert.True(t, changed)

		got, _ := s.Get("e1")
		assert.Equal(t, a, got)
	})

	t.Run("tie keeps stored value", func(t *testing.T) {
		s := NewElementStore()
		require.NoError(t, s.Create(a))

		tie := element("e1", 100, Point{X: 9, Y: 9})
		changed, err := s.Update(tie)
		require.NoError(t, err)
		assert.False(t, changed)

		got, _ := s.Get("e1")
		assert.Equal(t, a.Points, got.Points)
	})
}

func TestUpdatePromotesMissingIDToInsert(t *testing.T) {
	s := NewElementStore()
	x := element("x", 7)

	changed, err := s.Update(x)
	require.NoError(t, err)
	assert.True(t, changed)

	got, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, x, got)
}

func TestUpdateRejectsEmptyPoints(t *testing.T) {
	s := NewElementStore()
	require.NoError(t, s.Create(element("e1", 1)))

	empty := element("e1", 5)
	empty.Points = []Point{}
	changed, err := s.Update(empty)
	assert.ErrorIs(t, err, ErrInvalidElement)
	assert.False(t, changed)

	got, _ := s.Get("e1")
	assert.Len(t, got.Points, 1)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewElementStore()
	require.NoError(t, s.Create(element("e1", 1)))
	require.NoError(t, s.Create(element("e2", 1)))

	assert.True(t, s.Delete("e1"))
	once := s.All()

	assert.False(t, s.Delete("e1"))
	assert.Equal(t, once, s.All())

	assert.False(t, s.Delete("never-existed"))
	assert.Equal(t, 1, s.Len())
}

func TestReplaceAllBypassesTimestamps(t *testing.T) {
	s := NewElementStore()
	require.NoError(t, s.Create(element("e1", 100)))
	require.NoError(t, s.Create(element("local-only", 100)))

	invalid := element("bad", 1)
	invalid.Points = nil
	skipped := s.ReplaceAll([]DrawingElement{element("e1", 5), element("e3", 6), invalid})

	assert.Equal(t, 1, skipped)
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].ID)
	assert.Equal(t, int64(5), all[0].Updated)
	assert.Equal(t, "e3", all[1].ID)
	_, ok := s.Get("local-only")
	assert.False(t, ok)
}

func TestAllIsStableInsertionOrder(t *testing.T) {
	s := NewElementStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(element(id, 1)))
	}
	_, err := s.Update(element("a", 2))
	require.NoError(t, err)
	s.Delete("c")
	require.NoError(t, s.Create(element("c", 1)))

	var ids []string
	for _, el := range s.All() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewElementStore()
	el := element("e1", 1, Point{X: 1, Y: 1})
	require.NoError(t, s.Create(el))

	el.Points[0].X = 99
	got, _ := s.Get("e1")
	assert.Equal(t, 1.0, got.Points[0].X)

	got.Points[0].X = 42
	again, _ := s.Get("e1")
	assert.Equal(t, 1.0, again.Points[0].X)
}
