package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRemoveDropsCursor(t *testing.T) {
	p := NewPresence()
	p.UpsertUser(User{ID: "u1", Name: "SwiftFox"})
	p.UpsertUser(User{ID: "u2", Name: "BoldOwl"})
	require.True(t, p.UpdateCursor("u1", Point{X: 3, Y: 4}))
	require.True(t, p.UpdateCursor("u2", Point{X: 1, Y: 1}))

	assert.True(t, p.RemoveUser("u1"))
	assert.Equal(t, []CursorUpdate{{UserID: "u2", Cursor: Point{X: 1, Y: 1}}}, p.Cursors())
	assert.False(t, p.RemoveUser("u1"))

	// Re-joining starts without the stale cursor.
	p.UpsertUser(User{ID: "u1"})
	assert.Len(t, p.Cursors(), 1)
}

func TestPresenceUpsertReplacesProfile(t *testing.T) {
	p := NewPresence()
	p.UpsertUser(User{ID: "u1", Name: "old", Color: "#FF6B6B"})
	p.UpsertUser(User{ID: "u2", Name: "other"})
	p.UpsertUser(User{ID: "u1", Name: "new", Color: "#4ECDC4"})

	users := p.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "new", users[0].Name)
	assert.Equal(t, "#4ECDC4", users[0].Color)
}

func TestPresenceIgnoresCursorOfUnknownUser(t *testing.T) {
	p := NewPresence()
	assert.False(t, p.UpdateCursor("ghost", Point{X: 1}))
	assert.Empty(t, p.Cursors())
}

func TestClockIsMonotonicAndObservesPeers(t *testing.T) {
	wall := time.UnixMilli(500)
	c := NewClockAt(func() time.Time { return wall })

	assert.Equal(t, int64(500), c.Tick())
	assert.Equal(t, int64(501), c.Tick(), "same wall millisecond still advances")

	wall = time.UnixMilli(100)
	assert.Equal(t, int64(502), c.Tick(), "wall clock going backwards is ignored")

	c.Observe(10_000)
	assert.Equal(t, int64(10_001), c.Tick())
	c.Observe(5)
	assert.Equal(t, int64(10_001), c.Last())
}

func TestNewUserFillsGeneratedProfile(t *testing.T) {
	u := NewUser("", "")
	assert.NotEmpty(t, u.ID)
	assert.NotEmpty(t, u.Name)
	assert.Contains(t, userColors, u.Color)
	assert.True(t, u.IsActive)

	named := NewUser("Ada", "#000000")
	assert.Equal(t, "Ada", named.Name)
	assert.Equal(t, "#000000", named.Color)
	assert.NotEqual(t, u.ID, named.ID)
}
