package board

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/net/nettest"
	"LiveBoard/internal/state"

	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wallClock pins the milliseconds elements get stamped with.
type wallClock struct{ ms atomic.Int64 }

func (w *wallClock) now() time.Time { return time.UnixMilli(w.ms.Load()) }

// harness is one client whose relay is played by the test through the
// server end of an in-memory pipe.
type harness struct {
	dialer *nettest.Dialer
	events chan boardnet.Event
	clock  *wallClock
	board  *Board
}

func newHarness(t *testing.T, userID string, opts boardnet.Options) *harness {
	t.Helper()
	h := &harness{
		dialer: nettest.NewDialer(),
		events: make(chan boardnet.Event, 4096),
		clock:  &wallClock{},
	}
	h.clock.ms.Store(1)
	cfg := Config{
		Options: opts,
		Now:     h.clock.now,
		OnEvent: func(ev boardnet.Event, _ boardnet.ConnState) { h.events <- ev },
	}
	h.board = New(context.Background(), h.dialer, state.User{ID: userID, Name: userID}, cfg, newTestLogger())
	t.Cleanup(h.board.Close)
	return h
}

// waitFor blocks until the session has applied an event with the given name.
func (h *harness) waitFor(t *testing.T, name boardnet.EventName) boardnet.Event {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case ev := <-h.events:
			if ev.Name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", name)
		}
	}
}

// join opens roomID and answers the join with batch.
func (h *harness) join(t *testing.T, roomID string, batch ...state.DrawingElement) (*Session, *nettest.Conn) {
	t.Helper()
	s := h.board.JoinRoom(roomID)
	server, err := h.dialer.Accept(wait)
	require.NoError(t, err)
	expectJoin(t, server, roomID)

	if batch == nil {
		batch = []state.DrawingElement{}
	}
	require.NoError(t, server.Emit(boardnet.EventElementsBatch, batch))
	h.waitFor(t, boardnet.EventElementsBatch)
	return s, server
}

func expectJoin(t *testing.T, server *nettest.Conn, roomID string) {
	t.Helper()
	ev, err := server.Next(wait)
	require.NoError(t, err)
	require.Equal(t, boardnet.EventJoin, ev.Name)
	var join boardnet.JoinPayload
	require.NoError(t, ev.Decode(&join))
	require.Equal(t, roomID, join.RoomID)
}

func expectEvent(t *testing.T, server *nettest.Conn, name boardnet.EventName) boardnet.Event {
	t.Helper()
	ev, err := server.Next(wait)
	require.NoError(t, err)
	require.Equal(t, name, ev.Name)
	return ev
}

func pen(pts ...state.Point) state.DrawingElement {
	return state.DrawingElement{
		Type:   state.ElementPen,
		Points: pts,
		Style:  state.Style{StrokeColor: "#000000", StrokeWidth: 2, Opacity: 1},
	}
}
