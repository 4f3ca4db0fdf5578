package net

import (
	"encoding/json"
	"testing"

	"LiveBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWireShape(t *testing.T) {
	ev, err := NewEvent(EventElementDeleted, "e1")
	require.NoError(t, err)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"element-deleted","payload":"e1"}`, string(raw))

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	id, err := back.ID()
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
}

func TestEventDecodesElementPayload(t *testing.T) {
	raw := `{"event":"element-updated","payload":{"id":"e1","type":"line","points":[{"x":0,"y":0},{"x":3,"y":4}],
		"style":{"strokeColor":"#000","strokeWidth":2,"opacity":1},"created":10,"updated":20}}`
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	el, err := ev.Element()
	require.NoError(t, err)
	assert.Equal(t, state.ElementLine, el.Type)
	assert.Equal(t, []state.Point{{X: 0, Y: 0}, {X: 3, Y: 4}}, el.Points)
	assert.Equal(t, int64(20), el.Updated)
}

func TestEventDecodeErrors(t *testing.T) {
	_, err := Event{Name: EventElementsBatch}.Elements()
	assert.Error(t, err)

	_, err = Event{Name: EventUserCursor, Payload: json.RawMessage(`"nope"`)}.Cursor()
	assert.Error(t, err)
}

func TestEventClassification(t *testing.T) {
	assert.True(t, EventReconnectAttempt.IsLifecycle())
	assert.False(t, EventElementsBatch.IsLifecycle())
	assert.True(t, EventElementDeleted.IsIncremental())
	assert.False(t, EventUserCursor.IsIncremental())
}
