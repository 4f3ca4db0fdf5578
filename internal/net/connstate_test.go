package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineLifecycle(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateDisconnected, m.State())

	require.NoError(t, m.Begin())
	assert.Equal(t, StateConnecting, m.State())

	steps := []struct {
		event EventName
		want  ConnState
	}{
		{EventConnect, StateConnected},
		{EventDisconnect, StateDisconnected},
		{EventReconnectAttempt, StateConnecting},
		{EventReconnectError, StateDisconnected},
		{EventReconnectAttempt, StateConnecting},
		{EventReconnect, StateConnected},
		{EventConnectError, StateDisconnected},
		{EventReconnectFailed, StateDisconnected},
	}
	for _, step := range steps {
		got, err := m.Handle(step.event)
		require.NoError(t, err, "event %s", step.event)
		assert.Equal(t, step.want, got, "event %s", step.event)
	}
}

func TestMachineRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []EventName
		event EventName
		state ConnState
	}{
		{name: "connect while disconnected", event: EventConnect, state: StateDisconnected},
		{name: "disconnect while disconnected", event: EventDisconnect, state: StateDisconnected},
		{name: "retry while connected", setup: []EventName{EventConnect}, event: EventReconnectAttempt, state: StateConnected},
		{name: "not a lifecycle event", event: EventElementCreated, state: StateConnecting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			if tt.state != StateDisconnected || len(tt.setup) > 0 {
				require.NoError(t, m.Begin())
			}
			for _, ev := range tt.setup {
				_, err := m.Handle(ev)
				require.NoError(t, err)
			}
			got, err := m.Handle(tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.state, got)
		})
	}
}

func TestBeginOnlyFromDisconnected(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), ErrInvalidTransition)

	m.Reset()
	assert.Equal(t, StateDisconnected, m.State())
	assert.NoError(t, m.Begin())
}
