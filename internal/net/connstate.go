package net

import (
	"errors"
	"fmt"
)

// ConnState is the lifecycle state of the link to the room.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// ErrInvalidTransition is returned when an event does not apply in the
// current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid connection state transition")

type transition struct {
	from []ConnState
	to   ConnState
}

// Reconnection reuses connecting; there is no separate reconnecting state.
var transitions = map[EventName]transition{
	EventConnect:          {from: []ConnState{StateConnecting}, to: StateConnected},
	EventReconnect:        {from: []ConnState{StateConnecting}, to: StateConnected},
	EventDisconnect:       {from: []ConnState{StateConnecting, StateConnected}, to: StateDisconnected},
	EventConnectError:     {from: []ConnState{StateConnecting, StateConnected}, to: StateDisconnected},
	EventReconnectError:   {from: []ConnState{StateConnecting, StateConnected}, to: StateDisconnected},
	EventReconnectAttempt: {from: []ConnState{StateDisconnected}, to: StateConnecting},
	EventReconnectFailed:  {from: []ConnState{StateDisconnected}, to: StateDisconnected},
}

// Machine is the connection state machine. It starts disconnected.
type Machine struct {
	state ConnState
}

// NewMachine returns a machine in the disconnected state.
func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

// State returns the current state.
func (m *Machine) State() ConnState {
	return m.state
}

// Begin moves disconnected -> connecting for a join attempt.
func (m *Machine) Begin() error {
	if m.state != StateDisconnected {
		return fmt.Errorf("%w: join while %s", ErrInvalidTransition, m.state)
	}
	m.state = StateConnecting
	return nil
}

// Handle applies a lifecycle event and returns the new state.
func (m *Machine) Handle(name EventName) (ConnState, error) {
	t, ok := transitions[name]
	if !ok {
		return m.state, fmt.Errorf("%w: %q is not a lifecycle event", ErrInvalidTransition, name)
	}
	for _, from := range t.from {
		if m.state == from {
			m.state = t.to
			return m.state, nil
		}
	}
	return m.state, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, name, m.state)
}

// Reset forces the machine back to disconnected on teardown.
func (m *Machine) Reset() {
	m.state = StateDisconnected
}
