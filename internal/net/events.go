package net

import (
	"encoding/json"
	"fmt"

	"LiveBoard/internal/state"
)

// EventName is the wire name of a synchronization or lifecycle event.
type EventName string

const (
	EventJoin           EventName = "join"
	EventUserJoined     EventName = "user-joined"
	EventUserLeft       EventName = "user-left"
	EventUserCursor     EventName = "user-cursor"
	EventElementCreated EventName = "element-created"
	EventElementUpdated EventName = "element-updated"
	EventElementDeleted EventName = "element-deleted"
	EventElementsBatch  EventName = "elements-batch"

	// Lifecycle events never cross the wire; the connection loop raises them.
	EventConnect          EventName = "connect"
	EventDisconnect       EventName = "disconnect"
	EventConnectError     EventName = "connect_error"
	EventReconnect        EventName = "reconnect"
	EventReconnectError   EventName = "reconnect_error"
	EventReconnectAttempt EventName = "reconnect_attempt"
	EventReconnectFailed  EventName = "reconnect_failed"
)

// IsLifecycle reports whether the event drives the connection state machine.
func (n EventName) IsLifecycle() bool {
	switch n {
	case EventConnect, EventDisconnect, EventConnectError, EventReconnect,
		EventReconnectError, EventReconnectAttempt, EventReconnectFailed:
		return true
	}
	return false
}

// IsIncremental reports whether the event is an element change that must
// wait for the room's batch after a (re)connect.
func (n EventName) IsIncremental() bool {
	switch n {
	case EventElementCreated, EventElementUpdated, EventElementDeleted:
		return true
	}
	return false
}

// Event is the envelope every message travels in.
type Event struct {
	Name    EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes payload into an envelope.
func NewEvent(name EventName, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Name, err)
	}
	return nil
}

// JoinPayload opens a room session. User carries the profile the relay
// announces to the other members.
type JoinPayload struct {
	RoomID string      `json:"roomId"`
	UserID string      `json:"userId"`
	User   *state.User `json:"user,omitempty"`
}

// Element decodes an element-created or element-updated payload.
func (e Event) Element() (state.DrawingElement, error) {
	var el state.DrawingElement
	err := e.Decode(&el)
	return el, err
}

// Elements decodes an elements-batch payload.
func (e Event) Elements() ([]state.DrawingElement, error) {
	var els []state.DrawingElement
	err := e.Decode(&els)
	return els, err
}

// ID decodes a bare string payload (element-deleted, user-left).
func (e Event) ID() (string, error) {
	var id string
	err := e.Decode(&id)
	return id, err
}

// Cursor decodes a user-cursor payload.
func (e Event) Cursor() (state.CursorUpdate, error) {
	var c state.CursorUpdate
	err := e.Decode(&c)
	return c, err
}

// User decodes a user-joined payload.
func (e Event) User() (state.User, error) {
	var u state.User
	err := e.Decode(&u)
	return u, err
}
