package state

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

var userColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
}

var (
	nameAdjectives = []string{"Quick", "Clever", "Bright", "Swift", "Smart", "Sharp", "Fast", "Bold"}
	nameNouns      = []string{"Fox", "Eagle", "Wolf", "Tiger", "Lion", "Bear", "Hawk", "Owl"}
)

// NewUser builds a session identity. Empty name or color are generated.
func NewUser(name, color string) User {
	if name == "" {
		name = nameAdjectives[rand.Intn(len(nameAdjectives))] + nameNouns[rand.Intn(len(nameNouns))]
	}
	if color == "" {
		color = userColors[rand.Intn(len(userColors))]
	}
	return User{
		ID:       uuid.NewString(),
		Name:     name,
		Color:    color,
		IsActive: true,
		JoinedAt: time.Now().UnixMilli(),
	}
}

// NewElementID returns a globally unique, creation-ordered element id.
func NewElementID() string {
	return ksuid.New().String()
}
