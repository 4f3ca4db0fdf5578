package state

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned by Create when the id is already stored.
	ErrDuplicateID = errors.New("duplicate element id")
	// ErrInvalidElement wraps every validation failure.
	ErrInvalidElement = errors.New("invalid element")
	// ErrUnknownElement is returned for local edits of an element that is not in the store.
	ErrUnknownElement = errors.New("unknown element")
	// ErrNothingToUndo and ErrNothingToRedo are benign: the history was empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidElement, fmt.Sprintf(format, args...))
}
