package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"LiveBoard/internal/state"
)

// Snapshot is a saved room: the element list as it stood at ExportedAt.
type Snapshot struct {
	RoomID     string                 `json:"roomId"`
	ExportedAt time.Time              `json:"exportedAt"`
	Elements   []state.DrawingElement `json:"elements"`
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s Snapshot) error {
	if s.Elements == nil {
		s.Elements = []state.DrawingElement{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadJSON parses a snapshot and validates every element in it.
func ReadJSON(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	for _, el := range s.Elements {
		if err := el.Validate(); err != nil {
			return Snapshot{}, err
		}
	}
	return s, nil
}

// SaveFile writes a snapshot to path, picking the format from the
// extension: .pdf renders the drawing, anything else is JSON.
func SaveFile(path string, s Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if isPDF(path) {
		return WritePDF(f, s.RoomID, s.Elements)
	}
	return WriteJSON(f, s)
}

// LoadFile reads a JSON snapshot from path.
func LoadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return ReadJSON(f)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
