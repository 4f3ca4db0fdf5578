package state

import "slices"

// Point is a position in document space, not screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ElementType identifies what kind of drawable an element is.
type ElementType string

const (
	ElementPen      ElementType = "pen"
	ElementPencil   ElementType = "pencil"
	ElementBrush    ElementType = "brush"
	ElementEraser   ElementType = "eraser"
	ElementRect     ElementType = "rectangle"
	ElementCircle   ElementType = "circle"
	ElementLine     ElementType = "line"
	ElementArrow    ElementType = "arrow"
	ElementTriangle ElementType = "triangle"
	ElementDiamond  ElementType = "diamond"
	ElementStar     ElementType = "star"
	ElementHeart    ElementType = "heart"
	ElementHexagon  ElementType = "hexagon"
	ElementText     ElementType = "text"
)

var elementTypes = map[ElementType]bool{
	ElementPen: true, ElementPencil: true, ElementBrush: true, ElementEraser: true,
	ElementRect: true, ElementCircle: true, ElementLine: true, ElementArrow: true,
	ElementTriangle: true, ElementDiamond: true, ElementStar: true, ElementHeart: true,
	ElementHexagon: true, ElementText: true,
}

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	return elementTypes[t]
}

// IsFreehand is true for tools that record a free path rather than a shape outline.
func (t ElementType) IsFreehand() bool {
	switch t {
	case ElementPen, ElementPencil, ElementBrush, ElementEraser:
		return true
	}
	return false
}

// Style is replaced as a whole on every update, never patched field by field.
type Style struct {
	StrokeColor string  `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
	Fill        string  `json:"fill,omitempty"`
	Variant     string  `json:"variant,omitempty"` // pen/pencil/brush kind
	FontSize    float64 `json:"fontSize,omitempty"`
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontWeight  string  `json:"fontWeight,omitempty"`
	FontStyle   string  `json:"fontStyle,omitempty"`
	TextAlign   string  `json:"textAlign,omitempty"`
}

// DrawingElement is the unit of synchronized state.
// Created and Updated are milliseconds since epoch as stamped by the originator.
// Updated is the only authority used to resolve conflicting writes.
type DrawingElement struct {
	ID      string      `json:"id"`
	Type    ElementType `json:"type"`
	Points  []Point     `json:"points"`
	Style   Style       `json:"style"`
	Text    string      `json:"text,omitempty"`
	OwnerID string      `json:"ownerId,omitempty"`
	Created int64       `json:"created"`
	Updated int64       `json:"updated"`
}

// Clone returns a deep copy so the caller can hold it without aliasing the
// points of a stored element.
func (e DrawingElement) Clone() DrawingElement {
	e.Points = slices.Clone(e.Points)
	return e
}

// Validate checks the invariants every stored element must satisfy.
func (e DrawingElement) Validate() error {
	switch {
	case e.ID == "":
		return invalid("missing id")
	case !e.Type.Valid():
		return invalid("unknown type %q", e.Type)
	case len(e.Points) == 0:
		return invalid("element %s has no points", e.ID)
	case e.Updated < e.Created:
		return invalid("element %s updated %d before created %d", e.ID, e.Updated, e.Created)
	}
	return nil
}

// Translate returns a copy moved by dx, dy.
func (e DrawingElement) Translate(dx, dy float64) DrawingElement {
	moved := e.Clone()
	for i := range moved.Points {
		moved.Points[i].X += dx
		moved.Points[i].Y += dy
	}
	return moved
}

// User is a member of the room as announced by presence events.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsActive bool   `json:"isActive"`
	JoinedAt int64  `json:"joinedAt"`
}

// CursorUpdate is ephemeral and never part of document history.
type CursorUpdate struct {
	UserID string `json:"userId"`
	Cursor Point  `json:"cursor"`
}
