package domain

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"chalkboard/internal/canvas"
	"chalkboard/internal/ink"
)

// MinCardEdge is the smallest width or height a card may be resized to.
const MinCardEdge = 100.0

var (
	DefaultCardSize = canvas.Size{Width: 300, Height: 200}
	// AccentCardColor is the translucent accent new unassigned cards get.
	AccentCardColor = canvas.Color{Red: 1, Green: 0.2157, Blue: 0.3725, Opacity: 0.67}
)

// Card is a positioned, resizable sub-canvas with its own ink.
// Drawing holds the persisted ink bytes (see ink.Persist / ink.Load).
type Card struct {
	ID              string         `json:"id"`
	Drawing         []byte         `json:"drawing"`
	Position        canvas.Point   `json:"position"`
	Size            canvas.Size    `json:"size"`
	BackgroundColor canvas.Color   `json:"backgroundColor"`
	Opacity         float64        `json:"opacity"`
	Background      CardBackground `json:"background"`
	AllowFingerDrag bool           `json:"allowFingerDrag"`
	IsLocked        bool           `json:"isLocked"`

	// IsEditing is view-session state and never persisted.
	IsEditing bool `json:"-"`
}

// NewCard returns a card with a fresh id and default styling.
func NewCard(position canvas.Point) Card {
	return Card{
		ID:              uuid.New().String(),
		Position:        position,
		Size:            DefaultCardSize,
		BackgroundColor: canvas.Yellow,
		Opacity:         1,
		Background:      DefaultBackground(),
		AllowFingerDrag: true,
	}
}

// Ink decodes the card's drawing, falling back to a blank drawing.
func (c Card) Ink() ink.Drawing { return ink.Load(c.Drawing) }

// SetInk replaces the card's drawing wholesale.
func (c *Card) SetInk(d ink.Drawing) { c.Drawing = ink.Persist(d) }

// Resize applies a new size, never going below MinCardEdge on either axis.
func (c *Card) Resize(size canvas.Size) {
	c.Size = canvas.Size{
		Width:  minEdge(size.Width),
		Height: minEdge(size.Height),
	}
}

// minEdge clamps one dimension; NaN counts as too small.
func minEdge(v float64) float64 {
	if !(v >= MinCardEdge) {
		return MinCardEdge
	}
	return v
}

// Frame is the card's rectangle in canvas space.
func (c Card) Frame() canvas.Rect {
	return canvas.Rect{Origin: c.Position, Size: c.Size}
}

// Duplicate creates the same card under a new id at position, carrying the
// drawing and all styling. It is how a card changes owner.
func (c Card) Duplicate(position canvas.Point) Card {
	out := c.Clone()
	out.ID = uuid.New().String()
	out.Position = position
	out.IsEditing = false
	out.IsLocked = false
	return out
}

// Copy makes a blank-ink sibling of c offset slightly down and right.
func (c Card) Copy() Card {
	out := c.Duplicate(c.Position.Add(canvas.Point{X: 20, Y: 20}))
	out.Drawing = nil
	return out
}

// Reset clears the ink and restores the default look.
func (c *Card) Reset() {
	c.Drawing = nil
	c.BackgroundColor = canvas.Yellow
	c.Opacity = 1
	c.IsEditing = false
	c.AllowFingerDrag = true
}

// Clone deep-copies the card.
func (c Card) Clone() Card {
	c.Drawing = slices.Clone(c.Drawing)
	c.Background = c.Background.Clone()
	return c
}

// UnmarshalJSON defaults fields missing from older records.
func (c *Card) UnmarshalJSON(data []byte) error {
	type plain Card
	rec := struct {
		*plain
		AllowFingerDrag *bool    `json:"allowFingerDrag"`
		Opacity         *float64 `json:"opacity"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	c.AllowFingerDrag = rec.AllowFingerDrag == nil || *rec.AllowFingerDrag
	c.Opacity = 1
	if rec.Opacity != nil {
		c.Opacity = clamp(*rec.Opacity, 0, 1)
	}
	c.IsEditing = false
	c.Background.Normalize()
	if c.Size == (canvas.Size{}) {
		c.Size = DefaultCardSize
	}
	c.Resize(c.Size)
	return nil
}

// CloneCards deep-copies a card slice.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// IndexOfCard is the position of the card with id, or -1.
func IndexOfCard(cards []Card, id string) int {
	return slices.IndexFunc(cards, func(c Card) bool { return c.ID == id })
}
