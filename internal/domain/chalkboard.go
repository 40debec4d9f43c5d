package domain

import (
	"time"

	"github.com/google/uuid"

	"chalkboard/internal/canvas"
	"chalkboard/internal/ink"
)

// Chalkboard is the top-level scene: board ink, an ordered card list and the
// last viewed transform.
type Chalkboard struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	DrawingData      []byte       `json:"drawingData"`
	Cards            []Card       `json:"cards"`
	LastEditDate     time.Time    `json:"lastEditDate"`
	CanvasOffset     canvas.Point `json:"canvasOffset"`
	ZoomScale        float64      `json:"zoomScale"`
	PreviewImageData []byte       `json:"previewImageData,omitempty"`
}

// NewChalkboard builds a board with a fresh id; it is not persisted.
func NewChalkboard(name string, drawing ink.Drawing, cards []Card, now time.Time) Chalkboard {
	if cards == nil {
		cards = []Card{}
	}
	return Chalkboard{
		ID:           uuid.New().String(),
		Name:         name,
		DrawingData:  ink.Persist(drawing),
		Cards:        CloneCards(cards),
		LastEditDate: now,
		ZoomScale:    1,
	}
}

func (c Chalkboard) Drawing() ink.Drawing { return ink.Load(c.DrawingData) }

func (c *Chalkboard) SetDrawing(d ink.Drawing) { c.DrawingData = ink.Persist(d) }

// IsNew reports a board with no ink and no cards.
func (c Chalkboard) IsNew() bool {
	return len(c.Cards) == 0 && c.Drawing().Bounds().IsEmpty()
}

func (c Chalkboard) NormalizedScale() float64 { return canvas.NormalizeScale(c.ZoomScale) }

// Transform is the stored view transform with the scale normalized.
func (c Chalkboard) Transform() canvas.Transform {
	return canvas.Transform{Offset: c.CanvasOffset, Scale: c.NormalizedScale()}
}

// Card returns the card with id and its index.
func (c Chalkboard) Card(id string) (Card, int, bool) {
	i := IndexOfCard(c.Cards, id)
	if i < 0 {
		return Card{}, -1, false
	}
	return c.Cards[i], i, true
}

// Clone deep-copies the board including its cards.
func (c Chalkboard) Clone() Chalkboard {
	if c.DrawingData != nil {
		c.DrawingData = append([]byte(nil), c.DrawingData...)
	}
	if c.PreviewImageData != nil {
		c.PreviewImageData = append([]byte(nil), c.PreviewImageData...)
	}
	c.Cards = CloneCards(c.Cards)
	return c
}

// Normalize repairs a record read from storage.
func (c *Chalkboard) Normalize() {
	c.ZoomScale = c.NormalizedScale()
	if c.Cards == nil {
		c.Cards = []Card{}
	}
}
