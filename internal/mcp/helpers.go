package mcpserver

import (
	"time"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
)

// chalkboardSummary is what agents see of a board; raw ink and preview bytes
// are left out.
type chalkboardSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CardCount    int           `json:"cardCount"`
	StrokeCount  int           `json:"strokeCount"`
	InkBounds    *canvas.Rect  `json:"inkBounds,omitempty"`
	LastEditDate time.Time     `json:"lastEditDate"`
	CanvasOffset canvas.Point  `json:"canvasOffset"`
	ZoomScale    float64       `json:"zoomScale"`
	HasPreview   bool          `json:"hasPreview"`
	Cards        []cardSummary `json:"cards,omitempty"`
}

type cardSummary struct {
	ID              string                 `json:"id"`
	Position        canvas.Point           `json:"position"`
	Size            canvas.Size            `json:"size"`
	BackgroundColor canvas.Color           `json:"backgroundColor"`
	Opacity         float64                `json:"opacity"`
	Background      domain.BackgroundStyle `json:"background"`
	StrokeCount     int                    `json:"strokeCount"`
	IsLocked        bool                   `json:"isLocked"`
}

func summarizeChalkboard(cb domain.Chalkboard, withCards bool) chalkboardSummary {
	d := cb.Drawing()
	out := chalkboardSummary{
		ID:           cb.ID,
		Name:         cb.Name,
		CardCount:    len(cb.Cards),
		StrokeCount:  len(d.Strokes),
		LastEditDate: cb.LastEditDate,
		CanvasOffset: cb.CanvasOffset,
		ZoomScale:    cb.ZoomScale,
		HasPreview:   len(cb.PreviewImageData) > 0,
	}
	if b := d.Bounds(); !b.IsEmpty() {
		out.InkBounds = &b
	}
	if withCards {
		out.Cards = summarizeCards(cb.Cards)
	}
	return out
}

func summarizeCards(cards []domain.Card) []cardSummary {
	out := make([]cardSummary, len(cards))
	for i, c := range cards {
		out[i] = cardSummary{
			ID:              c.ID,
			Position:        c.Position,
			Size:            c.Size,
			BackgroundColor: c.BackgroundColor,
			Opacity:         c.Opacity,
			Background:      c.Background.Style,
			StrokeCount:     len(c.Ink().Strokes),
			IsLocked:        c.IsLocked,
		}
	}
	return out
}

func boolPtr(v bool) *bool { return &v }

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}
