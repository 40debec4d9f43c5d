// Package ink holds the vector stroke payload drawn on chalkboards and cards
// together with its canonical binary encoding and compressed on-disk form.
package ink

import (
	"slices"

	"chalkboard/internal/canvas"
)

// Tool identifies the inking tool that produced a stroke.
type Tool string

const (
	ToolPen         Tool = "pen"
	ToolPencil      Tool = "pencil"
	ToolMarker      Tool = "marker"
	ToolMonoline    Tool = "monoline"
	ToolFountainPen Tool = "fountainPen"
	ToolWatercolor  Tool = "watercolor"
	ToolCrayon      Tool = "crayon"
)

// StrokePoint is one sample of a stroke path.
type StrokePoint struct {
	Location   canvas.Point `json:"location"`
	Pressure   float64      `json:"pressure"`
	Azimuth    float64      `json:"azimuth"`
	Altitude   float64      `json:"altitude"`
	TimeOffset float64      `json:"timeOffset"`
}

// Stroke is a single continuous ink path.
type Stroke struct {
	Tool   Tool          `json:"tool"`
	Color  canvas.Color  `json:"color"`
	Width  float64       `json:"width"`
	Points []StrokePoint `json:"points"`
}

// Bounds is the area covered by the stroke including half its width.
func (s Stroke) Bounds() canvas.Rect {
	if len(s.Points) == 0 {
		return canvas.Rect{}
	}
	minP, maxP := s.Points[0].Location, s.Points[0].Location
	for _, p := range s.Points[1:] {
		minP.X, minP.Y = min(minP.X, p.Location.X), min(minP.Y, p.Location.Y)
		maxP.X, maxP.Y = max(maxP.X, p.Location.X), max(maxP.Y, p.Location.Y)
	}
	half := max(s.Width/2, 0.5)
	return canvas.NewRect(minP, maxP).Inset(-half, -half)
}

// Drawing is an ordered collection of strokes. The zero value is a blank drawing.
type Drawing struct {
	Strokes []Stroke `json:"strokes"`
}

// IsEmpty reports whether the drawing has no strokes.
func (d Drawing) IsEmpty() bool { return len(d.Strokes) == 0 }

// Bounds is the union of all stroke bounds; empty for a blank drawing.
func (d Drawing) Bounds() canvas.Rect {
	var r canvas.Rect
	for _, s := range d.Strokes {
		r = r.Union(s.Bounds())
	}
	return r
}

// Append returns a copy of d with s added on top.
func (d Drawing) Append(s Stroke) Drawing {
	out := d.Clone()
	out.Strokes = append(out.Strokes, s)
	return out
}

// Clone deep-copies the drawing.
func (d Drawing) Clone() Drawing {
	if d.Strokes == nil {
		return Drawing{}
	}
	out := Drawing{Strokes: make([]Stroke, len(d.Strokes))}
	for i, s := range d.Strokes {
		s.Points = slices.Clone(s.Points)
		out.Strokes[i] = s
	}
	return out
}
