package canvas

import "math"

const (
	// CanvasEdge is the edge length of the square canvas-space region used
	// to emulate an infinite surface.
	CanvasEdge = 900000.0

	MinZoom = 0.1
	MaxZoom = 5.0

	DefaultTileSize = 1024.0
)

// Bound is the full addressable canvas.
var Bound = Rect{Size: Size{Width: CanvasEdge, Height: CanvasEdge}}

// CanvasToScreen maps a canvas-space point to viewport coordinates.
func CanvasToScreen(p, offset Point, scale float64) Point {
	return Point{X: p.X*scale - offset.X, Y: p.Y*scale - offset.Y}
}

// ScreenToCanvas maps a viewport point back to canvas space. scale must be non-zero.
func ScreenToCanvas(p, offset Point, scale float64) Point {
	return Point{X: (p.X + offset.X) / scale, Y: (p.Y + offset.Y) / scale}
}

// CenterOffset is the offset that puts the viewport in the middle of the canvas bound.
func CenterOffset(viewport Size) Point {
	return Point{
		X: (CanvasEdge - viewport.Width) / 2,
		Y: (CanvasEdge - viewport.Height) / 2,
	}
}

// ClampZoom limits a gesture-driven scale to [MinZoom, MaxZoom].
func ClampZoom(scale float64) float64 {
	if math.IsNaN(scale) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, scale))
}

// NormalizeScale accepts a persisted scale as-is unless it is not positive.
func NormalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1
	}
	return scale
}

// NewCardPosition is the canvas-space point under the viewport center.
func NewCardPosition(viewport Size, offset Point, scale float64) Point {
	return ScreenToCanvas(viewport.Center(), offset, NormalizeScale(scale))
}

// FocusOffset returns the offset that puts target (canvas space) under the
// viewport center at the given scale.
func FocusOffset(target Point, viewport Size, scale float64) Point {
	scale = NormalizeScale(scale)
	return Point{
		X: target.X*scale - viewport.Width/2,
		Y: target.Y*scale - viewport.Height/2,
	}
}

// Transform is the pan/zoom state of a view session.
type Transform struct {
	Offset Point   `json:"offset"`
	Scale  float64 `json:"scale"`
}

// Identity is the transform of a freshly created, never viewed board.
var Identity = Transform{Scale: 1}

func (t Transform) ToScreen(p Point) Point { return CanvasToScreen(p, t.Offset, t.Scale) }
func (t Transform) ToCanvas(p Point) Point { return ScreenToCanvas(p, t.Offset, t.Scale) }

// Pan moves the content with the finger: a positive translation reveals
// content to the left/top.
func (t Transform) Pan(translation Point) Transform {
	t.Offset = t.Offset.Sub(translation)
	return t
}

// ZoomAt changes the scale (clamped) while keeping the canvas point under
// anchor (screen space) fixed.
func (t Transform) ZoomAt(scale float64, anchor Point) Transform {
	pinned := t.ToCanvas(anchor)
	t.Scale = ClampZoom(scale)
	t.Offset = Point{X: pinned.X*t.Scale - anchor.X, Y: pinned.Y*t.Scale - anchor.Y}
	return t
}

// Reset returns to scale 1 looking at the middle of the canvas.
func (t Transform) Reset(viewport Size) Transform {
	return Transform{Offset: CenterOffset(viewport), Scale: 1}
}

// ClampOffset keeps the viewport inside the scaled canvas bound.
func (t Transform) ClampOffset(viewport Size) Transform {
	maxX := math.Max(0, CanvasEdge*t.Scale-viewport.Width)
	maxY := math.Max(0, CanvasEdge*t.Scale-viewport.Height)
	t.Offset.X = math.Max(0, math.Min(maxX, t.Offset.X))
	t.Offset.Y = math.Max(0, math.Min(maxY, t.Offset.Y))
	return t
}

// VisibleRect is the canvas-space region shown in the viewport.
func (t Transform) VisibleRect(viewport Size) Rect {
	scale := NormalizeScale(t.Scale)
	return Rect{
		Origin: ScreenToCanvas(Point{}, t.Offset, scale),
		Size:   Size{Width: viewport.Width / scale, Height: viewport.Height / scale},
	}
}

// VisibleTiles lists the tiles covering the visible region grown by one
// tile on every side, in row-major order.
func (t Transform) VisibleTiles(viewport Size, tileSize float64) []Rect {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	visible := t.VisibleRect(viewport).Inset(-tileSize, -tileSize)
	minX := math.Floor(visible.MinX()/tileSize) * tileSize
	minY := math.Floor(visible.MinY()/tileSize) * tileSize
	maxX := math.Ceil(visible.MaxX()/tileSize) * tileSize
	maxY := math.Ceil(visible.MaxY()/tileSize) * tileSize

	var tiles []Rect
	for y := minY; y < maxY; y += tileSize {
		for x := minX; x < maxX; x += tileSize {
			tiles = append(tiles, Rect{Origin: Point{X: x, Y: y}, Size: Size{Width: tileSize, Height: tileSize}})
		}
	}
	return tiles
}

// InitialTransform picks the transform a view session starts with. Brand-new
// boards and boards that never stored an offset start centered; everything
// else is restored verbatim apart from scale normalization.
func InitialTransform(isNew bool, stored Transform, viewport Size) Transform {
	scale := NormalizeScale(stored.Scale)
	if isNew || stored.Offset.IsZero() {
		return Transform{Offset: CenterOffset(viewport), Scale: scale}
	}
	return Transform{Offset: stored.Offset, Scale: scale}
}
