package canvas

import (
	"image/color"
	"math"
)

// Point is a location in either canvas space or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale multiplies both coordinates by s.
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// IsZero reports whether p is the origin.
func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of a rectangle of this size anchored at the origin.
func (s Size) Center() Point { return Point{X: s.Width / 2, Y: s.Height / 2} }

// Rect is an axis-aligned rectangle. A rect with a non-positive width or
// height is empty.
type Rect struct {
	Origin Point `json:"origin"`
	Size   Size  `json:"size"`
}

// NewRect builds a rect from two corners in any order.
func NewRect(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{Origin: Point{X: minX, Y: minY}, Size: Size{Width: maxX - minX, Height: maxY - minY}}
}

func (r Rect) IsEmpty() bool { return r.Size.Width <= 0 || r.Size.Height <= 0 }
func (r Rect) MinX() float64 { return r.Origin.X }
func (r Rect) MinY() float64 { return r.Origin.Y }
func (r Rect) MaxX() float64 { return r.Origin.X + r.Size.Width }
func (r Rect) MaxY() float64 { return r.Origin.Y + r.Size.Height }

// Union returns the smallest rect containing both r and o. Empty rects are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return NewRect(
		Point{X: math.Min(r.MinX(), o.MinX()), Y: math.Min(r.MinY(), o.MinY())},
		Point{X: math.Max(r.MaxX(), o.MaxX()), Y: math.Max(r.MaxY(), o.MaxY())},
	)
}

// Inset shrinks r by dx on each horizontal side and dy on each vertical side.
// Negative values grow it.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{
		Origin: Point{X: r.Origin.X + dx, Y: r.Origin.Y + dy},
		Size:   Size{Width: r.Size.Width - 2*dx, Height: r.Size.Height - 2*dy},
	}
}

// Contains reports whether p lies inside r (max edges exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() && p.Y >= r.MinY() && p.Y < r.MaxY()
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX() < o.MaxX() && o.MinX() < r.MaxX() && r.MinY() < o.MaxY() && o.MinY() < r.MaxY()
}

// Color is an sRGB color with components in [0,1].
type Color struct {
	Red     float64 `json:"red"`
	Green   float64 `json:"green"`
	Blue    float64 `json:"blue"`
	Opacity float64 `json:"opacity"`
}

var (
	White  = Color{Red: 1, Green: 1, Blue: 1, Opacity: 1}
	Black  = Color{Opacity: 1}
	Yellow = Color{Red: 1, Green: 0.8, Blue: 0, Opacity: 1}
)

// WithOpacity returns c with its opacity multiplied by a.
func (c Color) WithOpacity(a float64) Color {
	c.Opacity *= a
	return c
}

// NRGBA converts c to a non-premultiplied 8-bit color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: channel(c.Red), G: channel(c.Green), B: channel(c.Blue), A: channel(c.Opacity)}
}

func channel(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 255))
}
