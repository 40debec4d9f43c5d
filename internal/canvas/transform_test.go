package canvas_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalkboard/internal/canvas"
)

const tolerance = 1e-6

func TestTransformSymmetry(t *testing.T) {
	offsets := []canvas.Point{{}, {X: 449360, Y: 449600}, {X: -120.5, Y: 33.25}}
	scales := []float64{0.1, 0.37, 1, 2.5, 5, -3}
	points := []canvas.Point{{}, {X: 450000, Y: 450000}, {X: -17.125, Y: 9001.5}}

	for _, off := range offsets {
		for _, s := range scales {
			for _, p := range points {
				back := canvas.ScreenToCanvas(canvas.CanvasToScreen(p, off, s), off, s)
				assert.InDelta(t, p.X, back.X, tolerance, "offset=%v scale=%v", off, s)
				assert.InDelta(t, p.Y, back.Y, tolerance, "offset=%v scale=%v", off, s)
			}
		}
	}
}

func TestCanvasToScreen(t *testing.T) {
	got := canvas.CanvasToScreen(canvas.Point{X: 100, Y: 200}, canvas.Point{X: 50, Y: 50}, 2)
	assert.Equal(t, canvas.Point{X: 150, Y: 350}, got)
}

func TestCenterOffset(t *testing.T) {
	got := canvas.CenterOffset(canvas.Size{Width: 1280, Height: 800})
	assert.Equal(t, canvas.Point{X: 449360, Y: 449600}, got)
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.01, canvas.MinZoom},
		{0.1, 0.1},
		{1.7, 1.7},
		{5, 5},
		{12, canvas.MaxZoom},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canvas.ClampZoom(tt.in), "ClampZoom(%v)", tt.in)
	}
}

func TestNormalizeScale(t *testing.T) {
	assert.Equal(t, 1.0, canvas.NormalizeScale(0))
	assert.Equal(t, 1.0, canvas.NormalizeScale(-2))
	// Restored scales are trusted even outside the gesture range.
	assert.Equal(t, 7.5, canvas.NormalizeScale(7.5))
	assert.Equal(t, 0.05, canvas.NormalizeScale(0.05))
}

func TestNewCardPosition_InsideCurrentView(t *testing.T) {
	viewport := canvas.Size{Width: 1000, Height: 600}
	tr := canvas.Transform{Offset: canvas.Point{X: 449500, Y: 449700}, Scale: 2}

	pos := canvas.NewCardPosition(viewport, tr.Offset, tr.Scale)

	assert.InDelta(t, (500+449500)/2.0, pos.X, tolerance)
	assert.InDelta(t, (300+449700)/2.0, pos.Y, tolerance)
	assert.True(t, tr.VisibleRect(viewport).Contains(pos))

	screen := tr.ToScreen(pos)
	assert.InDelta(t, 500, screen.X, tolerance)
	assert.InDelta(t, 300, screen.Y, tolerance)
}

func TestFocusOffset_CentersTarget(t *testing.T) {
	viewport := canvas.Size{Width: 800, Height: 600}
	target := canvas.Point{X: 451000, Y: 449000}
	off := canvas.FocusOffset(target, viewport, 1.5)

	screen := canvas.CanvasToScreen(target, off, 1.5)
	assert.InDelta(t, 400, screen.X, tolerance)
	assert.InDelta(t, 300, screen.Y, tolerance)
}

func TestTransform_ZoomAtKeepsAnchor(t *testing.T) {
	tr := canvas.Transform{Offset: canvas.Point{X: 1000, Y: 2000}, Scale: 1}
	anchor := canvas.Point{X: 320, Y: 240}
	before := tr.ToCanvas(anchor)

	zoomed := tr.ZoomAt(3, anchor)
	require.Equal(t, 3.0, zoomed.Scale)
	after := zoomed.ToCanvas(anchor)
	assert.InDelta(t, before.X, after.X, tolerance)
	assert.InDelta(t, before.Y, after.Y, tolerance)

	assert.Equal(t, canvas.MaxZoom, tr.ZoomAt(40, anchor).Scale)
	assert.Equal(t, canvas.MinZoom, tr.ZoomAt(0, anchor).Scale)
}

func TestTransform_PanAndClamp(t *testing.T) {
	viewport := canvas.Size{Width: 800, Height: 600}
	tr := canvas.Transform{Offset: canvas.Point{X: 10, Y: 10}, Scale: 1}

	panned := tr.Pan(canvas.Point{X: 30, Y: -5})
	assert.Equal(t, canvas.Point{X: -20, Y: 15}, panned.Offset)

	clamped := panned.ClampOffset(viewport)
	assert.Equal(t, canvas.Point{X: 0, Y: 15}, clamped.Offset)

	far := canvas.Transform{Offset: canvas.Point{X: 1e7, Y: 1e7}, Scale: 1}.ClampOffset(viewport)
	assert.Equal(t, canvas.Point{X: canvas.CanvasEdge - 800, Y: canvas.CanvasEdge - 600}, far.Offset)
}

func TestTransform_Reset(t *testing.T) {
	viewport := canvas.Size{Width: 800, Height: 600}
	tr := canvas.Transform{Offset: canvas.Point{X: 3, Y: 4}, Scale: 4}.Reset(viewport)
	assert.Equal(t, 1.0, tr.Scale)
	assert.Equal(t, canvas.CenterOffset(viewport), tr.Offset)
}

func TestVisibleTiles_CoverViewport(t *testing.T) {
	viewport := canvas.Size{Width: 1000, Height: 500}
	tr := canvas.Transform{Offset: canvas.Point{X: 2048, Y: 1024}, Scale: 1}

	tiles := tr.VisibleTiles(viewport, 1024)
	// x: [2048, 3048) grown to [1024, 4072) => columns at 1024, 2048, 3072
	// y: [1024, 1524) grown to [0, 2548) => rows at 0, 1024, 2048
	require.Len(t, tiles, 9)
	assert.Equal(t, canvas.Point{X: 1024, Y: 0}, tiles[0].Origin)

	visible := tr.VisibleRect(viewport)
	for _, corner := range []canvas.Point{visible.Origin, {X: visible.MaxX() - 1, Y: visible.MaxY() - 1}} {
		covered := false
		for _, tile := range tiles {
			if tile.Contains(corner) {
				covered = true
			}
		}
		assert.True(t, covered, "corner %v not covered", corner)
	}
}

func TestInitialTransform(t *testing.T) {
	viewport := canvas.Size{Width: 1280, Height: 800}
	stored := canvas.Transform{Offset: canvas.Point{X: 1200, Y: 800}, Scale: 0}

	newBoard := canvas.InitialTransform(true, stored, viewport)
	assert.Equal(t, canvas.CenterOffset(viewport), newBoard.Offset)
	assert.Equal(t, 1.0, newBoard.Scale)

	existing := canvas.InitialTransform(false, canvas.Transform{Offset: stored.Offset, Scale: 2.2}, viewport)
	assert.Equal(t, stored.Offset, existing.Offset)
	assert.Equal(t, 2.2, existing.Scale)

	neverPanned := canvas.InitialTransform(false, canvas.Transform{Scale: 1}, viewport)
	assert.Equal(t, canvas.CenterOffset(viewport), neverPanned.Offset)
}

func TestRectUnion(t *testing.T) {
	a := canvas.NewRect(canvas.Point{X: 10, Y: 10}, canvas.Point{X: 0, Y: 0})
	b := canvas.Rect{Origin: canvas.Point{X: 5, Y: -5}, Size: canvas.Size{Width: 20, Height: 5}}

	u := a.Union(b)
	assert.Equal(t, canvas.Point{X: 0, Y: -5}, u.Origin)
	assert.Equal(t, canvas.Size{Width: 25, Height: 15}, u.Size)
	assert.Equal(t, a, a.Union(canvas.Rect{}))
	assert.True(t, canvas.Rect{}.IsEmpty())
}
