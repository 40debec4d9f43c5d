// Package preview rasterizes ink drawings into the JPEG thumbnails stored
// with each chalkboard, and decodes them back for display.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"chalkboard/internal/canvas"
	"chalkboard/internal/ink"
)

const (
	// MaxThumbnailEdge caps the longest side of a stored preview, in pixels.
	MaxThumbnailEdge = 2048
	DefaultScale     = 2.0
	DefaultQuality   = 70
)

var ErrEmptyDrawing = errors.New("preview: drawing has no visible strokes")

// PlaceholderSize is the size of the image returned when a preview cannot be decoded.
var PlaceholderSize = canvas.Size{Width: 320, Height: 200}

// Renderer rasterizes drawings. Scale and Quality apply to Thumbnail.
type Renderer struct {
	Background canvas.Color
	Scale      float64
	Quality    int
}

func NewRenderer(scale float64, quality int) *Renderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Renderer{Background: canvas.White, Scale: scale, Quality: quality}
}

// Rasterize draws the part of d inside rect at scale pixels per canvas unit.
func (r *Renderer) Rasterize(d ink.Drawing, rect canvas.Rect, scale float64) (image.Image, error) {
	if d.IsEmpty() || rect.IsEmpty() {
		return nil, ErrEmptyDrawing
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("preview: invalid scale %v", scale)
	}
	w := pixels(rect.Size.Width * scale)
	h := pixels(rect.Size.Height * scale)
	if w > 4*MaxThumbnailEdge || h > 4*MaxThumbnailEdge {
		return nil, fmt.Errorf("preview: raster %dx%d too large", w, h)
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(r.Background.NRGBA())
	dc.Clear()
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	toPixel := func(p canvas.Point) (float64, float64) {
		return (p.X - rect.MinX()) * scale, (p.Y - rect.MinY()) * scale
	}
	for _, s := range d.Strokes {
		if len(s.Points) == 0 || !s.Bounds().Intersects(rect) {
			continue
		}
		c := s.Color.WithOpacity(toolAlpha(s.Tool))
		dc.SetColor(c.NRGBA())

		if len(s.Points) == 1 {
			x, y := toPixel(s.Points[0].Location)
			dc.DrawCircle(x, y, math.Max(0.5, s.Width*pressure(s.Points[0])*scale/2))
			dc.Fill()
			continue
		}
		for i := 1; i < len(s.Points); i++ {
			a, b := s.Points[i-1], s.Points[i]
			x1, y1 := toPixel(a.Location)
			x2, y2 := toPixel(b.Location)
			dc.SetLineWidth(math.Max(0.5, s.Width*(pressure(a)+pressure(b))/2*scale))
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
		}
	}
	return dc.Image(), nil
}

// Thumbnail renders the drawing's bounds as a JPEG, shrinking the scale so
// neither side exceeds MaxThumbnailEdge.
func (r *Renderer) Thumbnail(d ink.Drawing) ([]byte, error) {
	bounds := d.Bounds()
	if d.IsEmpty() || bounds.IsEmpty() {
		return nil, ErrEmptyDrawing
	}
	scale := r.Scale
	if longest := math.Max(bounds.Size.Width, bounds.Size.Height) * scale; longest > MaxThumbnailEdge {
		scale = MaxThumbnailEdge / math.Max(bounds.Size.Width, bounds.Size.Height)
	}
	img, err := r.Rasterize(d, bounds, scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a stored preview. Missing or corrupt data yields the placeholder.
func Decode(data []byte) (image.Image, bool) {
	if len(data) == 0 {
		return Placeholder(), false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Placeholder(), false
	}
	return img, true
}

// Placeholder is the neutral card shown for boards without a usable preview.
func Placeholder() image.Image {
	w, h := int(PlaceholderSize.Width), int(PlaceholderSize.Height)
	dc := gg.NewContext(w, h)
	dc.SetColor(color.NRGBA{R: 0x2b, G: 0x33, B: 0x2e, A: 0xff})
	dc.Clear()
	dc.SetColor(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x40})
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(12, 12, float64(w-24), float64(h-24), 10)
	dc.Stroke()
	dc.DrawLine(float64(w)*0.3, float64(h)*0.55, float64(w)*0.7, float64(h)*0.45)
	dc.Stroke()
	return dc.Image()
}

// Fit scales img down to fit within bound, keeping its aspect ratio.
func Fit(img image.Image, bound canvas.Size) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || bound.Width <= 0 || bound.Height <= 0 {
		return img
	}
	ratio := math.Min(bound.Width/float64(b.Dx()), bound.Height/float64(b.Dy()))
	if ratio >= 1 {
		return img
	}
	w := int(math.Max(1, math.Round(float64(b.Dx())*ratio)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*ratio)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// DataURL decodes a stored preview (or falls back to the placeholder), fits
// it within bound and returns it as a JPEG data URL for the frontend.
func DataURL(data []byte, bound canvas.Size, quality int) (string, error) {
	img, _ := Decode(data)
	img = Fit(img, bound)
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// pixels rounds a raster extent up, ignoring float noise from scale division.
func pixels(v float64) int {
	return max(1, int(math.Ceil(v-1e-6)))
}

func toolAlpha(t ink.Tool) float64 {
	switch t {
	case ink.ToolMarker:
		return 0.3
	case ink.ToolWatercolor:
		return 0.5
	case ink.ToolPencil, ink.ToolCrayon:
		return 0.8
	default:
		return 1
	}
}

// pressure treats an unrecorded (zero) pressure as full.
func pressure(p ink.StrokePoint) float64 {
	if p.Pressure <= 0 {
		return 1
	}
	return p.Pressure
}
