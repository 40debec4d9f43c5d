package domain

import (
	"math"

	"chalkboard/internal/canvas"
)

// BackgroundStyle selects what is painted behind a card's ink.
type BackgroundStyle string

const (
	BackgroundNone  BackgroundStyle = "none"
	BackgroundGrid  BackgroundStyle = "grid"
	BackgroundLined BackgroundStyle = "lined"
	BackgroundImage BackgroundStyle = "image"
)

// Margin is one side of a card's ruled area, as a percentage of the card's
// width (left/right) or height (top/bottom).
type Margin struct {
	IsEnabled  bool    `json:"isEnabled"`
	Percentage float64 `json:"percentage"`
}

var DefaultMargin = Margin{IsEnabled: false, Percentage: 20}

type CardMargins struct {
	Left   Margin `json:"left"`
	Right  Margin `json:"right"`
	Top    Margin `json:"top"`
	Bottom Margin `json:"bottom"`
}

var DefaultMargins = CardMargins{Left: DefaultMargin, Right: DefaultMargin, Top: DefaultMargin, Bottom: DefaultMargin}

// CardBackground describes ruling or an image behind a card's drawing.
// ImageData is only ever set together with the image style.
type CardBackground struct {
	Style             BackgroundStyle `json:"style"`
	LineColor         canvas.Color    `json:"lineColor"`
	LineWidth         float64         `json:"lineWidth"`
	Spacing           float64         `json:"spacing"`
	Margins           CardMargins     `json:"margins"`
	ImageData         []byte          `json:"imageData,omitempty"`
	OriginalImageSize *canvas.Size    `json:"originalImageSize,omitempty"`
	ImageOpacity      float64         `json:"imageOpacity"`
}

// DefaultBackground is the background of a freshly created card.
func DefaultBackground() CardBackground {
	return CardBackground{
		Style:        BackgroundNone,
		LineColor:    canvas.White,
		LineWidth:    1,
		Spacing:      20,
		Margins:      DefaultMargins,
		ImageOpacity: 1,
	}
}

// SetImage attaches an image and switches to the image style.
func (b *CardBackground) SetImage(data []byte, size canvas.Size) {
	if len(data) == 0 {
		b.ClearImage()
		return
	}
	b.ImageData = data
	b.OriginalImageSize = &size
	b.Style = BackgroundImage
}

// ClearImage removes the image; the style falls back to none.
func (b *CardBackground) ClearImage() {
	b.ImageData = nil
	b.OriginalImageSize = nil
	b.Style = BackgroundNone
}

// Normalize repairs values read from older or hand-edited records.
func (b *CardBackground) Normalize() {
	switch b.Style {
	case BackgroundNone, BackgroundGrid, BackgroundLined, BackgroundImage:
	default:
		b.Style = BackgroundNone
	}
	if len(b.ImageData) > 0 {
		b.Style = BackgroundImage
	} else if b.Style == BackgroundImage {
		b.ClearImage()
	}
	if b.Spacing <= 0 {
		b.Spacing = 20
	}
	if b.LineWidth <= 0 {
		b.LineWidth = 1
	}
	b.ImageOpacity = clamp(b.ImageOpacity, 0, 1)
	for _, m := range []*Margin{&b.Margins.Left, &b.Margins.Right, &b.Margins.Top, &b.Margins.Bottom} {
		m.Percentage = clamp(m.Percentage, 0, 100)
	}
}

// Clone deep-copies the background.
func (b CardBackground) Clone() CardBackground {
	if b.ImageData != nil {
		b.ImageData = append([]byte(nil), b.ImageData...)
	}
	if b.OriginalImageSize != nil {
		sz := *b.OriginalImageSize
		b.OriginalImageSize = &sz
	}
	return b
}

// RuledArea is the part of a card of the given size left inside the enabled margins.
func (b CardBackground) RuledArea(size canvas.Size) canvas.Rect {
	pct := func(m Margin, total float64) float64 {
		if !m.IsEnabled {
			return 0
		}
		return total * m.Percentage / 100
	}
	left := pct(b.Margins.Left, size.Width)
	right := pct(b.Margins.Right, size.Width)
	top := pct(b.Margins.Top, size.Height)
	bottom := pct(b.Margins.Bottom, size.Height)
	return canvas.Rect{
		Origin: canvas.Point{X: left, Y: top},
		Size:   canvas.Size{Width: math.Max(0, size.Width-left-right), Height: math.Max(0, size.Height-top-bottom)},
	}
}

// GuideLines returns the horizontal (y) and vertical (x) ruling positions
// for a card of the given size. Lined backgrounds only have horizontals.
func (b CardBackground) GuideLines(size canvas.Size) (horizontal, vertical []float64) {
	if b.Style != BackgroundGrid && b.Style != BackgroundLined || b.Spacing <= 0 {
		return nil, nil
	}
	area := b.RuledArea(size)
	if area.IsEmpty() {
		return nil, nil
	}
	for y := area.MinY() + b.Spacing; y < area.MaxY(); y += b.Spacing {
		horizontal = append(horizontal, y)
	}
	if b.Style == BackgroundGrid {
		for x := area.MinX() + b.Spacing; x < area.MaxX(); x += b.Spacing {
			vertical = append(vertical, x)
		}
	}
	return horizontal, vertical
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
