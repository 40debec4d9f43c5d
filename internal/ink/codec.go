package ink

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"chalkboard/internal/canvas"
)

// ErrCorrupt is returned by Decode for input that is not a canonical drawing.
var ErrCorrupt = errors.New("ink: corrupt drawing data")

var magic = [4]byte{'P', 'K', 'D', '1'}

const (
	formatVersion = 1

	// guards against allocating from garbage length prefixes
	maxStrokes      = 1 << 20
	maxPointsStroke = 1 << 22
	maxToolName     = 64
)

// Engine is the boundary to the ink engine: canonical encoding and geometry
// of a stroke collection.
type Engine interface {
	Encode(d Drawing) ([]byte, error)
	Decode(data []byte) (Drawing, error)
	Bounds(d Drawing) canvas.Rect
}

type codec struct{}

// DefaultEngine encodes drawings in the package's canonical binary format.
var DefaultEngine Engine = codec{}

func (codec) Encode(d Drawing) ([]byte, error)    { return Encode(d) }
func (codec) Decode(data []byte) (Drawing, error) { return Decode(data) }
func (codec) Bounds(d Drawing) canvas.Rect        { return d.Bounds() }

// Encode produces the canonical uncompressed representation of d.
func Encode(d Drawing) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	le := binary.LittleEndian

	writeU32 := func(v int) { _ = binary.Write(&buf, le, uint32(v)) }
	writeF64 := func(vs ...float64) {
		for _, v := range vs {
			_ = binary.Write(&buf, le, math.Float64bits(v))
		}
	}

	if len(d.Strokes) > maxStrokes {
		return nil, fmt.Errorf("encode drawing: %d strokes exceeds limit", len(d.Strokes))
	}
	writeU32(len(d.Strokes))
	for i, s := range d.Strokes {
		if len(s.Tool) > maxToolName {
			return nil, fmt.Errorf("encode stroke %d: tool name too long", i)
		}
		if len(s.Points) > maxPointsStroke {
			return nil, fmt.Errorf("encode stroke %d: %d points exceeds limit", i, len(s.Points))
		}
		buf.WriteByte(byte(len(s.Tool)))
		buf.WriteString(string(s.Tool))
		writeF64(s.Color.Red, s.Color.Green, s.Color.Blue, s.Color.Opacity, s.Width)
		writeU32(len(s.Points))
		for _, p := range s.Points {
			writeF64(p.Location.X, p.Location.Y, p.Pressure, p.Azimuth, p.Altitude, p.TimeOffset)
		}
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a drawing from its canonical encoding.
func Decode(data []byte) (Drawing, error) {
	r := bytes.NewReader(data)
	var head [5]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Drawing{}, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(head[:4], magic[:]) {
		return Drawing{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if head[4] != formatVersion {
		return Drawing{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, head[4])
	}

	dec := decoder{r: r}
	n := dec.u32()
	if dec.err == nil && n > maxStrokes {
		return Drawing{}, fmt.Errorf("%w: stroke count %d", ErrCorrupt, n)
	}

	var d Drawing
	if n > 0 && dec.err == nil {
		d.Strokes = make([]Stroke, 0, min(int(n), 1024))
	}
	for i := 0; i < int(n) && dec.err == nil; i++ {
		var s Stroke
		s.Tool = Tool(dec.str())
		c := dec.f64s(5)
		if dec.err != nil {
			break
		}
		s.Color = canvas.Color{Red: c[0], Green: c[1], Blue: c[2], Opacity: c[3]}
		s.Width = c[4]

		pn := dec.u32()
		if dec.err == nil && pn > maxPointsStroke {
			return Drawing{}, fmt.Errorf("%w: point count %d", ErrCorrupt, pn)
		}
		if pn > 0 && dec.err == nil {
			s.Points = make([]StrokePoint, 0, min(int(pn), 4096))
		}
		for j := 0; j < int(pn) && dec.err == nil; j++ {
			v := dec.f64s(6)
			if dec.err != nil {
				break
			}
			s.Points = append(s.Points, StrokePoint{
				Location:   canvas.Point{X: v[0], Y: v[1]},
				Pressure:   v[2],
				Azimuth:    v[3],
				Altitude:   v[4],
				TimeOffset: v[5],
			})
		}
		d.Strokes = append(d.Strokes, s)
	}
	if dec.err != nil {
		return Drawing{}, fmt.Errorf("%w: %v", ErrCorrupt, dec.err)
	}
	if r.Len() != 0 {
		return Drawing{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	return d, nil
}

// decoder keeps the first read error so the stroke loop stays flat.
type decoder struct {
	r   *bytes.Reader
	err error
	buf [8]byte
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	if _, d.err = io.ReadFull(d.r, d.buf[:4]); d.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	n, err := d.r.ReadByte()
	if err != nil {
		d.err = err
		return ""
	}
	if int(n) > maxToolName {
		d.err = fmt.Errorf("tool name length %d", n)
		return ""
	}
	b := make([]byte, n)
	if _, d.err = io.ReadFull(d.r, b); d.err != nil {
		return ""
	}
	return string(b)
}

func (d *decoder) f64s(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if d.err != nil {
			return out
		}
		if _, d.err = io.ReadFull(d.r, d.buf[:8]); d.err != nil {
			return out
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(d.buf[:8]))
	}
	return out
}
