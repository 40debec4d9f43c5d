package ink

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyInput is returned when there is nothing to compress or inflate.
	ErrEmptyInput = errors.New("ink: empty input")
	// ErrNotCompressed marks input that is not a valid zlib stream.
	ErrNotCompressed = errors.New("ink: not a compressed stream")
)

// maxInflated bounds decompression output.
const maxInflated = 256 << 20

// Compress deflates data into a zlib stream.
func Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCompressed, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxInflated+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCompressed, err)
	}
	if len(out) > maxInflated {
		return nil, fmt.Errorf("%w: inflated size exceeds %d bytes", ErrNotCompressed, maxInflated)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// Load turns persisted bytes into a drawing. Compressed data is tried first,
// then the legacy uncompressed encoding; anything else yields a blank drawing.
func Load(persisted []byte) Drawing {
	if len(persisted) == 0 {
		return Drawing{}
	}
	raw, err := Decompress(persisted)
	if err == nil {
		d, derr := Decode(raw)
		if derr == nil {
			return d
		}
		logrus.WithError(derr).Debug("ink: inflated data is not a drawing, trying legacy form")
	}

	d, derr := Decode(persisted)
	if derr == nil {
		return d
	}
	logrus.WithError(derr).WithField("bytes", len(persisted)).Debug("ink: unreadable drawing, using blank")
	return Drawing{}
}

// Persist returns the on-disk form of d: compressed when possible, otherwise
// the canonical bytes. It never fails; an unencodable drawing persists as nil.
func Persist(d Drawing) []byte {
	raw, err := Encode(d)
	if err != nil {
		logrus.WithError(err).Error("ink: encode drawing")
		return nil
	}
	packed, err := Compress(raw)
	if err != nil {
		logrus.WithError(err).Warn("ink: compression failed, storing uncompressed")
		return raw
	}
	return packed
}
