/*
Package ccc implements a Color Cell Compression video encoder and decoder.

Every frame is split into 4 by 4 pixel blocks and each block is stored as a
pair of colors from a fixed 16 color palette plus a 16-bit mask choosing
between them per pixel, 3 bytes in total.

A stream starts with a 52 byte header: the width and height as big-endian
16-bit values followed by the 16 palette entries as RGB triples. Frames
follow back to back with no delimiter, each being (width/4)*(height/4)
records in row-major block order. The number of frames is implied by the
stream length; any trailing bytes that don't make up a whole frame are
ignored.
*/
package ccc

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bodgit/ccc/block"
	"github.com/bodgit/ccc/palette"
)

// HeaderSize is the size in bytes of the stream header
const HeaderSize = 4 + palette.Bytes

var (
	// ErrMalformedHeader is returned when the stream is too short to
	// hold a header
	ErrMalformedHeader = errors.New("ccc: malformed header")
	// ErrDimensionNotBlockAligned is returned when the width or height
	// isn't a non-zero multiple of the block size
	ErrDimensionNotBlockAligned = block.ErrNotAligned
	// ErrUnsupportedPaletteSize is returned when a reference image can't
	// be reduced to a 16 color palette
	ErrUnsupportedPaletteSize = palette.ErrUnsupportedPaletteSize
	// ErrFrameSize is returned when a frame doesn't match the dimensions
	// in the header
	ErrFrameSize = errors.New("ccc: frame size does not match header")

	errTooLarge = errors.New("ccc: dimensions too large")
)

// Header describes a stream. It implements the encoding.BinaryMarshaler
// and encoding.BinaryUnmarshaler interfaces.
type Header struct {
	Width   int
	Height  int
	Palette palette.Palette
}

// Blocks returns the number of blocks in each frame
func (h *Header) Blocks() (int, error) {
	return block.Count(h.Width, h.Height)
}

// FrameSize returns the size in bytes of each frame
func (h *Header) FrameSize() (int, error) {
	n, err := h.Blocks()
	if err != nil {
		return 0, err
	}
	return n * block.RecordSize, nil
}

// Frames returns the number of whole frames in a stream of length bytes,
// header included
func (h *Header) Frames(length int64) (int64, error) {
	size, err := h.FrameSize()
	if err != nil {
		return 0, err
	}
	if length < HeaderSize {
		return 0, ErrMalformedHeader
	}
	return (length - HeaderSize) / int64(size), nil
}

// MarshalBinary encodes the header into binary form
func (h *Header) MarshalBinary() ([]byte, error) {
	if _, err := h.Blocks(); err != nil {
		return nil, err
	}
	if h.Width > math.MaxUint16 || h.Height > math.MaxUint16 {
		return nil, errTooLarge
	}

	b := make([]byte, 4, HeaderSize)
	binary.BigEndian.PutUint16(b[0:], uint16(h.Width))
	binary.BigEndian.PutUint16(b[2:], uint16(h.Height))

	p, err := h.Palette.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return append(b, p...), nil
}

// UnmarshalBinary decodes the header from binary form
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return ErrMalformedHeader
	}

	width := int(binary.BigEndian.Uint16(b[0:]))
	height := int(binary.BigEndian.Uint16(b[2:]))
	if _, err := block.Count(width, height); err != nil {
		return err
	}

	if err := h.Palette.UnmarshalBinary(b[4:HeaderSize]); err != nil {
		return err
	}
	h.Width, h.Height = width, height

	return nil
}
