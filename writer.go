package ccc

import (
	"io"

	"github.com/bodgit/ccc/block"
)

// Writer writes a stream header followed by whole frames
type Writer struct {
	w      io.Writer
	header Header
	blocks int
	buf    []byte
}

// NewWriter writes the header for h to w and returns a Writer ready to
// accept frames
func NewWriter(w io.Writer, h *Header) (*Writer, error) {
	b, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	n, err := h.Blocks()
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(b); err != nil {
		return nil, err
	}

	return &Writer{
		w:      w,
		header: *h,
		blocks: n,
		buf:    make([]byte, 0, n*block.RecordSize),
	}, nil
}

// Header returns the header written to the stream
func (w *Writer) Header() Header {
	return w.header
}

// WriteFrame writes one frame worth of blocks. The whole frame is written
// with a single call to the underlying writer.
func (w *Writer) WriteFrame(blocks []block.Block) error {
	if len(blocks) != w.blocks {
		return ErrFrameSize
	}

	w.buf = w.buf[:0]
	for _, b := range blocks {
		r := b.Record()
		w.buf = append(w.buf, r[:]...)
	}

	_, err := w.w.Write(w.buf)
	return err
}
