package ccc

import (
	"errors"
	"image"
	"io"

	"github.com/bodgit/ccc/block"
)

var errNotSeekable = errors.New("ccc: stream is not seekable")

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// Reader reads frames from a stream
type Reader struct {
	r      io.Reader
	header Header
	tmp    []byte
}

// NewReader reads the stream header from r
func NewReader(r io.Reader) (*Reader, error) {
	var b [HeaderSize]byte
	if err := readFull(r, b[:]); err != nil {
		if err != io.ErrUnexpectedEOF {
			return nil, err
		}
		return nil, ErrMalformedHeader
	}

	rd := &Reader{r: r}
	if err := rd.header.UnmarshalBinary(b[:]); err != nil {
		return nil, err
	}

	size, err := rd.header.FrameSize()
	if err != nil {
		return nil, err
	}
	rd.tmp = make([]byte, size)

	return rd, nil
}

// Header returns the stream header
func (r *Reader) Header() Header {
	return r.header
}

// ReadRecords returns the records of the next frame. It returns io.EOF
// once fewer bytes than a whole frame remain; any such trailing bytes are
// discarded. The returned slice is only valid until the next call.
func (r *Reader) ReadRecords() ([]block.Record, error) {
	if err := readFull(r.r, r.tmp); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	records := make([]block.Record, len(r.tmp)/block.RecordSize)
	for i := range records {
		copy(records[i][:], r.tmp[i*block.RecordSize:])
	}
	return records, nil
}

// ReadFrame decodes the next frame into an indexed image using the stream
// palette. It returns io.EOF at the end of the stream.
func (r *Reader) ReadFrame() (*image.Paletted, error) {
	records, err := r.ReadRecords()
	if err != nil {
		return nil, err
	}
	return block.Decode(records, r.header.Width, r.header.Height, r.header.Palette.ColorPalette())
}

// ReadInfo reads the header from r and works out the number of whole frames
// from the stream length, ignoring any trailing partial frame. The
// returned Reader is positioned at the first frame.
func ReadInfo(r io.ReadSeeker) (*Reader, int64, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, 0, err
	}

	length, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, err
	}

	frames, err := rd.header.Frames(length)
	if err != nil {
		return nil, 0, err
	}

	if _, err := r.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, 0, err
	}

	return rd, frames, nil
}

// SeekFrame positions the reader at frame n without reading the frames
// before it. The underlying reader must implement io.Seeker.
func (r *Reader) SeekFrame(n int64) error {
	s, ok := r.r.(io.Seeker)
	if !ok {
		return errNotSeekable
	}
	_, err := s.Seek(HeaderSize+n*int64(len(r.tmp)), io.SeekStart)
	return err
}

// DecodeConfig returns the color model and dimensions of a stream without
// decoding any frames
func DecodeConfig(r io.Reader) (image.Config, error) {
	rd, err := NewReader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: rd.header.Palette.ColorPalette(),
		Width:      rd.header.Width,
		Height:     rd.header.Height,
	}, nil
}
