/*
Package frames implements the frame sources and sinks at the edges of the
encoder and decoder.

Raw video is a headerless sequence of frames, each width*height pixels of
packed 8-bit RGB, which is what video tools emit and accept with the
rawvideo format and rgb24 pixel format.
*/
package frames

import (
	"errors"
	"image"
	"io"
)

const bytesPerPixel = 3

var (
	errNotEnough = errors.New("frames: not enough image data")
	errBadSize   = errors.New("frames: invalid frame size")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.ErrUnexpectedEOF {
		err = errNotEnough
	}
	return err
}

// Reader reads raw rgb24 frames of a fixed size
type Reader struct {
	r      io.Reader
	width  int
	height int
	tmp    []byte
}

// NewReader returns a Reader for frames of the given size
func NewReader(r io.Reader, width, height int) (*Reader, error) {
	if width <= 0 || height <= 0 {
		return nil, errBadSize
	}
	return &Reader{
		r:      r,
		width:  width,
		height: height,
		tmp:    make([]byte, width*height*bytesPerPixel),
	}, nil
}

// ReadFrame returns the next frame, or io.EOF if there are no more. A
// frame cut short by the end of the stream is an error.
func (r *Reader) ReadFrame() (image.Image, error) {
	if err := readFull(r.r, r.tmp); err != nil {
		return nil, err
	}

	m := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for i, j := 0, 0; i < len(r.tmp); i, j = i+bytesPerPixel, j+4 {
		m.Pix[j+0] = r.tmp[i+0]
		m.Pix[j+1] = r.tmp[i+1]
		m.Pix[j+2] = r.tmp[i+2]
		m.Pix[j+3] = 0xff
	}
	return m, nil
}
