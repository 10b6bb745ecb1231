package frames

import (
	"image"
	"io"

	"github.com/disintegration/gift"
)

// Writer writes frames as raw rgb24, optionally enlarged by an integer
// factor with nearest neighbour resampling
type Writer struct {
	w     io.Writer
	scale int
	buf   []byte
}

// NewWriter returns a Writer enlarging every frame by scale
func NewWriter(w io.Writer, scale int) (*Writer, error) {
	if scale < 1 {
		return nil, errBadSize
	}
	return &Writer{
		w:     w,
		scale: scale,
	}, nil
}

// Scale enlarges m by an integer factor with nearest neighbour resampling
func Scale(m image.Image, scale int) image.Image {
	if scale == 1 {
		return m
	}
	b := m.Bounds()
	g := gift.New(gift.Resize(b.Dx()*scale, b.Dy()*scale, gift.NearestNeighborResampling))
	dst := image.NewRGBA(g.Bounds(b))
	g.Draw(dst, m)
	return dst
}

// WriteFrame writes m, alpha discarded
func (w *Writer) WriteFrame(m image.Image) error {
	m = Scale(m, w.scale)
	bounds := m.Bounds()

	w.buf = w.buf[:0]
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := m.At(x, y).RGBA()
			w.buf = append(w.buf, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	_, err := w.w.Write(w.buf)
	return err
}
