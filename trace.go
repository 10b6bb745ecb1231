package ccc

import (
	"image"

	"github.com/bodgit/ccc/block"
)

// Trace returns the two colors picked for every block of m by splitting
// its pixels around the block's mean luma, before any fallback or
// normalization. Each block is filled with its color so the result has the
// same size as m.
func (e *Encoder) Trace(m image.Image) (lo, hi *image.Paletted, err error) {
	dithered := e.Dither.Apply(m)

	analysis, err := block.Analyze(dithered, e.palette)
	if err != nil {
		return nil, nil, err
	}

	b := dithered.Bounds()
	lo = image.NewPaletted(b, e.palette.ColorPalette())
	hi = image.NewPaletted(b, e.palette.ColorPalette())
	for i, a := range analysis {
		r := block.Rect(i, b.Dx())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				lo.SetColorIndex(x, y, a.Lo)
				hi.SetColorIndex(x, y, a.Hi)
			}
		}
	}
	return lo, hi, nil
}

// Reconstruct encodes m and decodes the result, returning what a decoder
// would display for it
func (e *Encoder) Reconstruct(m image.Image) (*image.Paletted, error) {
	blocks, err := e.EncodeFrame(m)
	if err != nil {
		return nil, err
	}
	b := m.Bounds()
	return block.Decode(block.Records(blocks), b.Dx(), b.Dy(), e.palette.ColorPalette())
}
