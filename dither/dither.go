/*
Package dither implements the 4 by 4 ordered dither applied to every frame
before any quantization decision is made.

Each position of the tile holds a distinct rank from 0 to 15 (a Bayer
matrix). A rank maps to the pixel value (rank-8)*Scale + Offset, which is
then added to each channel relative to the neutral level of 128, so an
Offset of 128 and a Scale of 0 leave the frame untouched.
*/
package dither

import (
	"image"
	"image/draw"
)

const (
	patternWidth  = 4
	patternHeight = patternWidth
	neutral       = 128
)

var bayer = [patternHeight][patternWidth]int{
	{0x0, 0xc, 0x3, 0xf},
	{0x8, 0x4, 0xb, 0x7},
	{0x2, 0xe, 0x1, 0xd},
	{0xa, 0x6, 0x9, 0x5},
}

// Pattern configures the dither strength
type Pattern struct {
	Scale  int
	Offset int
}

var (
	// Default is the pattern used by the encoder unless told otherwise
	Default = Pattern{Scale: 2, Offset: 129}
	// None leaves every pixel unchanged
	None = Pattern{Scale: 0, Offset: neutral}
)

// Rank returns the Bayer rank at pixel (x, y), tiling the pattern
// periodically
func Rank(x, y int) int {
	return bayer[y&(patternHeight-1)][x&(patternWidth-1)]
}

// Bias returns the signed amount added to each channel of pixel (x, y)
func (p Pattern) Bias(x, y int) int {
	return (Rank(x, y)-8)*p.Scale + p.Offset - neutral
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return uint8(v)
	}
}

// Apply returns a copy of m with the pattern added to every pixel. The
// returned image always has its top-left corner at (0, 0) and the pattern
// is anchored there. Alpha is discarded.
func (p Pattern) Apply(m image.Image) *image.RGBA {
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)

	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			bias := p.Bias(x, y)
			px := row[x*4 : x*4+4]
			px[0] = clamp(int(px[0]) + bias)
			px[1] = clamp(int(px[1]) + bias)
			px[2] = clamp(int(px[2]) + bias)
			px[3] = 0xff
		}
	}
	return dst
}
