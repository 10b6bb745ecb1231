/*
Package palette implements the fixed 16 color table shared by every frame of
a Color Cell Compression stream.

Colors are ordered by the approximate luma weight R*3 + G*6 + B so the same
reference image always yields the same table. Tables with fewer than 16
distinct colors are padded by repeating the heaviest color.
*/
package palette

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/ericpauley/go-quantize/quantize"
)

const (
	// Size is the number of entries in every palette
	Size = 16
	// Bytes is the size of a marshalled palette, 3 bytes per entry
	Bytes = Size * 3
)

var (
	// ErrUnsupportedPaletteSize is returned when a reference image can't
	// be reduced to a 16 entry palette
	ErrUnsupportedPaletteSize = errors.New("palette: unsupported palette size")
	errShortPalette           = errors.New("palette: not enough palette data")
)

// Palette is an immutable table of exactly 16 opaque RGB colors. It
// implements the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler
// interfaces.
type Palette [Size]color.RGBA

func weight(c color.RGBA) int {
	return int(c.R)*3 + int(c.G)*6 + int(c.B)
}

func opaque(c color.Color) color.RGBA {
	r, g, b, _ := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xff}
}

type byWeight []color.RGBA

func (p byWeight) Len() int {
	return len(p)
}

func (p byWeight) Swap(i, j int) {
	p[i], p[j] = p[j], p[i]
}

// Equal weights fall back to channel order so sorting is deterministic
func (p byWeight) Less(i, j int) bool {
	wi, wj := weight(p[i]), weight(p[j])
	switch {
	case wi != wj:
		return wi < wj
	case p[i].R != p[j].R:
		return p[i].R < p[j].R
	case p[i].G != p[j].G:
		return p[i].G < p[j].G
	default:
		return p[i].B < p[j].B
	}
}

// New builds a palette from a list of colors. Duplicates are removed, the
// remainder sorted by weight and padded to 16 entries with the heaviest
// color. It fails with ErrUnsupportedPaletteSize if there are no colors or
// more than 16 distinct ones.
func New(colors []color.Color) (*Palette, error) {
	seen := make(map[color.RGBA]struct{})
	unique := make([]color.RGBA, 0, Size)
	for _, c := range colors {
		rgb := opaque(c)
		if _, ok := seen[rgb]; ok {
			continue
		}
		seen[rgb] = struct{}{}
		unique = append(unique, rgb)
	}

	if len(unique) == 0 || len(unique) > Size {
		return nil, ErrUnsupportedPaletteSize
	}

	sort.Sort(byWeight(unique))

	p := new(Palette)
	for i := range p {
		if i < len(unique) {
			p[i] = unique[i]
		} else {
			p[i] = unique[len(unique)-1]
		}
	}
	return p, nil
}

// Histogram returns the distinct colors used by m
func Histogram(m image.Image) []color.Color {
	b := m.Bounds()
	seen := make(map[color.RGBA]struct{})
	var colors []color.Color
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := opaque(m.At(x, y))
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				colors = append(colors, c)
			}
		}
	}
	return colors
}

// FromImage builds a palette from the colors of a reference image. If the
// image uses more than 16 colors and reduce is true, it is first reduced
// with a median cut quantizer; otherwise ErrUnsupportedPaletteSize is
// returned.
func FromImage(m image.Image, reduce bool) (*Palette, error) {
	colors := Histogram(m)
	if len(colors) > Size && reduce {
		q := quantize.MedianCutQuantizer{}
		reduced := image.NewPaletted(m.Bounds(), q.Quantize(make(color.Palette, 0, Size), m))
		draw.Draw(reduced, reduced.Bounds(), m, m.Bounds().Min, draw.Src)
		colors = Histogram(reduced)
	}
	return New(colors)
}

// Normalize returns p with its entries re-sorted and re-padded. Normalizing
// a palette produced by New returns an identical palette.
func (p *Palette) Normalize() *Palette {
	colors := make([]color.Color, len(p))
	for i, c := range p {
		colors[i] = c
	}
	// A palette always holds between 1 and 16 distinct colors so New
	// can't fail here
	n, _ := New(colors)
	return n
}

// Index returns the index of the palette entry closest to c in Euclidean
// RGB distance. Ties go to the lowest index.
func (p *Palette) Index(c color.RGBA) uint8 {
	return Nearest(p[:], c)
}

// ColorPalette returns p as a color.Palette suitable for image.Paletted
func (p *Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// MarshalBinary encodes the palette as 16 RGB triples
func (p *Palette) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, Bytes)
	for _, c := range p {
		b = append(b, c.R, c.G, c.B)
	}
	return b, nil
}

// UnmarshalBinary decodes 16 RGB triples. The entries are taken as-is,
// without re-sorting.
func (p *Palette) UnmarshalBinary(b []byte) error {
	if len(b) < Bytes {
		return errShortPalette
	}
	for i := range p {
		p[i] = color.RGBA{b[i*3], b[i*3+1], b[i*3+2], 0xff}
	}
	return nil
}
