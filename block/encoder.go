package block

import (
	"image"
	"image/color"

	"github.com/bodgit/ccc/palette"
)

// Analysis records the intermediate choices made for one block
type Analysis struct {
	// Lo and Hi are the palette entries nearest the mean color of the
	// pixels darker than, and at least as bright as, the block's mean
	// luma
	Lo, Hi uint8
	// Population holds the two most frequent palette indices, ascending
	Population [2]uint8
	// Block is the final, normalized result
	Block Block
}

// luma uses the same fixed point ITU-R 601-2 weights as most image
// libraries' greyscale conversion
func luma(c color.RGBA) int {
	return (int(c.R)*19595 + int(c.G)*38470 + int(c.B)*7471 + 0x8000) >> 16
}

type accumulator struct {
	r, g, b, n int
}

func (a *accumulator) add(c color.RGBA) {
	a.r += int(c.R)
	a.g += int(c.G)
	a.b += int(c.B)
	a.n++
}

func (a *accumulator) mean() color.RGBA {
	h := a.n >> 1
	return color.RGBA{uint8((a.r + h) / a.n), uint8((a.g + h) / a.n), uint8((a.b + h) / a.n), 0xff}
}

// split returns the luma-split candidate pair
func split(px *[Pixels]color.RGBA, p *palette.Palette) (uint8, uint8) {
	var lumas [Pixels]int
	var sum int
	for i, c := range px {
		lumas[i] = luma(c)
		sum += lumas[i]
	}
	avg := (sum + Pixels>>1) / Pixels

	var lo, hi accumulator
	for i, c := range px {
		if lumas[i] >= avg {
			hi.add(c)
		} else {
			lo.add(c)
		}
	}

	// At least one pixel is always at or above the mean
	hiColor := hi.mean()
	if lo.n == 0 {
		return p.Index(hiColor), p.Index(hiColor)
	}
	return p.Index(lo.mean()), p.Index(hiColor)
}

// population returns the two most frequent palette indices in ascending
// order, ties going to the lower index. A block using one index returns it
// twice.
func population(px *[Pixels]color.RGBA, p *palette.Palette) [2]uint8 {
	var counts [palette.Size]int
	for _, c := range px {
		counts[p.Index(c)]++
	}

	first := 0
	for i := range counts {
		if counts[i] > counts[first] {
			first = i
		}
	}
	second := first
	for i := range counts {
		if i != first && counts[i] > 0 && (second == first || counts[i] > counts[second]) {
			second = i
		}
	}

	if second < first {
		first, second = second, first
	}
	return [2]uint8{uint8(first), uint8(second)}
}

// shape requantizes the block against only its two chosen colors
func shape(px *[Pixels]color.RGBA, p *palette.Palette, lo, hi uint8) uint16 {
	pair := []color.RGBA{p[lo], p[hi]}
	var mask uint16
	for i, c := range px {
		if palette.Nearest(pair, c) == 1 {
			mask |= bit(i)
		}
	}
	return mask
}

func analyze(px *[Pixels]color.RGBA, p *palette.Palette) Analysis {
	a := Analysis{Population: population(px, p)}
	a.Lo, a.Hi = split(px, p)

	lo, hi := a.Lo, a.Hi
	if lo == hi {
		lo, hi = a.Population[0], a.Population[1]
	}
	a.Block = Shaped(lo, hi, shape(px, p, lo, hi))
	return a
}

// Analyze runs the color pair selection and shape derivation over every
// block of an already dithered frame
func Analyze(m *image.RGBA, p *palette.Palette) ([]Analysis, error) {
	b := m.Bounds()
	n, err := Count(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	result := make([]Analysis, n)
	var px [Pixels]color.RGBA
	for i := range result {
		r := Rect(i, b.Dx()).Add(b.Min)
		for j := range px {
			px[j] = m.RGBAAt(pixel(r, j))
		}
		result[i] = analyze(&px, p)
	}
	return result, nil
}

// Encode returns the blocks of an already dithered frame in row-major
// order
func Encode(m *image.RGBA, p *palette.Palette) ([]Block, error) {
	analysis, err := Analyze(m, p)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, len(analysis))
	for i, a := range analysis {
		blocks[i] = a.Block
	}
	return blocks, nil
}
