package block

import (
	"errors"
	"image"
	"image/color"
)

var errBlockCount = errors.New("block: wrong number of records for frame")

// Decode expands records into an indexed image of the given size. The
// records must cover the frame exactly, in row-major block order.
func Decode(records []Record, width, height int, p color.Palette) (*image.Paletted, error) {
	n, err := Count(width, height)
	if err != nil {
		return nil, err
	}
	if len(records) != n {
		return nil, errBlockCount
	}

	m := image.NewPaletted(image.Rect(0, 0, width, height), p)
	for i, rec := range records {
		r := Rect(i, width)
		for j, idx := range rec.Pixels() {
			x, y := pixel(r, j)
			m.Pix[m.PixOffset(x, y)] = idx
		}
	}
	return m, nil
}

// Records serializes blocks
func Records(blocks []Block) []Record {
	records := make([]Record, len(blocks))
	for i, b := range blocks {
		records[i] = b.Record()
	}
	return records
}
