package block

import (
	"errors"
	"image"
)

// ErrNotAligned is returned for frames whose width or height is zero or
// not a multiple of 4
var ErrNotAligned = errors.New("block: dimensions not a multiple of 4")

// Count returns the number of blocks in a frame of the given size
func Count(width, height int) (int, error) {
	if width <= 0 || height <= 0 || width%Width != 0 || height%Height != 0 {
		return 0, ErrNotAligned
	}
	return width / Width * (height / Height), nil
}

// Rect returns the pixel rectangle covered by block i in a frame of the
// given width
func Rect(i, width int) image.Rectangle {
	across := width / Width
	x, y := i%across*Width, i/across*Height
	return image.Rect(x, y, x+Width, y+Height)
}

// pixel returns the coordinates of pixel i of the block covering r
func pixel(r image.Rectangle, i int) (int, int) {
	return r.Min.X + i%Width, r.Min.Y + i/Width
}
