package palette

import "image/color"

func sqDiff(x, y uint8) int {
	d := int(x) - int(y)
	return d * d
}

// Distance returns the squared Euclidean distance between two colors,
// ignoring alpha
func Distance(c1, c2 color.RGBA) int {
	return sqDiff(c1.R, c2.R) + sqDiff(c1.G, c2.G) + sqDiff(c1.B, c2.B)
}

// Nearest returns the index of the color in colors closest to c. Ties go to
// the lowest index. It is used both against a full palette and against the
// two colors of a single block.
func Nearest(colors []color.RGBA, c color.RGBA) uint8 {
	var best uint8
	bestSum := int(^uint(0) >> 1)
	for i, pc := range colors {
		if sum := Distance(pc, c); sum < bestSum {
			best, bestSum = uint8(i), sum
			if sum == 0 {
				break
			}
		}
	}
	return best
}
