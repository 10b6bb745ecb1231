/*
Package block implements the per-block half of Color Cell Compression.

A frame is split into 4 by 4 pixel blocks in row-major order. Each block is
approximated by two palette indices and a 16-bit shape mask choosing
between them per pixel, and stored as a fixed 3 byte record: the two
indices packed as nibbles followed by the big-endian mask. Bit 15-i of the
mask selects the second color for pixel i, counting pixels row-major from
the top-left corner of the block.
*/
package block

const (
	// Width of a block in pixels
	Width = 4
	// Height of a block in pixels
	Height = Width
	// Pixels is the number of pixels in a block
	Pixels = Width * Height
	// RecordSize is the size in bytes of a serialized block
	RecordSize = 3

	fullMask = 0xffff
)

func bit(i int) uint16 {
	return 0x8000 >> uint(i)
}

// Block is the encoded form of one block. It is either solid, using a
// single palette index, or shaped, using two different indices and a mask
// that is neither empty nor full. The zero value is a solid block of
// index 0. Blocks can only be built with Solid and Shaped so they are
// always in canonical form.
type Block struct {
	lo, hi uint8
	mask   uint16
}

// Solid returns a block using index for every pixel
func Solid(index uint8) Block {
	index &= 0x0f
	return Block{lo: index, hi: index}
}

// Shaped returns a block drawn with lo where mask bits are clear and hi
// where they are set. Degenerate input collapses to a solid block: a full
// mask keeps only hi, while equal indices or an empty mask keep only lo.
func Shaped(lo, hi uint8, mask uint16) Block {
	lo, hi = lo&0x0f, hi&0x0f
	switch {
	case mask == fullMask:
		// XXX The lo color is discarded even though the source block
		// may not have been solid
		return Solid(hi)
	case lo == hi || mask == 0:
		return Solid(lo)
	default:
		return Block{lo: lo, hi: hi, mask: mask}
	}
}

// Colors returns the two palette indices of the block. They are equal for
// a solid block.
func (b Block) Colors() (lo, hi uint8) {
	return b.lo, b.hi
}

// Mask returns the shape mask, zero for a solid block
func (b Block) Mask() uint16 {
	return b.mask
}

// Index returns the palette index of pixel i
func (b Block) Index(i int) uint8 {
	if b.mask&bit(i) != 0 {
		return b.hi
	}
	return b.lo
}

// Record returns the serialized form of the block
func (b Block) Record() Record {
	return Record{b.lo<<4 | b.hi, byte(b.mask >> 8), byte(b.mask)}
}

// Record is the 3 byte serialized form of a block
type Record [RecordSize]byte

// Colors returns the two nibbles of the first byte
func (r Record) Colors() (uint8, uint8) {
	return r[0] >> 4, r[0] & 0x0f
}

// Mask returns the big-endian shape mask
func (r Record) Mask() uint16 {
	return uint16(r[1])<<8 | uint16(r[2])
}

// Pixels expands the record into 16 palette indices, row-major. The
// record is taken literally, so it need not be in canonical form.
func (r Record) Pixels() [Pixels]uint8 {
	var px [Pixels]uint8
	a, b := r.Colors()
	mask := r.Mask()
	for i := range px {
		if mask&bit(i) != 0 {
			px[i] = b
		} else {
			px[i] = a
		}
	}
	return px
}
