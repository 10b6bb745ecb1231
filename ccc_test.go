package ccc_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/ccc"
	"github.com/bodgit/ccc/block"
	"github.com/bodgit/ccc/dither"
	"github.com/bodgit/ccc/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greyscale(t *testing.T) *palette.Palette {
	colors := make([]color.Color, palette.Size)
	for i := range colors {
		v := uint8(i * 17)
		colors[i] = color.RGBA{v, v, v, 0xff}
	}
	p, err := palette.New(colors)
	require.Nil(t, err)
	return p
}

type sliceSource struct {
	frames []image.Image
}

func (s *sliceSource) ReadFrame() (image.Image, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	m := s.frames[0]
	s.frames = s.frames[1:]
	return m, nil
}

type sliceSink struct {
	frames []image.Image
}

func (s *sliceSink) WriteFrame(m image.Image) error {
	s.frames = append(s.frames, m)
	return nil
}

func randomFrames(rng *rand.Rand, n, width, height int) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		m := image.NewRGBA(image.Rect(0, 0, width, height))
		rng.Read(m.Pix)
		frames[i] = m
	}
	return frames
}

func TestHeader(t *testing.T) {
	p := greyscale(t)

	t.Run("Should marshal the header", func(t *testing.T) {
		h := ccc.Header{Width: 256, Height: 144, Palette: *p}
		b, err := h.MarshalBinary()
		require.Nil(t, err)
		require.Len(t, b, ccc.HeaderSize)
		assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x90}, b[:4])
		assert.Equal(t, []byte{0, 0, 0, 17, 17, 17}, b[4:10])

		var h2 ccc.Header
		require.Nil(t, h2.UnmarshalBinary(b))
		assert.Equal(t, h, h2)
	})

	t.Run("Should reject unaligned dimensions", func(t *testing.T) {
		h := ccc.Header{Width: 10, Height: 8, Palette: *p}
		_, err := h.MarshalBinary()
		assert.Equal(t, ccc.ErrDimensionNotBlockAligned, err)

		b := make([]byte, ccc.HeaderSize)
		b[1], b[3] = 8, 6
		assert.Equal(t, ccc.ErrDimensionNotBlockAligned, h.UnmarshalBinary(b))
	})

	t.Run("Should reject short headers", func(t *testing.T) {
		var h ccc.Header
		assert.Equal(t, ccc.ErrMalformedHeader, h.UnmarshalBinary(make([]byte, ccc.HeaderSize-1)))

		_, err := ccc.NewReader(bytes.NewReader(make([]byte, 10)))
		assert.Equal(t, ccc.ErrMalformedHeader, err)

		_, err = ccc.NewReader(bytes.NewReader(nil))
		assert.Equal(t, ccc.ErrMalformedHeader, err)
	})

	t.Run("Should count whole frames", func(t *testing.T) {
		h := ccc.Header{Width: 8, Height: 4, Palette: *p}
		for _, table := range []struct {
			length int64
			frames int64
		}{
			{52, 0}, {57, 0}, {58, 1}, {63, 1}, {64, 2},
		} {
			n, err := h.Frames(table.length)
			require.Nil(t, err)
			assert.Equal(t, table.frames, n)
		}
	})
}

func TestReader(t *testing.T) {
	p := greyscale(t)
	h := ccc.Header{Width: 8, Height: 4, Palette: *p}

	var buf bytes.Buffer
	w, err := ccc.NewWriter(&buf, &h)
	require.Nil(t, err)
	require.Nil(t, w.WriteFrame([]block.Block{block.Solid(3), block.Shaped(5, 9, 0xaaaa)}))
	require.Nil(t, w.WriteFrame([]block.Block{block.Solid(15), block.Solid(0)}))
	assert.Equal(t, ccc.ErrFrameSize, w.WriteFrame([]block.Block{block.Solid(1)}))

	stream := buf.Bytes()
	require.Len(t, stream, ccc.HeaderSize+2*6)
	assert.Equal(t, []byte{0x33, 0x00, 0x00, 0x59, 0xaa, 0xaa}, stream[ccc.HeaderSize:ccc.HeaderSize+6])

	for extra := 0; extra < 6; extra++ {
		data := append(append([]byte{}, stream...), make([]byte, extra)...)
		r, err := ccc.NewReader(bytes.NewReader(data))
		require.Nil(t, err)
		assert.Equal(t, h, r.Header())

		m, err := r.ReadFrame()
		require.Nil(t, err)
		assert.Equal(t, uint8(3), m.ColorIndexAt(0, 0))
		assert.Equal(t, uint8(9), m.ColorIndexAt(4, 0))
		assert.Equal(t, uint8(5), m.ColorIndexAt(5, 0))
		assert.Equal(t, color.RGBA{153, 153, 153, 255}, m.At(4, 3))

		m, err = r.ReadFrame()
		require.Nil(t, err)
		assert.Equal(t, uint8(15), m.ColorIndexAt(3, 3))
		assert.Equal(t, uint8(0), m.ColorIndexAt(7, 3))

		_, err = r.ReadFrame()
		assert.Equal(t, io.EOF, err, "%d trailing bytes", extra)
	}

	cfg, err := ccc.DecodeConfig(bytes.NewReader(stream))
	require.Nil(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
	assert.Equal(t, p.ColorPalette(), cfg.ColorModel)
}

func TestEncoder(t *testing.T) {
	p := greyscale(t)
	rng := rand.New(rand.NewSource(1))
	frames := randomFrames(rng, 25, 16, 8)

	var expected bytes.Buffer
	enc := ccc.NewEncoder(p, nil)
	w, err := ccc.NewWriter(&expected, &ccc.Header{Width: 16, Height: 8, Palette: *p})
	require.Nil(t, err)
	for _, m := range frames {
		blocks, err := enc.EncodeFrame(m)
		require.Nil(t, err)
		require.Nil(t, w.WriteFrame(blocks))
	}

	for _, workers := range []int{1, 3, 8} {
		var buf bytes.Buffer
		enc := ccc.NewEncoder(p, nil)
		enc.Workers = workers

		n, err := enc.Encode(context.Background(), &buf, 16, 8, &sliceSource{append([]image.Image{}, frames...)})
		require.Nil(t, err)
		assert.Equal(t, len(frames), n)
		assert.Equal(t, expected.Bytes(), buf.Bytes(), "%d workers", workers)
	}

	t.Run("Should reject frames of the wrong size", func(t *testing.T) {
		var buf bytes.Buffer
		src := &sliceSource{[]image.Image{frames[0], image.NewRGBA(image.Rect(0, 0, 8, 8))}}
		_, err := enc.Encode(context.Background(), &buf, 16, 8, src)
		assert.Equal(t, ccc.ErrFrameSize, err)
		assert.Equal(t, 0, (buf.Len()-ccc.HeaderSize)%(8*block.RecordSize))
	})

	t.Run("Should reject unaligned dimensions", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := enc.Encode(context.Background(), &buf, 18, 8, &sliceSource{})
		assert.Equal(t, ccc.ErrDimensionNotBlockAligned, err)
	})

	t.Run("Should stop between frames when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var buf bytes.Buffer
		n, err := enc.Encode(ctx, &buf, 16, 8, &sliceSource{append([]image.Image{}, frames...)})
		assert.Equal(t, context.Canceled, err)
		assert.Equal(t, ccc.HeaderSize+n*8*block.RecordSize, buf.Len())
	})
}

func TestDecoder(t *testing.T) {
	p := greyscale(t)
	rng := rand.New(rand.NewSource(2))
	frames := randomFrames(rng, 5, 8, 8)

	enc := ccc.NewEncoder(p, nil)
	var buf bytes.Buffer
	_, err := enc.Encode(context.Background(), &buf, 8, 8, &sliceSource{append([]image.Image{}, frames...)})
	require.Nil(t, err)

	// Trailing partial frame is ignored
	buf.Write([]byte{0x12, 0x34})

	sink := new(sliceSink)
	n, err := ccc.NewDecoder(nil).Decode(context.Background(), bytes.NewReader(buf.Bytes()), sink)
	require.Nil(t, err)
	assert.Equal(t, len(frames), n)
	require.Len(t, sink.frames, len(frames))

	for i, m := range frames {
		expected, err := enc.Reconstruct(m)
		require.Nil(t, err)
		assert.Equal(t, expected.Pix, sink.frames[i].(*image.Paletted).Pix)
	}
}

func TestTrace(t *testing.T) {
	p := greyscale(t)
	m := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < block.Pixels; i++ {
		if i%4 < 2 {
			m.SetRGBA(i%4, i/4, p[2])
		} else {
			m.SetRGBA(i%4, i/4, p[12])
		}
	}

	enc := ccc.NewEncoder(p, nil)
	enc.Dither = dither.None

	lo, hi, err := enc.Trace(m)
	require.Nil(t, err)
	assert.Equal(t, uint8(2), lo.ColorIndexAt(3, 3))
	assert.Equal(t, uint8(12), hi.ColorIndexAt(0, 0))

	out, err := enc.Reconstruct(m)
	require.Nil(t, err)
	assert.Equal(t, uint8(2), out.ColorIndexAt(1, 1))
	assert.Equal(t, uint8(12), out.ColorIndexAt(2, 1))
}

func TestReadStats(t *testing.T) {
	p := greyscale(t)
	var buf bytes.Buffer
	w, err := ccc.NewWriter(&buf, &ccc.Header{Width: 16, Height: 4, Palette: *p})
	require.Nil(t, err)
	require.Nil(t, w.WriteFrame([]block.Block{
		block.Solid(1),
		block.Solid(1),
		block.Shaped(1, 2, 0x00ff),
		block.Shaped(1, 2, 0xff00),
	}))
	require.Nil(t, w.WriteFrame([]block.Block{
		block.Shaped(3, 4, 0x00ff),
		block.Shaped(3, 4, 0x00ff),
		block.Solid(7),
		block.Shaped(7, 8, 0x0f0f),
	}))
	buf.WriteByte(0xff)

	s, err := ccc.ReadStats(&buf)
	require.Nil(t, err)
	assert.Equal(t, 2, s.Frames)
	assert.Equal(t, 8, s.Blocks)
	assert.Equal(t, 3, s.Solid)
	assert.Equal(t, 2, s.Repeated)
	assert.Equal(t, 1, s.ColorRepeated)
	assert.Equal(t, 4, s.Shapes)
	assert.Equal(t, int64(ccc.HeaderSize+2*4*block.RecordSize), s.Size)
	assert.True(t, s.Compressed > 0)
}

func writeImage(t *testing.T, name string, colors ...color.RGBA) {
	m := image.NewRGBA(image.Rect(0, 0, len(colors), 1))
	for x, c := range colors {
		m.SetRGBA(x, 0, c)
	}
	f, err := os.Create(name)
	require.Nil(t, err)
	defer f.Close()
	require.Nil(t, png.Encode(f, m))
}

func TestPaletteDB(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "palette.png")
	writeImage(t, ref, color.RGBA{200, 0, 0, 255}, color.RGBA{0, 0, 0, 255})

	db, err := ccc.NewPaletteDB(filepath.Join(dir, "ccc.db"), nil)
	require.Nil(t, err)
	defer db.Close()

	p, err := db.LoadPalette(ref, true)
	require.Nil(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, p[0])
	assert.Equal(t, color.RGBA{200, 0, 0, 255}, p[15])

	cached, err := db.Lookup("nonexistent", true)
	require.Nil(t, err)
	assert.Nil(t, cached)

	// Replace the cached entry to prove the cache is consulted
	h := sha1Hex(t, ref)
	var fake palette.Palette
	for i := range fake {
		fake[i] = color.RGBA{1, 2, 3, 255}
	}
	require.Nil(t, db.Store(h, true, &fake))

	p, err = db.LoadPalette(ref, true)
	require.Nil(t, err)
	assert.Equal(t, fake, *p)

	// A different reduction setting is cached separately
	p, err = db.LoadPalette(ref, false)
	require.Nil(t, err)
	assert.Equal(t, color.RGBA{200, 0, 0, 255}, p[1])

	direct, err := ccc.LoadPalette(ref, false)
	require.Nil(t, err)
	assert.Equal(t, *p, *direct)
}

func TestReadInfo(t *testing.T) {
	p := greyscale(t)
	var buf bytes.Buffer
	w, err := ccc.NewWriter(&buf, &ccc.Header{Width: 8, Height: 4, Palette: *p})
	require.Nil(t, err)
	for i := uint8(0); i < 3; i++ {
		require.Nil(t, w.WriteFrame([]block.Block{block.Solid(i), block.Shaped(i, 15, 0x0ff0)}))
	}
	// Five trailing bytes fall short of another frame
	buf.Write([]byte{1, 2, 3, 4, 5})

	r, frames, err := ccc.ReadInfo(bytes.NewReader(buf.Bytes()))
	require.Nil(t, err)
	assert.Equal(t, int64(3), frames)
	assert.Equal(t, 8, r.Header().Width)

	t.Run("Should be positioned at the first frame", func(t *testing.T) {
		m, err := r.ReadFrame()
		require.Nil(t, err)
		assert.Equal(t, uint8(0), m.ColorIndexAt(0, 0))
	})

	t.Run("Should seek to any frame", func(t *testing.T) {
		require.Nil(t, r.SeekFrame(2))
		m, err := r.ReadFrame()
		require.Nil(t, err)
		assert.Equal(t, uint8(2), m.ColorIndexAt(0, 0))
		assert.Equal(t, uint8(15), m.ColorIndexAt(5, 1))

		_, err = r.ReadFrame()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("Should refuse to seek a plain reader", func(t *testing.T) {
		plain, err := ccc.NewReader(io.MultiReader(bytes.NewReader(buf.Bytes())))
		require.Nil(t, err)
		assert.NotNil(t, plain.SeekFrame(1))
	})

	t.Run("Should reject a short stream", func(t *testing.T) {
		_, _, err := ccc.ReadInfo(bytes.NewReader(buf.Bytes()[:20]))
		assert.Equal(t, ccc.ErrMalformedHeader, err)
	})
}

// endlessSource yields random frames until the context is done
type endlessSource struct {
	rng    *rand.Rand
	width  int
	height int
}

func (s *endlessSource) ReadFrame() (image.Image, error) {
	m := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.rng.Read(m.Pix)
	return m, nil
}

// cancelWriter cancels once it has seen a number of writes
type cancelWriter struct {
	bytes.Buffer
	writes int
	after  int
	cancel context.CancelFunc
}

func (w *cancelWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes == w.after {
		w.cancel()
	}
	return w.Buffer.Write(p)
}

func TestEncoderCancel(t *testing.T) {
	p := greyscale(t)
	frameSize := 4 * 2 * block.RecordSize

	for _, workers := range []int{2, 4} {
		ctx, cancel := context.WithCancel(context.Background())

		enc := ccc.NewEncoder(p, nil)
		enc.Workers = workers

		// The header is the first write, so cancel after three frames
		w := &cancelWriter{after: 4, cancel: cancel}
		src := &endlessSource{rng: rand.New(rand.NewSource(3)), width: 16, height: 8}

		n, err := enc.Encode(ctx, w, 16, 8, src)
		cancel()

		assert.Equal(t, context.Canceled, err)
		assert.True(t, n >= 3, "%d frames written", n)
		assert.Equal(t, ccc.HeaderSize+n*frameSize, w.Len())
		assert.Equal(t, 0, (w.Len()-ccc.HeaderSize)%frameSize)

		// Every frame written is complete and decodes
		r, err := ccc.NewReader(bytes.NewReader(w.Bytes()))
		require.Nil(t, err)
		for i := 0; i < n; i++ {
			_, err := r.ReadFrame()
			require.Nil(t, err)
		}
		_, err = r.ReadFrame()
		assert.Equal(t, io.EOF, err)
	}
}

type cancelSink struct {
	sliceSink
	after  int
	cancel context.CancelFunc
}

func (s *cancelSink) WriteFrame(m image.Image) error {
	if err := s.sliceSink.WriteFrame(m); err != nil {
		return err
	}
	if len(s.frames) == s.after {
		s.cancel()
	}
	return nil
}

func TestDecoderCancel(t *testing.T) {
	p := greyscale(t)
	rng := rand.New(rand.NewSource(4))

	var buf bytes.Buffer
	_, err := ccc.NewEncoder(p, nil).Encode(context.Background(), &buf, 8, 8, &sliceSource{randomFrames(rng, 5, 8, 8)})
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &cancelSink{after: 2, cancel: cancel}
	n, err := ccc.NewDecoder(nil).Decode(ctx, bytes.NewReader(buf.Bytes()), sink)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 2, n)
	assert.Len(t, sink.frames, 2)
}
