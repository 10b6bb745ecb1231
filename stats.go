package ccc

import (
	"io"

	"github.com/bodgit/ccc/block"
	"github.com/klauspost/compress/zstd"
)

// Stats summarizes the blocks of a stream
type Stats struct {
	Header Header
	Frames int
	Blocks int
	// Solid counts blocks using a single color
	Solid int
	// Repeated counts blocks identical to the previous block of the
	// same frame
	Repeated int
	// ColorRepeated counts blocks with the same colors as the previous
	// block of the same frame but a different shape
	ColorRepeated int
	// Shapes is the number of distinct masks, counting the empty mask of
	// solid blocks as one of them
	Shapes int
	// Size is the number of bytes in whole frames plus the header
	Size int64
	// Compressed is Size after zstd compression
	Compressed int64
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// ReadStats reads a whole stream from r and summarizes it
func ReadStats(r io.Reader) (*Stats, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	cw := new(countingWriter)
	enc, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	s := &Stats{Header: rd.Header()}
	err = s.collect(rd, enc)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	s.Compressed = cw.n

	return s, nil
}

func (s *Stats) collect(rd *Reader, w io.Writer) error {
	header, err := s.Header.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	s.Size = int64(len(header))

	shapes := make(map[uint16]struct{})
	for {
		records, err := rd.ReadRecords()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		var last *block.Record
		for i := range records {
			rec := &records[i]
			if _, err := w.Write(rec[:]); err != nil {
				return err
			}

			if a, b := rec.Colors(); a == b && rec.Mask() == 0 {
				s.Solid++
			}
			shapes[rec.Mask()] = struct{}{}

			if last != nil && last[0] == rec[0] {
				if *last == *rec {
					s.Repeated++
				} else {
					s.ColorRepeated++
				}
			}
			last = rec
		}

		s.Frames++
		s.Blocks += len(records)
		s.Size += int64(len(records) * block.RecordSize)
	}

	s.Shapes = len(shapes)

	return nil
}
