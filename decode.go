package ccc

import (
	"context"
	"io"
	"log"
)

// Decoder hands every whole frame of a stream to a FrameSink
type Decoder struct {
	logger *log.Logger
}

// NewDecoder returns a Decoder logging progress to logger
func NewDecoder(logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Decoder{
		logger: logger,
	}
}

// Decode reads the stream from r and writes each decoded frame to sink in
// order. A partial frame at the end of the stream ends decoding without
// error. It returns the number of frames written.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, sink FrameSink) (int, error) {
	rd, err := NewReader(r)
	if err != nil {
		return 0, err
	}

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}

		m, err := rd.ReadFrame()
		if err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}

		if err := sink.WriteFrame(m); err != nil {
			return n, err
		}

		if (n+1)%progressFrames == 0 {
			sec := (n + 1) / framesPerSecond
			d.logger.Printf("%d:%02d (%d frames)\n", sec/60, sec%60, n+1)
		}
	}
}
