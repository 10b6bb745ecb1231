package ccc

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/bodgit/ccc/block"
	"github.com/bodgit/ccc/dither"
	"github.com/bodgit/ccc/palette"
)

// Logged progress is reported every five seconds of 12 fps video
const (
	framesPerSecond = 12
	progressFrames  = framesPerSecond * 5
)

// FrameSource yields frames in order, returning io.EOF after the last one
type FrameSource interface {
	ReadFrame() (image.Image, error)
}

// FrameSink receives decoded frames in order
type FrameSink interface {
	WriteFrame(image.Image) error
}

// Encoder turns a sequence of frames into a stream. The palette and dither
// pattern are shared read-only by all workers.
type Encoder struct {
	palette *palette.Palette
	logger  *log.Logger

	// Dither is applied to every frame before quantization
	Dither dither.Pattern
	// Workers is the number of frames encoded concurrently
	Workers int
}

// NewEncoder returns an Encoder using the default dither pattern and one
// worker per CPU
func NewEncoder(p *palette.Palette, logger *log.Logger) *Encoder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Encoder{
		palette: p,
		logger:  logger,
		Dither:  dither.Default,
		Workers: runtime.GOMAXPROCS(0),
	}
}

// EncodeFrame encodes a single frame
func (e *Encoder) EncodeFrame(m image.Image) ([]block.Block, error) {
	return block.Encode(e.Dither.Apply(m), e.palette)
}

type job struct {
	seq   int
	frame image.Image
}

type result struct {
	seq    int
	blocks []block.Block
}

func (e *Encoder) readFrames(ctx context.Context, src FrameSource) (<-chan job, <-chan error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for seq := 0; ; seq++ {
			// Only ever stop between whole frames
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			m, err := src.ReadFrame()
			if err != nil {
				if err != io.EOF {
					errc <- err
				}
				return
			}

			select {
			case out <- job{seq, m}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func (e *Encoder) frameWorker(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup, width, height int, in <-chan job, out chan<- result) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer wg.Done()
		for j := range in {
			if b := j.frame.Bounds(); b.Dx() != width || b.Dy() != height {
				errc <- ErrFrameSize
				cancelFunc()
				return
			}

			blocks, err := e.EncodeFrame(j.frame)
			if err != nil {
				errc <- err
				cancelFunc()
				return
			}

			select {
			case out <- result{j.seq, blocks}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return errc
}

// writeFrames writes results strictly in sequence order. It always drains
// results so the workers can exit.
func (e *Encoder) writeFrames(w *Writer, cancelFunc context.CancelFunc, results <-chan result) (int, error) {
	var (
		next    int
		err     error
		pending = make(map[int][]block.Block)
	)
	for r := range results {
		if err != nil {
			continue
		}
		pending[r.seq] = r.blocks
		for blocks, ok := pending[next]; ok; blocks, ok = pending[next] {
			delete(pending, next)
			if err = w.WriteFrame(blocks); err != nil {
				cancelFunc()
				break
			}
			next++
			if next%progressFrames == 0 {
				sec := next / framesPerSecond
				e.logger.Printf("%d:%02d (%d frames)\n", sec/60, sec%60, next)
			}
		}
	}
	return next, err
}

// Encode writes a header followed by every frame read from src to w and
// returns the number of frames written. Frames are encoded concurrently but
// always written in the order they were read. If ctx is cancelled, encoding
// stops between frames so w only ever holds whole frames.
func (e *Encoder) Encode(ctx context.Context, w io.Writer, width, height int, src FrameSource) (int, error) {
	cw, err := NewWriter(w, &Header{Width: width, Height: height, Palette: *e.palette})
	if err != nil {
		return 0, err
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	frames, errc := e.readFrames(ctx, src)
	errcList = append(errcList, errc)

	results := make(chan result)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		errcList = append(errcList, e.frameWorker(ctx, cancelFunc, &wg, width, height, frames, results))
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	n, werr := e.writeFrames(cw, cancelFunc, results)

	err = waitForPipeline(errcList...)
	if werr != nil {
		return n, werr
	}
	return n, err
}

// waitForPipeline returns the first error reported by any stage. An error
// caused by the pipeline cancelling itself is only returned if nothing
// better was reported.
func waitForPipeline(errs ...<-chan error) error {
	var cancelled error
	for err := range mergeErrors(errs...) {
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			cancelled = err
		default:
			return err
		}
	}
	return cancelled
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
