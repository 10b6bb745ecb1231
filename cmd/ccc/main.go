package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bodgit/ccc"
	"github.com/bodgit/ccc/dither"
	"github.com/bodgit/ccc/frames"
	"github.com/bodgit/ccc/palette"
	"github.com/urfave/cli/v2"
)

const stdio = "-"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func openInput(name string) (io.ReadCloser, error) {
	if name == stdio {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func createOutput(name string) (io.WriteCloser, error) {
	if name == stdio {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(name)
}

func writePNG(name string, m image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, m); err != nil {
		return err
	}
	return f.Close()
}

func loadPalette(c *cli.Context, logger *log.Logger, file string) (*palette.Palette, error) {
	reduce := c.Bool("quantize")
	if c.String("db") == "" {
		return ccc.LoadPalette(file, reduce)
	}

	db, err := ccc.NewPaletteDB(c.String("db"), logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.LoadPalette(file, reduce)
}

func frameSource(c *cli.Context, inputs []string) (ccc.FrameSource, int, int, func() error, error) {
	if c.IsSet("width") || c.IsSet("height") {
		if len(inputs) != 1 {
			return nil, 0, 0, nil, errors.New("raw video needs exactly one input")
		}
		in, err := openInput(inputs[0])
		if err != nil {
			return nil, 0, 0, nil, err
		}
		r, err := frames.NewReader(in, c.Int("width"), c.Int("height"))
		if err != nil {
			in.Close()
			return nil, 0, 0, nil, err
		}
		return r, c.Int("width"), c.Int("height"), in.Close, nil
	}

	files := frames.NewFiles(inputs...)
	cfg, err := files.Config()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	return files, cfg.Width, cfg.Height, func() error { return nil }, nil
}

func traceFrame(enc *ccc.Encoder, src ccc.FrameSource, n int, output string) error {
	var m image.Image
	for i := 0; i <= n; i++ {
		var err error
		if m, err = src.ReadFrame(); err != nil {
			if err == io.EOF {
				return fmt.Errorf("frame %d not found", n)
			}
			return err
		}
	}

	lo, hi, err := enc.Trace(m)
	if err != nil {
		return err
	}
	out, err := enc.Reconstruct(m)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(output, filepath.Ext(output))
	for name, m := range map[string]image.Image{
		base + ".lo.png": lo,
		base + ".hi.png": hi,
		base + ".png":    out,
	} {
		if err := writePNG(name, m); err != nil {
			return err
		}
	}
	return nil
}

func encode(c *cli.Context) error {
	if c.NArg() < 3 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	p, err := loadPalette(c, logger, c.Args().Get(0))
	if err != nil {
		return err
	}

	src, width, height, closeFunc, err := frameSource(c, c.Args().Slice()[2:])
	if err != nil {
		return err
	}
	defer closeFunc()

	enc := ccc.NewEncoder(p, logger)
	if c.Bool("no-dither") {
		enc.Dither = dither.None
	} else {
		enc.Dither = dither.Pattern{Scale: c.Int("dither-scale"), Offset: c.Int("dither-offset")}
	}
	if c.IsSet("workers") {
		enc.Workers = c.Int("workers")
	}

	if c.IsSet("trace-frame") {
		return traceFrame(enc, src, c.Int("trace-frame"), c.Args().Get(1))
	}

	out, err := createOutput(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, cancelFunc := signalContext()
	defer cancelFunc()

	n, err := enc.Encode(ctx, out, width, height, src)
	logger.Printf("Encoded %d frames\n", n)
	if err != nil {
		return err
	}

	return out.Close()
}

func decode(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	in, err := openInput(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createOutput(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := frames.NewWriter(out, c.Int("scale"))
	if err != nil {
		return err
	}

	ctx, cancelFunc := signalContext()
	defer cancelFunc()

	n, err := ccc.NewDecoder(logger).Decode(ctx, in, w)
	logger.Printf("Decoded %d frames\n", n)
	if err != nil {
		return err
	}

	return out.Close()
}

func frame(c *cli.Context) error {
	if c.NArg() < 3 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	n, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || n < 0 {
		return fmt.Errorf("invalid frame number %q", c.Args().Get(1))
	}

	if c.Args().Get(0) == stdio {
		return errors.New("frame needs a seekable input file")
	}

	f, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer f.Close()

	r, count, err := ccc.ReadInfo(f)
	if err != nil {
		return err
	}

	if int64(n) >= count {
		return fmt.Errorf("frame %d not found, stream has %d frames", n, count)
	}

	if err := r.SeekFrame(int64(n)); err != nil {
		return err
	}

	m, err := r.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("frame %d not found", n)
		}
		return err
	}

	return writePNG(c.Args().Get(2), frames.Scale(m, c.Int("scale")))
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	in, err := openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer in.Close()

	count := int64(-1)
	if f, ok := in.(*os.File); ok && f != os.Stdin {
		if _, count, err = ccc.ReadInfo(f); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	s, err := ccc.ReadStats(in)
	if err != nil {
		return err
	}

	if count >= 0 && count != int64(s.Frames) {
		return fmt.Errorf("read %d frames, expected %d from the file size", s.Frames, count)
	}

	blocks, _ := s.Header.Blocks()
	frameSize, _ := s.Header.FrameSize()
	fmt.Printf("%s: %dx%d pixels, %dx%d blocks, %d bytes/frame\n", c.Args().First(), s.Header.Width, s.Header.Height, s.Header.Width/4, s.Header.Height/4, frameSize)
	fmt.Printf("frames:         %8d\n", s.Frames)
	if s.Blocks > 0 {
		fmt.Printf("solid:          %8d (%4.1f%%)\n", s.Solid, float64(s.Solid)*100/float64(s.Blocks))
		fmt.Printf("repeated:       %8d (%4.1f%%)\n", s.Repeated, float64(s.Repeated)*100/float64(s.Blocks))
		fmt.Printf("color repeated: %8d (%4.1f%%)\n", s.ColorRepeated, float64(s.ColorRepeated)*100/float64(s.Blocks))
	}
	fmt.Printf("distinct shapes:%8d\n", s.Shapes)
	fmt.Printf("blocks/frame:   %8d\n", blocks)
	fmt.Printf("size:           %8d bytes\n", s.Size)
	fmt.Printf("zstd:           %8d bytes\n", s.Compressed)

	return nil
}

func exitOnError(action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := action(c); err != nil {
			return cli.NewExitError(err, 1)
		}
		return nil
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "ccc"
	app.Usage = "Color Cell Compression video encoder and decoder"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"CCC_DB"},
			Usage:   "path to palette cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	scaleFlag := &cli.IntFlag{
		Name:  "scale",
		Value: 2,
		Usage: "enlarge decoded frames by this factor",
	}

	app.Commands = []*cli.Command{
		{
			Name:        "encode",
			Usage:       "Encode video frames",
			Description: "Frames are read as raw rgb24 video if --width and --height are given, otherwise each INPUT is a still image. Use - to read raw video from stdin.",
			ArgsUsage:   "PALETTE OUTPUT INPUT...",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "width",
					Usage: "raw video width in pixels",
				},
				&cli.IntFlag{
					Name:  "height",
					Usage: "raw video height in pixels",
				},
				&cli.IntFlag{
					Name:  "dither-scale",
					Value: dither.Default.Scale,
					Usage: "ordered dither strength",
				},
				&cli.IntFlag{
					Name:  "dither-offset",
					Value: dither.Default.Offset,
					Usage: "ordered dither offset, 128 is neutral",
				},
				&cli.BoolFlag{
					Name:  "no-dither",
					Usage: "disable ordered dithering",
				},
				&cli.BoolFlag{
					Name:  "quantize",
					Value: true,
					Usage: "reduce palette images with more than 16 colors",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of frames to encode concurrently",
				},
				&cli.IntFlag{
					Name:  "trace-frame",
					Usage: "write the color choices and reconstruction of this frame as PNG instead",
				},
			},
			Action: exitOnError(encode),
		},
		{
			Name:      "decode",
			Usage:     "Decode to raw rgb24 video",
			ArgsUsage: "INPUT OUTPUT",
			Flags:     []cli.Flag{scaleFlag},
			Action:    exitOnError(decode),
		},
		{
			Name:      "frame",
			Usage:     "Decode a single frame to PNG",
			ArgsUsage: "INPUT N OUTPUT",
			Flags:     []cli.Flag{scaleFlag},
			Action:    exitOnError(frame),
		},
		{
			Name:      "info",
			Usage:     "Print stream statistics",
			ArgsUsage: "INPUT",
			Action:    exitOnError(info),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
