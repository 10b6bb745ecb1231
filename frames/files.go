package frames

import (
	"image"
	_ "image/gif" // register decoders for still frames
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// Files reads each of a list of still images as one frame
type Files struct {
	names []string
}

// NewFiles returns a source reading the named image files in order
func NewFiles(names ...string) *Files {
	return &Files{
		names: names,
	}
}

// ReadFrame decodes the next file, or returns io.EOF once all files have
// been read
func (f *Files) ReadFrame() (image.Image, error) {
	if len(f.names) == 0 {
		return nil, io.EOF
	}

	file, err := os.Open(f.names[0])
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	f.names = f.names[1:]

	return m, nil
}

// Config returns the dimensions of the first file without consuming it
func (f *Files) Config() (image.Config, error) {
	if len(f.names) == 0 {
		return image.Config{}, io.EOF
	}

	file, err := os.Open(f.names[0])
	if err != nil {
		return image.Config{}, err
	}
	defer file.Close()

	c, _, err := image.DecodeConfig(file)
	return c, err
}
