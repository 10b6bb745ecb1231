package ccc

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"image"
	_ "image/gif" // register decoders for reference images
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"

	"github.com/bodgit/ccc/palette"
	_ "github.com/mattn/go-sqlite3"
)

// PaletteDB caches palettes built from reference images, keyed by the
// SHA-1 of the image file, so repeated encodes with the same reference
// image skip decoding and reducing it
type PaletteDB struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPaletteDB opens or creates the cache in file
func NewPaletteDB(file string, logger *log.Logger) (*PaletteDB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS palette (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, reduced INTEGER NOT NULL, colors BLOB NOT NULL, UNIQUE(sha1, reduced))"); err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &PaletteDB{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (db *PaletteDB) Close() error {
	return db.db.Close()
}

// Lookup returns the cached palette for the given image hash, or nil if
// there isn't one
func (db *PaletteDB) Lookup(sha string, reduce bool) (*palette.Palette, error) {
	var b []byte
	switch err := db.db.QueryRow("SELECT colors FROM palette WHERE sha1 = ? AND reduced = ?", sha, reduce).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		p := new(palette.Palette)
		if err := p.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}

// Store records the palette for the given image hash
func (db *PaletteDB) Store(sha string, reduce bool, p *palette.Palette) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := db.db.Exec("INSERT OR REPLACE INTO palette (sha1, reduced, colors) VALUES (?, ?, ?)", sha, reduce, b); err != nil {
		return err
	}
	return nil
}

// LoadPalette returns the palette for the reference image in file, building
// and caching it if it hasn't been seen before
func (db *PaletteDB) LoadPalette(file string, reduce bool) (*palette.Palette, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	sha := fmt.Sprintf("%X", h.Sum(nil))

	p, err := db.Lookup(sha, reduce)
	if err != nil || p != nil {
		return p, err
	}
	db.logger.Printf("No cached palette for \"%s\", with SHA-1 \"%s\"\n", file, sha)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if p, err = decodePalette(f, reduce); err != nil {
		return nil, err
	}

	if err := db.Store(sha, reduce, p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodePalette(r io.Reader, reduce bool) (*palette.Palette, error) {
	m, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return palette.FromImage(m, reduce)
}

// LoadPalette builds the palette for the reference image in file without
// a cache
func LoadPalette(file string, reduce bool) (*palette.Palette, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodePalette(f, reduce)
}
