// Package archive bundles named blobs into a single ZIP.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ErrArchive wraps every failure while writing the archive.
var ErrArchive = errors.New("archive error")

// Entry is one file inside the archive.
type Entry struct {
	Name string
	Data []byte
}

// Builder writes ZIP archives. The zero value uses default compression.
type Builder struct {
	Level    int
	Modified time.Time
}

// New returns a Builder with the given deflate level.
func New(level int) *Builder {
	return &Builder{Level: level}
}

// Build writes entries in order. A repeated name replaces the data of the
// earlier entry and keeps the earlier position.
func (b *Builder) Build(entries []Entry) ([]byte, error) {
	ordered := dedupe(entries)

	level := b.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	modified := b.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for _, e := range ordered {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrArchive, e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", ErrArchive, e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %v", ErrArchive, err)
	}
	return buf.Bytes(), nil
}

func dedupe(entries []Entry) []Entry {
	pos := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := pos[e.Name]; ok {
			out[i].Data = e.Data
			continue
		}
		pos[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}
