// Package pdfdoc loads source PDFs and assembles new documents from
// selected pages using pdfcpu.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/metrics"
	"github.com/local/pdfsplitter/internal/selection"
)

var (
	ErrUnreadable = errors.New("unreadable pdf")
	ErrNoPages    = errors.New("pdf has no pages")
)

// AssemblyError reports a failure while building one output document.
type AssemblyError struct {
	Doc string
	Err error
}

func (e *AssemblyError) Error() string {
	if e.Doc == "" {
		return fmt.Sprintf("assembly failed: %v", e.Err)
	}
	return fmt.Sprintf("assembly failed (%s): %v", e.Doc, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Document is a loaded source PDF. Its page count never changes.
type Document struct {
	name  string
	data  []byte
	pages int
}

// Load reads a whole PDF into memory and counts its pages.
func Load(name string, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return FromBytes(name, data)
}

// FromBytes wraps PDF bytes already in memory.
func FromBytes(name string, data []byte) (*Document, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, name)
	}
	log.Debug().Str("file", name).Int("pages", n).Int("bytes", len(data)).Msg("loaded pdf")
	return &Document{name: name, data: data, pages: n}, nil
}

func (d *Document) Name() string   { return d.name }
func (d *Document) PageCount() int { return d.pages }
func (d *Document) Bytes() []byte  { return d.data }

// PageCounts returns the page count of each document, in order.
func PageCounts(docs []*Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.pages
	}
	return out
}

// Assembler builds one PDF per page group.
type Assembler struct{}

func NewAssembler() *Assembler { return &Assembler{} }

type segment struct {
	doc   int
	pages []string
}

// Assemble returns a new PDF holding exactly the referenced pages in the
// given order. Pages may come from several documents; consecutive pages of
// the same document are extracted together and the pieces merged.
func (a *Assembler) Assemble(ctx context.Context, docs []*Document, refs []selection.PageRef) ([]byte, error) {
	if len(refs) == 0 {
		return nil, &AssemblyError{Err: errors.New("empty page group")}
	}

	var segs []segment
	for _, r := range refs {
		if r.Doc < 0 || r.Doc >= len(docs) {
			return nil, &AssemblyError{Err: fmt.Errorf("document %d not loaded", r.Doc)}
		}
		if r.Index < 0 || r.Index >= docs[r.Doc].pages {
			return nil, &AssemblyError{Doc: docs[r.Doc].name, Err: fmt.Errorf("page index %d outside 0..%d", r.Index, docs[r.Doc].pages-1)}
		}
		if len(segs) == 0 || segs[len(segs)-1].doc != r.Doc {
			segs = append(segs, segment{doc: r.Doc})
		}
		last := &segs[len(segs)-1]
		last.pages = append(last.pages, strconv.Itoa(r.Index+1))
	}

	start := time.Now()
	parts := make([][]byte, 0, len(segs))
	for _, s := range segs {
		if err := ctx.Err(); err != nil {
			return nil, &AssemblyError{Doc: docs[s.doc].name, Err: err}
		}
		var out bytes.Buffer
		if err := api.Collect(bytes.NewReader(docs[s.doc].data), &out, s.pages, newConfig()); err != nil {
			return nil, &AssemblyError{Doc: docs[s.doc].name, Err: err}
		}
		parts = append(parts, out.Bytes())
	}

	result := parts[0]
	if len(parts) > 1 {
		readers := make([]io.ReadSeeker, len(parts))
		for i, p := range parts {
			readers[i] = bytes.NewReader(p)
		}
		var out bytes.Buffer
		if err := api.MergeRaw(readers, &out, false, newConfig()); err != nil {
			return nil, &AssemblyError{Err: fmt.Errorf("merge: %w", err)}
		}
		result = out.Bytes()
	}

	metrics.ObserveAssembly(time.Since(start))
	log.Debug().
		Int("pages", len(refs)).
		Int("segments", len(segs)).
		Int("bytes", len(result)).
		Dur("took", time.Since(start)).
		Msg("assembled pdf")
	return result, nil
}
