// Package pageops opens existing PDF documents and assembles new ones from
// their pages, optionally painting an overlay page over each of them.
//
// Source pages are parsed with the reader package and imported into the
// output as templates through gofpdi. Page indices are 0-based throughout.
package pageops

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/npillmayer/schuko/tracing"

	"github.com/lvillar/pdfoverlay/reader"
	"github.com/lvillar/pdfoverlay/render"
)

// tracer traces with key 'pdfoverlay.pageops'.
func tracer() tracing.Trace {
	return tracing.Select("pdfoverlay.pageops")
}

// Source is an opened input document.
type Source struct {
	doc  *reader.Document
	data []byte
}

// Open reads r to the end and parses it as a PDF document.
func Open(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pageops: reading input: %w", err)
	}
	return openBytes(data)
}

// OpenFile opens the PDF document at path.
func OpenFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pageops: reading %s: %w", path, err)
	}
	return openBytes(data)
}

func openBytes(data []byte) (*Source, error) {
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pageops: %w", err)
	}
	tracer().Debugf("opened PDF %s with %d pages", doc.Version, doc.NumPages())
	return &Source{doc: doc, data: data}, nil
}

// NumPages returns the number of pages.
func (s *Source) NumPages() int {
	return s.doc.NumPages()
}

// Encrypted reports whether the source is password protected.
func (s *Source) Encrypted() bool {
	return s.doc.Encrypted()
}

// Document returns the parsed document.
func (s *Source) Document() *reader.Document {
	return s.doc
}

// PageSize returns the displayed size of page i in points: the MediaBox
// with width and height swapped for pages rotated by 90 or 270 degrees.
func (s *Source) PageSize(i int) (render.PageSize, error) {
	p, err := s.page(i)
	if err != nil {
		return render.PageSize{}, err
	}
	size := render.PageSize{Width: p.MediaBox.Width(), Height: p.MediaBox.Height()}
	if rot := ((p.Rotate % 360) + 360) % 360; rot == 90 || rot == 270 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

func (s *Source) page(i int) (*reader.Page, error) {
	if i < 0 || i >= s.NumPages() {
		return nil, fmt.Errorf("pageops: page index %d out of range [0, %d)", i, s.NumPages())
	}
	return s.doc.Page(i + 1)
}

// stream returns a fresh seekable view of the source bytes.
func (s *Source) stream() io.ReadSeeker {
	return bytes.NewReader(s.data)
}
