// Package reader parses existing PDF documents far enough to enumerate
// their pages, read page geometry, detect encryption and extract the text
// a page shows.
//
// The composer uses it to open source documents and size overlay pages.
// Text extraction is part of the public API for callers that inspect
// composed output, for example to check that a value landed on the
// expected page.
package reader

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pdfoverlay.reader'.
func tracer() tracing.Trace {
	return tracing.Select("pdfoverlay.reader")
}

// Document is a parsed PDF file.
type Document struct {
	Version string // from the file header, e.g. "1.7"

	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	pages   []*Page
	objStm  map[int]*objectStream
}

// Open parses the PDF file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", path, err)
	}
	return Parse(data)
}

// ReadFrom reads r to the end and parses the result.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return Parse(data)
}

// Parse parses a PDF held in memory. The slice is retained and must not be
// modified afterwards.
func Parse(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, fmt.Errorf("reader: missing %%PDF header")
	}
	d := &Document{
		Version: version(data),
		data:    data,
		xref:    make(map[int]xrefEntry),
		objStm:  make(map[int]*objectStream),
	}

	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	if d.trailer, err = d.loadXRef(start); err != nil {
		return nil, err
	}
	if err := d.buildPages(); err != nil {
		return nil, err
	}
	return d, nil
}

func version(data []byte) string {
	head := data[:min(len(data), 1024)]
	i := bytes.Index(head, []byte("%PDF-"))
	if i < 0 {
		return ""
	}
	l := newLexer(head[i+len("%PDF-"):])
	return l.word()
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page with the given 1-based number.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages iterates over all pages with their 1-based numbers.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, p := range d.pages {
			if !yield(i+1, p) {
				return
			}
		}
	}
}

// Encrypted reports whether the document carries an /Encrypt dictionary.
// Strings and streams of encrypted documents are returned undecrypted.
func (d *Document) Encrypted() bool {
	_, ok := d.trailer["Encrypt"]
	return ok
}

// Resolve follows o if it is a reference; other objects are returned as is.
// Dangling references resolve to Null.
func (d *Document) Resolve(o Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := o.(Ref)
		if !ok {
			return o, nil
		}
		var err error
		if o, err = d.object(ref); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reader: reference chain too deep")
}

func (d *Document) resolveDict(o Object) Dict {
	r, err := d.Resolve(o)
	if err != nil {
		return nil
	}
	dict, _ := r.(Dict)
	return dict
}

func (d *Document) object(ref Ref) (Object, error) {
	e, ok := d.xref[ref.Num]
	if !ok || !e.inUse {
		return Null{}, nil
	}
	if e.compressed() {
		return d.compressedObject(e)
	}
	if e.offset < 0 || e.offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("reader: object %s offset %d out of bounds", ref, e.offset)
	}
	l := newLexer(d.data[e.offset:])
	l.length = d.resolveLength
	_, o, err := l.indirect()
	if err != nil {
		return nil, err
	}
	return o, nil
}

// resolveLength resolves an indirect stream /Length. Lengths are never
// stored in streams themselves, so this cannot recurse.
func (d *Document) resolveLength(o Object) (int, bool) {
	ref, ok := o.(Ref)
	if !ok {
		return 0, false
	}
	e, ok := d.xref[ref.Num]
	if !ok || !e.inUse || e.compressed() || e.offset >= int64(len(d.data)) {
		return 0, false
	}
	l := newLexer(d.data[e.offset:])
	if _, v, err := l.indirect(); err == nil {
		if n, ok := v.(Int); ok && n >= 0 {
			return int(n), true
		}
	}
	return 0, false
}

// objectStream is a decoded /ObjStm with the offsets of its members.
type objectStream struct {
	data    []byte
	offsets []int // relative to data, one per member
}

func (d *Document) compressedObject(e xrefEntry) (Object, error) {
	stm, err := d.objectStream(e.stream)
	if err != nil {
		return nil, err
	}
	if e.index < 0 || e.index >= len(stm.offsets) {
		return nil, fmt.Errorf("reader: index %d out of range in object stream %d", e.index, e.stream)
	}
	l := newLexer(stm.data[stm.offsets[e.index]:])
	return l.object()
}

func (d *Document) objectStream(num int) (*objectStream, error) {
	if stm, ok := d.objStm[num]; ok {
		return stm, nil
	}
	o, err := d.object(Ref{Num: num})
	if err != nil {
		return nil, err
	}
	s, ok := o.(Stream)
	if !ok || s.Dict.Name("Type") != "ObjStm" {
		return nil, fmt.Errorf("reader: object %d is not an object stream", num)
	}
	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("reader: object stream %d: %w", num, err)
	}
	n, _ := s.Dict.Int("N")
	first, _ := s.Dict.Int("First")
	if first < 0 || int(first) > len(data) {
		return nil, fmt.Errorf("reader: object stream %d: /First out of range", num)
	}

	stm := &objectStream{data: data[first:]}
	header := newLexer(data[:first])
	for i := int64(0); i < n; i++ {
		header.word() // object number
		off, err := strconv.Atoi(header.word())
		if err != nil || off < 0 || off > len(stm.data) {
			return nil, fmt.Errorf("reader: object stream %d: malformed header", num)
		}
		stm.offsets = append(stm.offsets, off)
	}
	d.objStm[num] = stm
	return stm, nil
}
