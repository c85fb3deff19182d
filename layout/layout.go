// Package layout describes where and how runtime values are placed on the
// pages of a template PDF.
//
// A Document is an ordered list of Page configurations. Each Page names a
// 0-based page index of the source PDF and carries the Fields to draw on it.
// Fields form a closed set of variants: ConditionalText, Shape, Image,
// Barcode and PlainText.
//
// Configurations are usually decoded from YAML or JSON with Parse, which
// keeps the established wire keys:
//
//	- page_number: 0
//	  variables:
//	    - name: full_name
//	      x-coordinate: 72
//	      y-coordinate: 700
//	    - name: gender
//	      conditional_coordinates:
//	        - {if_value: "M", x-coordinate: 100, y-coordinate: 650, print_pattern: "X"}
//	        - {if_value: "F", x-coordinate: 140, y-coordinate: 650, print_pattern: "X"}
//	    - name: divider
//	      draw_shape: {shape: Line, r: 0, g: 0, b: 0,
//	        x0-coordinate: 0, y0-coordinate: 5, x1-coordinate: 6.5, y1-coordinate: 5}
package layout

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pdfoverlay.layout'.
func tracer() tracing.Trace {
	return tracing.Select("pdfoverlay.layout")
}

// Document is the configuration for a whole source document.
type Document struct {
	Pages []Page
}

// Page holds the fields drawn on one page of the source document.
type Page struct {
	Number int // 0-based page index in the source document
	Fields []Field
}

// Lookup returns the fields configured for page index n. If several pages
// share the same index the first one wins. The boolean reports whether any
// configuration exists for n.
func (d Document) Lookup(n int) ([]Field, bool) {
	for _, p := range d.Pages {
		if p.Number == n {
			return p.Fields, true
		}
	}
	return nil, false
}

// Index builds a page-index to fields map with the same first-match-wins
// semantics as Lookup.
func (d Document) Index() map[int][]Field {
	idx := make(map[int][]Field, len(d.Pages))
	for _, p := range d.Pages {
		if _, seen := idx[p.Number]; seen {
			tracer().Debugf("duplicate configuration for page %d ignored", p.Number)
			continue
		}
		idx[p.Number] = p.Fields
	}
	return idx
}

// Validate checks every page and field of the document.
func (d Document) Validate() error {
	for _, p := range d.Pages {
		if p.Number < 0 {
			return &ConfigError{Page: p.Number, Field: -1, Reason: "page_number must not be negative"}
		}
		for i, f := range p.Fields {
			if IsNil(f) {
				return &ConfigError{Page: p.Number, Field: i, Reason: "nil field"}
			}
			if err := f.validate(); err != nil {
				return &ConfigError{Page: p.Number, Field: i, Key: f.Key(), Reason: err.Error()}
			}
		}
	}
	return nil
}

// IsNil reports a nil interface as well as a nil pointer variant.
func IsNil(f Field) bool {
	switch v := f.(type) {
	case nil:
		return true
	case *ConditionalText:
		return v == nil
	case *Shape:
		return v == nil
	case *Image:
		return v == nil
	case *Barcode:
		return v == nil
	case *PlainText:
		return v == nil
	}
	return false
}
