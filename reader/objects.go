// Package reader parses existing PDF files far enough to enumerate their
// pages, read page geometry and content streams, and extract plain text.
//
// It understands classic cross-reference tables (including incremental
// updates), cross-reference streams and compressed object streams. It does
// not decrypt; Encrypted reports whether a document needs a password.
package reader

import (
	"fmt"
	"strconv"
)

// Object is any PDF object. The set of implementations is closed.
type Object interface {
	pdfObject()
}

// Null is the PDF null object.
type Null struct{}

// Bool is a PDF boolean.
type Bool bool

// Int is a PDF integer.
type Int int64

// Real is a PDF real number.
type Real float64

// Name is a PDF name without its leading slash.
type Name string

// String is a PDF string (literal or hexadecimal) as raw bytes.
type String []byte

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary.
type Dict map[Name]Object

// Ref is an indirect object reference such as "12 0 R".
type Ref struct {
	Num, Gen int
}

// Stream is a stream object: its dictionary plus the still-encoded data.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (Null) pdfObject()   {}
func (Bool) pdfObject()   {}
func (Int) pdfObject()    {}
func (Real) pdfObject()   {}
func (Name) pdfObject()   {}
func (String) pdfObject() {}
func (Array) pdfObject()  {}
func (Dict) pdfObject()   {}
func (Ref) pdfObject()    {}
func (Stream) pdfObject() {}

func (r Ref) String() string {
	return strconv.Itoa(r.Num) + " " + strconv.Itoa(r.Gen) + " R"
}

// Name returns the name stored under key, or "".
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// Int returns the integer stored under key. Reals are truncated.
func (d Dict) Int(key Name) (int64, bool) {
	switch v := d[key].(type) {
	case Int:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// Array returns the array stored under key, or nil.
func (d Dict) Array(key Name) Array {
	a, _ := d[key].(Array)
	return a
}

// Number converts an Int or Real to float64.
func Number(o Object) (float64, bool) {
	switch v := o.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Rectangle is a PDF rectangle [llx lly urx ury].
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

func rectangle(o Object) (Rectangle, error) {
	arr, ok := o.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, fmt.Errorf("reader: rectangle must be a 4-element array")
	}
	var v [4]float64
	for i, item := range arr {
		n, ok := Number(item)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is not numeric", i)
		}
		v[i] = n
	}
	// Normalize so that the lower-left corner comes first.
	r := Rectangle{LLX: min(v[0], v[2]), LLY: min(v[1], v[3]), URX: max(v[0], v[2]), URY: max(v[1], v[3])}
	return r, nil
}
