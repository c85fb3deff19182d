package layout

import (
	"errors"
	"fmt"
)

// Kind identifies the variant of a Field.
type Kind int

const (
	KindConditionalText Kind = iota
	KindShape
	KindImage
	KindBarcode
	KindPlainText
)

func (k Kind) String() string {
	switch k {
	case KindConditionalText:
		return "conditional-text"
	case KindShape:
		return "shape"
	case KindImage:
		return "image"
	case KindBarcode:
		return "barcode"
	case KindPlainText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one mark to draw on an overlay page. The set of implementations
// is closed: ConditionalText, Shape, Image, Barcode and PlainText.
type Field interface {
	// Key is the lookup key into Values.
	Key() string
	// FontSizeOr returns the field's font size override, or def if it has none.
	FontSizeOr(def float64) float64
	Kind() Kind
	validate() error
}

// Common holds the attributes shared by all field variants.
type Common struct {
	Name     string
	FontSize *float64 // nil: renderer default
}

func (c Common) Key() string { return c.Name }

func (c Common) FontSizeOr(def float64) float64 {
	if c.FontSize != nil {
		return *c.FontSize
	}
	return def
}

func (c Common) validate() error {
	if c.FontSize != nil && *c.FontSize <= 0 {
		return fmt.Errorf("font_size must be positive, got %g", *c.FontSize)
	}
	return nil
}

// Size is a convenience for building a FontSize override.
func Size(pt float64) *float64 { return &pt }

// Rule is one alternative of a ConditionalText field.
type Rule struct {
	IfValue any // trigger value compared against Values[Key]
	X, Y    float64
	Pattern string // text to draw; empty draws the trigger value itself
}

// Text returns the text drawn when the rule matches.
func (r Rule) Text() string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return Stringify(r.IfValue)
}

// ConditionalText draws text at a position chosen by the field's value.
type ConditionalText struct {
	Common
	Rules []Rule
}

func (ConditionalText) Kind() Kind { return KindConditionalText }

// Match returns the first rule whose trigger equals v.
func (f ConditionalText) Match(v any) (Rule, bool) {
	for _, r := range f.Rules {
		if Equal(r.IfValue, v) {
			return r, true
		}
	}
	return Rule{}, false
}

func (f ConditionalText) validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if len(f.Rules) == 0 {
		return errors.New("conditional_coordinates must not be empty")
	}
	for i, r := range f.Rules {
		if r.IfValue == nil {
			return fmt.Errorf("conditional_coordinates[%d]: if_value is required", i)
		}
	}
	return f.Common.validate()
}

// ShapeKind selects the primitive drawn by a Shape field.
type ShapeKind string

const (
	Line      ShapeKind = "Line"
	Rectangle ShapeKind = "Rectangle"
)

// RGB is a color with components in [0, 1].
type RGB struct {
	R, G, B float64
}

// Black is the default stroke and fill color.
var Black = RGB{}

func (c RGB) valid() bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 }
	return in(c.R) && in(c.G) && in(c.B)
}

// Shape draws a line or a rectangle. Coordinates are in inches, relative to
// an origin shifted one inch right and up from the page's lower-left corner.
// For a Rectangle, (X0, Y0) is the lower-left corner and (X1, Y1) the extent.
type Shape struct {
	Common
	Shape          ShapeKind
	Color          RGB
	X0, Y0, X1, Y1 float64
	Fill           bool
}

func (Shape) Kind() Kind { return KindShape }

func (f Shape) validate() error {
	if f.Shape != Line && f.Shape != Rectangle {
		return fmt.Errorf("unknown shape %q", f.Shape)
	}
	if !f.Color.valid() {
		return fmt.Errorf("color components must lie in [0, 1], got %v", f.Color)
	}
	return f.Common.validate()
}

// Image draws the image referenced by Values[Key] with its lower-left corner
// at (X, Y). The image is stretched to Width x Height.
type Image struct {
	Common
	X, Y, Width, Height float64
}

func (Image) Kind() Kind { return KindImage }

func (f Image) validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("image size must not be negative, got %gx%g", f.Width, f.Height)
	}
	return f.Common.validate()
}

// Symbology is a barcode encoding.
type Symbology string

const (
	Code128    Symbology = "code128"
	QR         Symbology = "qr"
	PDF417     Symbology = "pdf417"
	DataMatrix Symbology = "datamatrix"
)

// Barcode encodes Values[Key] and draws the symbol with its lower-left
// corner at (X, Y), stretched to Width x Height.
type Barcode struct {
	Common
	Symbology           Symbology
	X, Y, Width, Height float64
}

func (Barcode) Kind() Kind { return KindBarcode }

func (f Barcode) validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	switch f.Symbology {
	case Code128, QR, PDF417, DataMatrix:
	default:
		return fmt.Errorf("unknown barcode type %q", f.Symbology)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("barcode size must be positive, got %gx%g", f.Width, f.Height)
	}
	return f.Common.validate()
}

// PlainText draws Value, or Values[Key] when Value is empty, at (X, Y).
type PlainText struct {
	Common
	X, Y  float64
	Value string
}

func (PlainText) Kind() Kind { return KindPlainText }

func (f PlainText) validate() error {
	if f.Name == "" && f.Value == "" {
		return errors.New("either name or value is required")
	}
	return f.Common.validate()
}
