package render

import (
	"errors"
	"fmt"

	"github.com/lvillar/pdfoverlay/layout"
)

// DefaultFontSize is the font size of fields without an override.
const DefaultFontSize = 10.0

// OverlayPage is a rendered single-page PDF waiting to be merged onto a
// page of the source document.
type OverlayPage struct {
	Data          []byte
	Width, Height float64
}

// Renderer turns page configurations into overlay pages. It holds no
// per-page state and may be reused across pages and documents.
type Renderer struct {
	font     *Font
	fontSize float64
	pageSize PageSize
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFontSize sets the default font size in points.
func WithFontSize(size float64) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.fontSize = size
		}
	}
}

// WithPageSize sets the overlay page size used when Render is called with
// a zero size.
func WithPageSize(size PageSize) Option {
	return func(r *Renderer) {
		if !size.IsZero() {
			r.pageSize = size
		}
	}
}

// NewRenderer creates a Renderer that sets text in font. A nil font selects
// the core Helvetica font. Defaults: 10pt text on US Letter pages.
func NewRenderer(font *Font, opts ...Option) *Renderer {
	r := &Renderer{
		font:     font,
		fontSize: DefaultFontSize,
		pageSize: Letter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FontSize returns the default font size.
func (r *Renderer) FontSize() float64 { return r.fontSize }

// PageSize returns the default overlay page size.
func (r *Renderer) PageSize() PageSize { return r.pageSize }

// Render draws fields onto a new overlay page of the given size. A zero
// size selects the renderer's default page size. The canvas behind the page
// is discarded once the page has been serialized.
func (r *Renderer) Render(fields []layout.Field, values layout.Values, size PageSize) (*OverlayPage, error) {
	if size.IsZero() {
		size = r.pageSize
	}
	c := newPDFCanvas(size, r.font, r.fontSize)
	if err := r.Draw(c, fields, values); err != nil {
		return nil, err
	}
	data, err := c.Bytes()
	if err != nil {
		return nil, fmt.Errorf("render: writing overlay page: %w", err)
	}
	return &OverlayPage{Data: data, Width: size.Width, Height: size.Height}, nil
}

// Draw paints fields onto c in list order. Before each field the font size
// is set to the field's override or the default, and stroke and fill colors
// are reset to black. The first failing field aborts drawing.
func (r *Renderer) Draw(c Canvas, fields []layout.Field, values layout.Values) error {
	for i, f := range fields {
		if layout.IsNil(f) {
			return fmt.Errorf("render: field %d: %w: nil", i, ErrUnknownField)
		}
		c.SetFontSize(f.FontSizeOr(r.fontSize))
		c.SetStrokeColor(layout.Black)
		c.SetFillColor(layout.Black)

		if err := r.drawField(c, f, values); err != nil {
			tracer().Errorf("field %d (%s %q): %v", i, f.Kind(), f.Key(), err)
			return fmt.Errorf("render: field %d: %w", i, err)
		}
		tracer().Debugf("drew field %d (%s %q)", i, f.Kind(), f.Key())
	}
	return nil
}

func (r *Renderer) drawField(c Canvas, f layout.Field, values layout.Values) error {
	switch f := f.(type) {
	case layout.ConditionalText:
		return drawConditional(c, f, values)
	case *layout.ConditionalText:
		return drawConditional(c, *f, values)
	case layout.Shape:
		drawShape(c, f)
		return nil
	case *layout.Shape:
		drawShape(c, *f)
		return nil
	case layout.Image:
		return drawImage(c, f, values)
	case *layout.Image:
		return drawImage(c, *f, values)
	case layout.Barcode:
		return drawBarcode(c, f, values)
	case *layout.Barcode:
		return drawBarcode(c, *f, values)
	case layout.PlainText:
		return drawText(c, f, values)
	case *layout.PlainText:
		return drawText(c, *f, values)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownField, f)
	}
}

func drawConditional(c Canvas, f layout.ConditionalText, values layout.Values) error {
	v, err := values.Lookup(f.Name)
	if err != nil {
		return err
	}
	rule, ok := f.Match(v)
	if !ok {
		return &UnresolvedFieldError{Key: f.Name, Value: v}
	}
	c.Text(rule.X, rule.Y, rule.Text())
	return nil
}

// drawShape shifts the origin one inch right and up for this shape only,
// then scales the inch coordinates to points.
func drawShape(c Canvas, f layout.Shape) {
	c.SaveState()
	defer c.RestoreState()

	c.Translate(Inch, Inch)
	c.SetStrokeColor(layout.Black)
	c.SetFillColor(f.Color)

	switch f.Shape {
	case layout.Line:
		c.Line(f.X0*Inch, f.Y0*Inch, f.X1*Inch, f.Y1*Inch)
	case layout.Rectangle:
		c.Rect(f.X0*Inch, f.Y0*Inch, f.X1*Inch, f.Y1*Inch, f.Fill)
	}
}

func drawImage(c Canvas, f layout.Image, values layout.Values) error {
	v, err := values.Lookup(f.Name)
	if err != nil {
		return err
	}
	p, err := ResolveImage(v)
	if err != nil {
		return fmt.Errorf("image %q: %w", f.Name, err)
	}
	return c.Image(p, f.X, f.Y, f.Width, f.Height)
}

func drawBarcode(c Canvas, f layout.Barcode, values layout.Values) error {
	v, err := values.Lookup(f.Name)
	if err != nil {
		return err
	}
	code := layout.Stringify(v)
	if code == "" {
		return fmt.Errorf("barcode %q: empty value", f.Name)
	}
	return c.Barcode(f.Symbology, code, f.X, f.Y, f.Width, f.Height)
}

func drawText(c Canvas, f layout.PlainText, values layout.Values) error {
	text := f.Value
	if text == "" {
		v, err := values.Lookup(f.Name)
		if err != nil {
			return &UnresolvedFieldError{Key: f.Name, Err: err}
		}
		if v == nil {
			return &UnresolvedFieldError{Key: f.Name, Err: errors.New("value is nil")}
		}
		text = layout.Stringify(v)
	}
	c.Text(f.X, f.Y, text)
	return nil
}
