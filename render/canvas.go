package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"

	"github.com/lvillar/pdfoverlay/layout"
)

// Inch is the number of points per inch.
const Inch = 72.0

// PageSize is a page extent in points.
type PageSize struct {
	Width, Height float64
}

// Standard page sizes.
var (
	Letter = PageSize{Width: 612, Height: 792}
	Legal  = PageSize{Width: 612, Height: 1008}
	A4     = PageSize{Width: 595.28, Height: 841.89}
)

// IsZero reports whether no size has been set.
func (s PageSize) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Canvas is the drawing surface a Renderer paints on. Positions are in
// points with the origin at the lower-left corner of the page.
type Canvas interface {
	SetFontSize(size float64)
	SetStrokeColor(c layout.RGB)
	// SetFillColor sets the color used to fill shapes and to paint text.
	SetFillColor(c layout.RGB)
	Text(x, y float64, s string)
	Line(x0, y0, x1, y1 float64)
	// Rect draws a rectangle with lower-left corner (x, y). The outline is
	// always stroked; the interior is painted only when fill is set.
	Rect(x, y, w, h float64, fill bool)
	Image(p *Picture, x, y, w, h float64) error
	Barcode(sym layout.Symbology, code string, x, y, w, h float64) error
	SaveState()
	Translate(dx, dy float64)
	RestoreState()
}

// Barcode tuning used for the two-dimensional stacked symbologies.
const (
	pdf417Columns       = 10
	pdf417SecurityLevel = 2
)

// pdfCanvas implements Canvas on a single gofpdf page. It flips the y axis
// because gofpdf measures from the top edge.
type pdfCanvas struct {
	pdf    *gofpdf.Fpdf
	size   PageSize
	family string
	tr     func(string) string // nil when the embedded UTF-8 font is used
}

// Font family names used on overlay pages.
const (
	FontFamily = "overlay"
	coreFamily = "Helvetica"
)

// newPDFCanvas prepares a fresh page of the given size with the font
// selected at fontSize.
func newPDFCanvas(size PageSize, font *Font, fontSize float64) *pdfCanvas {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("pdfoverlay", false)

	c := &pdfCanvas{pdf: pdf, size: size, family: coreFamily}
	if font != nil {
		pdf.AddUTF8FontFromBytes(FontFamily, "", font.data)
		c.family = FontFamily
	} else {
		c.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()
	pdf.SetFont(c.family, "", fontSize)
	return c
}

func (c *pdfCanvas) y(v float64) float64 {
	return c.size.Height - v
}

func (c *pdfCanvas) SetFontSize(size float64) {
	c.pdf.SetFontSize(size)
}

func (c *pdfCanvas) SetStrokeColor(col layout.RGB) {
	r, g, b := to255(col)
	c.pdf.SetDrawColor(r, g, b)
}

func (c *pdfCanvas) SetFillColor(col layout.RGB) {
	r, g, b := to255(col)
	c.pdf.SetFillColor(r, g, b)
	c.pdf.SetTextColor(r, g, b)
}

func (c *pdfCanvas) Text(x, y float64, s string) {
	if c.tr != nil {
		s = c.tr(s)
	}
	c.pdf.Text(x, c.y(y), s)
}

func (c *pdfCanvas) Line(x0, y0, x1, y1 float64) {
	c.pdf.Line(x0, c.y(y0), x1, c.y(y1))
}

func (c *pdfCanvas) Rect(x, y, w, h float64, fill bool) {
	style := "D"
	if fill {
		style = "FD"
	}
	c.pdf.Rect(x, c.y(y)-h, w, h, style)
}

func (c *pdfCanvas) Image(p *Picture, x, y, w, h float64) error {
	opt := gofpdf.ImageOptions{ImageType: p.Type}
	if c.pdf.GetImageInfo(p.Name) == nil {
		c.pdf.RegisterImageOptionsReader(p.Name, opt, bytes.NewReader(p.Data))
		if c.pdf.Err() {
			return fmt.Errorf("render: registering image: %w", c.pdf.Error())
		}
	}
	c.pdf.ImageOptions(p.Name, x, c.y(y)-h, w, h, false, opt, 0, "")
	if c.pdf.Err() {
		return fmt.Errorf("render: drawing image: %w", c.pdf.Error())
	}
	return nil
}

func (c *pdfCanvas) Barcode(sym layout.Symbology, code string, x, y, w, h float64) error {
	var key string
	switch sym {
	case layout.Code128:
		key = barcode.RegisterCode128(c.pdf, code)
	case layout.QR:
		key = barcode.RegisterQR(c.pdf, code, qr.M, qr.Unicode)
	case layout.PDF417:
		key = barcode.RegisterPdf417(c.pdf, code, pdf417Columns, pdf417SecurityLevel)
	case layout.DataMatrix:
		key = barcode.RegisterDataMatrix(c.pdf, code)
	default:
		return fmt.Errorf("render: unknown barcode type %q", sym)
	}
	if c.pdf.Err() {
		return fmt.Errorf("render: encoding %s barcode: %w", sym, c.pdf.Error())
	}
	barcode.Barcode(c.pdf, key, x, c.y(y)-h, w, h, false)
	if c.pdf.Err() {
		return fmt.Errorf("render: drawing %s barcode: %w", sym, c.pdf.Error())
	}
	return nil
}

func (c *pdfCanvas) SaveState() {
	c.pdf.TransformBegin()
}

// Translate moves the origin; positive dy moves it up.
func (c *pdfCanvas) Translate(dx, dy float64) {
	c.pdf.TransformTranslate(dx, -dy)
}

func (c *pdfCanvas) RestoreState() {
	c.pdf.TransformEnd()
}

// Bytes finalizes the page and returns the serialized PDF.
func (c *pdfCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func to255(c layout.RGB) (r, g, b int) {
	conv := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return conv(c.R), conv(c.G), conv(c.B)
}
