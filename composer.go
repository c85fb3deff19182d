package pdfoverlay

import (
	"io"

	"github.com/lvillar/pdfoverlay/layout"
	"github.com/lvillar/pdfoverlay/pageops"
	"github.com/lvillar/pdfoverlay/render"
)

// Composer overlays configured fields onto the pages of source documents.
//
// The font is registered once, when the composer is created, and used for
// every page it renders. A Composer keeps no state between calls to Compose.
type Composer struct {
	renderer   *render.Renderer
	sourceSize bool
}

// NewComposer creates a Composer that sets text in font. A nil font selects
// the core Helvetica font, which covers Latin-1 text only.
func NewComposer(font *render.Font, opts ...Option) *Composer {
	cfg := newConfig(opts)
	return &Composer{
		renderer: render.NewRenderer(font,
			render.WithFontSize(cfg.fontSize),
			render.WithPageSize(cfg.pageSize),
		),
		sourceSize: cfg.sourceSize,
	}
}

// Compose reads the source document from src and returns a document with
// the same pages in the same order. Pages with a configuration in doc get
// their fields drawn on top; all other pages are copied unchanged.
// Configuration entries for pages the source does not have are ignored.
//
// Composition stops at the first error and no document is returned.
// Failures are reported as *OverlayError.
func (c *Composer) Compose(src io.Reader, doc layout.Document, values layout.Values) (*pageops.Builder, error) {
	if err := doc.Validate(); err != nil {
		return nil, newOverlayError("configure", -1, err)
	}
	source, err := pageops.Open(src)
	if err != nil {
		return nil, newOverlayError("open", -1, err)
	}
	if source.Encrypted() {
		return nil, newOverlayError("open", -1, ErrEncrypted)
	}
	n := source.NumPages()
	if n == 0 {
		return nil, newOverlayError("open", -1, ErrNoPages)
	}

	index := doc.Index()
	for page := range index {
		if page >= n {
			tracer().Debugf("configuration for page %d ignored, source has %d pages", page, n)
		}
	}

	out := pageops.NewBuilder()
	overlaid := 0
	for i := 0; i < n; i++ {
		if err := out.AppendPage(source, i); err != nil {
			return nil, newOverlayError("append", i, err)
		}
		fields, ok := index[i]
		if !ok {
			continue
		}
		ov, err := c.renderPage(source, i, fields, values)
		if err != nil {
			tracer().Errorf("page %d: %v", i, err)
			return nil, newOverlayError("render", i, err)
		}
		if err := out.MergeOverlay(ov); err != nil {
			return nil, newOverlayError("merge", i, err)
		}
		overlaid++
		tracer().Debugf("page %d: %d fields overlaid", i, len(fields))
	}
	tracer().Infof("composed %d pages, %d with overlays", n, overlaid)
	return out, nil
}

func (c *Composer) renderPage(source *pageops.Source, i int, fields []layout.Field, values layout.Values) (*render.OverlayPage, error) {
	var size render.PageSize
	if c.sourceSize {
		var err error
		if size, err = source.PageSize(i); err != nil {
			return nil, err
		}
	}
	return c.renderer.Render(fields, values, size)
}

// Overlay composes src with doc and values in one call. font holds
// TrueType font data and may be nil to use the core Helvetica font. The
// result is not serialized; call Output or Bytes on it.
func Overlay(src io.Reader, doc layout.Document, values layout.Values, font []byte, opts ...Option) (*pageops.Builder, error) {
	var f *render.Font
	if font != nil {
		var err error
		if f, err = render.ParseFont(font); err != nil {
			return nil, newOverlayError("font", -1, err)
		}
	}
	return NewComposer(f, opts...).Compose(src, doc, values)
}
