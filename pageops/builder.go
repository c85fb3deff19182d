package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lvillar/pdfoverlay/render"
)

// ErrEmpty is returned when serializing a builder without pages.
var ErrEmpty = errors.New("pageops: document has no pages")

// Builder accumulates output pages.
//
// Pages and overlays are recorded as they are added and imported into one
// gofpdi importer when the document is serialized. gofpdi numbers the
// templates of each stream from the count reached when it first sees that
// stream, so all pages of a source are imported in one run, sources in the
// order they first appear, and overlays after every source page.
//
// Only the page content is imported. Annotations, links and AcroForm
// widgets of source pages are not carried over.
type Builder struct {
	pdf   *gofpdf.Fpdf
	imp   *gofpdi.Importer
	pages []*outputPage
	held  []*io.ReadSeeker
	out   []byte
	err   error
}

type outputPage struct {
	src      *Source
	index    int
	size     render.PageSize
	tpl      int
	overlays []*overlay
}

type overlay struct {
	page *render.OverlayPage
	tpl  int
}

// NewBuilder creates an empty output document.
func NewBuilder() *Builder {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: render.Letter.Width, Ht: render.Letter.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("pdfoverlay", false)
	return &Builder{
		pdf: pdf,
		imp: gofpdi.NewImporter(),
	}
}

// NumPages returns the number of pages appended so far.
func (b *Builder) NumPages() int {
	return len(b.pages)
}

// AppendPage copies page i of src to the end of the output, at the page's
// own size.
func (b *Builder) AppendPage(src *Source, i int) error {
	if b.sealed() {
		return fmt.Errorf("pageops: builder already serialized")
	}
	size, err := src.PageSize(i)
	if err != nil {
		return err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("pageops: page %d has an empty MediaBox", i)
	}
	b.pages = append(b.pages, &outputPage{src: src, index: i, size: size})
	tracer().Debugf("appended page %d (%.2f x %.2f pt)", i, size.Width, size.Height)
	return nil
}

// MergeOverlay paints the first page of an overlay document over the last
// appended page. The overlay keeps its own size and is anchored at the
// page's lower-left corner, so overlay user space coincides with the
// page's. Several overlays on one page are painted in the order merged.
func (b *Builder) MergeOverlay(ov *render.OverlayPage) error {
	if len(b.pages) == 0 {
		return fmt.Errorf("pageops: no page to merge an overlay onto")
	}
	if b.sealed() {
		return fmt.Errorf("pageops: builder already serialized")
	}
	if ov == nil || len(ov.Data) == 0 {
		return fmt.Errorf("pageops: empty overlay")
	}
	last := b.pages[len(b.pages)-1]
	last.overlays = append(last.overlays, &overlay{page: ov})
	tracer().Debugf("merged %.2f x %.2f pt overlay onto page %d", ov.Width, ov.Height, len(b.pages)-1)
	return nil
}

func (b *Builder) sealed() bool {
	return b.out != nil || b.err != nil
}

func (b *Builder) hold(r io.ReadSeeker) *io.ReadSeeker {
	rs := new(io.ReadSeeker)
	*rs = r
	b.held = append(b.held, rs)
	return rs
}

// importTemplates imports every recorded page and overlay. gofpdi reports
// unreadable input by panicking.
func (b *Builder) importTemplates() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pageops: importing pages: %v", r)
		}
	}()

	var sources []*Source
	bySource := make(map[*Source][]*outputPage)
	for _, p := range b.pages {
		if _, ok := bySource[p.src]; !ok {
			sources = append(sources, p.src)
		}
		bySource[p.src] = append(bySource[p.src], p)
	}
	for _, src := range sources {
		rs := b.hold(src.stream())
		for _, p := range bySource[src] {
			p.tpl = b.imp.ImportPageFromStream(b.pdf, rs, p.index+1, "/MediaBox")
		}
	}
	for _, p := range b.pages {
		for _, ov := range p.overlays {
			rs := b.hold(bytes.NewReader(ov.page.Data))
			ov.tpl = b.imp.ImportPageFromStream(b.pdf, rs, 1, "/MediaBox")
		}
	}
	return b.pdf.Error()
}

func (b *Builder) build() error {
	if err := b.importTemplates(); err != nil {
		return err
	}
	for n, p := range b.pages {
		b.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.size.Width, Ht: p.size.Height})
		b.imp.UseImportedTemplate(b.pdf, p.tpl, 0, 0, p.size.Width, p.size.Height)
		for _, ov := range p.overlays {
			y := p.size.Height - ov.page.Height
			b.imp.UseImportedTemplate(b.pdf, ov.tpl, 0, y, ov.page.Width, ov.page.Height)
		}
		if err := b.pdf.Error(); err != nil {
			return fmt.Errorf("pageops: placing page %d: %w", n, err)
		}
	}
	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return fmt.Errorf("pageops: writing document: %w", err)
	}
	b.out = buf.Bytes()
	return nil
}

// Bytes serializes the document. The builder cannot be extended afterwards;
// repeated calls return the same bytes, or the same error.
func (b *Builder) Bytes() ([]byte, error) {
	switch {
	case b.out != nil:
		return b.out, nil
	case b.err != nil:
		return nil, b.err
	case len(b.pages) == 0:
		return nil, ErrEmpty
	}
	if b.err = b.build(); b.err != nil {
		return nil, b.err
	}
	return b.out, nil
}

// Output writes the serialized document to w.
func (b *Builder) Output(w io.Writer) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// OutputFile writes the serialized document to a file.
func (b *Builder) OutputFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pageops: creating %s: %w", path, err)
	}
	return nil
}
