package pdfoverlay_test

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/lvillar/pdfoverlay"
	"github.com/lvillar/pdfoverlay/layout"
	"github.com/lvillar/pdfoverlay/reader"
	"github.com/lvillar/pdfoverlay/render"
)

// generateTestPDF creates a PDF with one A4 page per label.
func generateTestPDF(t *testing.T, labels ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, label := range labels {
		pdf.AddPage()
		pdf.Text(20, 20, label)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("generating test PDF: %v", err)
	}
	return buf.Bytes()
}

// buildPDF assembles a PDF with a classic xref table; objects[i] becomes
// object i+1.
func buildPDF(objects []string, trailer string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailer, xref)
	return buf.Bytes()
}

func compose(t *testing.T, src []byte, doc layout.Document, values layout.Values, opts ...pdfoverlay.Option) *reader.Document {
	t.Helper()
	out, err := pdfoverlay.NewComposer(nil, opts...).Compose(bytes.NewReader(src), doc, values)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	data, err := out.Bytes()
	if err != nil {
		t.Fatalf("serializing: %v", err)
	}
	result, err := reader.Parse(data)
	if err != nil {
		t.Fatalf("reading composed PDF: %v", err)
	}
	return result
}

func text(t *testing.T, doc *reader.Document, n int) string {
	t.Helper()
	p, err := doc.Page(n)
	if err != nil {
		t.Fatal(err)
	}
	s, err := p.ExtractText()
	if err != nil {
		t.Fatalf("page %d: %v", n, err)
	}
	return s
}

// forms returns the form XObjects reachable from the resources of page n.
func forms(t *testing.T, doc *reader.Document, n int) []reader.Stream {
	t.Helper()
	p, err := doc.Page(n)
	if err != nil {
		t.Fatal(err)
	}
	o, err := doc.Resolve(p.Resources["XObject"])
	if err != nil {
		t.Fatal(err)
	}
	xobjects, _ := o.(reader.Dict)
	var out []reader.Stream
	for _, ref := range xobjects {
		o, err := doc.Resolve(ref)
		if err != nil {
			t.Fatal(err)
		}
		if s, ok := o.(reader.Stream); ok && s.Dict.Name("Subtype") == "Form" {
			out = append(out, s)
		}
	}
	return out
}

func TestEmptyConfiguration(t *testing.T) {
	src := generateTestPDF(t, "Alpha", "Beta")
	doc := compose(t, src, layout.Document{}, nil)
	if doc.NumPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.NumPages())
	}

	orig, err := reader.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= 2; n++ {
		p, _ := orig.Page(n)
		want, err := p.ContentStream()
		if err != nil {
			t.Fatal(err)
		}
		// Each page is carried over as one form holding the original content.
		found := false
		for _, s := range forms(t, doc, n) {
			got, err := s.Decode()
			if err != nil {
				t.Fatal(err)
			}
			if bytes.Equal(bytes.TrimSpace(got), bytes.TrimSpace(want)) {
				found = true
			}
		}
		if !found {
			t.Errorf("page %d: original content not carried over", n)
		}
	}
}

func TestPlainTextOverlay(t *testing.T) {
	src := generateTestPDF(t, "Alpha", "Beta", "Gamma")
	cfg := layout.Document{Pages: []layout.Page{{
		Number: 1,
		Fields: []layout.Field{
			layout.PlainText{Common: layout.Common{Name: "customer"}, X: 72, Y: 700},
		},
	}}}
	doc := compose(t, src, cfg, layout.Values{"customer": "ACME Corp."})

	if doc.NumPages() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.NumPages())
	}
	second := text(t, doc, 2)
	if !strings.Contains(second, "Beta") || !strings.Contains(second, "ACME Corp.") {
		t.Errorf("page 2: text %q lacks original or overlay", second)
	}
	for _, n := range []int{1, 3} {
		if s := text(t, doc, n); strings.Contains(s, "ACME") {
			t.Errorf("page %d should be untouched, got %q", n, s)
		}
	}

	// The overlay is drawn at the configured position in page space.
	found := false
	for _, s := range forms(t, doc, 2) {
		content, err := s.Decode()
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Contains(content, []byte("(ACME Corp.) Tj")) {
			found = true
			if !bytes.Contains(content, []byte("72.00 700.00 Td")) {
				t.Errorf("overlay text not at (72, 700): %q", content)
			}
		}
	}
	if !found {
		t.Error("overlay form not found on page 2")
	}
}

func TestOverlaysOnSeveralPages(t *testing.T) {
	labels := []string{"Alpha", "Beta", "Gamma", "Delta"}
	src := generateTestPDF(t, labels...)
	stamp := func(page int) layout.Page {
		return layout.Page{Number: page, Fields: []layout.Field{
			layout.PlainText{X: 72, Y: 100, Value: fmt.Sprintf("Stamp%d", page)},
		}}
	}
	cfg := layout.Document{Pages: []layout.Page{stamp(3), stamp(0), stamp(2)}}
	doc := compose(t, src, cfg, nil)
	if doc.NumPages() != 4 {
		t.Fatalf("expected 4 pages, got %d", doc.NumPages())
	}

	for i, label := range labels {
		s := text(t, doc, i+1)
		if !strings.Contains(s, label) {
			t.Errorf("page %d: text %q lacks %q", i+1, s, label)
		}
		for j, other := range labels {
			if j != i && strings.Contains(s, other) {
				t.Errorf("page %d: text %q carries content of page %d", i+1, s, j+1)
			}
		}
		for _, n := range []int{0, 2, 3} {
			want := n == i
			if got := strings.Contains(s, fmt.Sprintf("Stamp%d", n)); got != want {
				t.Errorf("page %d: text %q, overlay of page %d present: %v", i+1, s, n+1, got)
			}
		}
	}
}

func TestConfigurationBeyondSource(t *testing.T) {
	src := generateTestPDF(t, "Only")
	cfg := layout.Document{Pages: []layout.Page{{
		Number: 5,
		Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: "never"}},
	}}}
	doc := compose(t, src, cfg, nil)
	if doc.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", doc.NumPages())
	}
	if s := text(t, doc, 1); strings.Contains(s, "never") {
		t.Errorf("text %q contains overlay for a missing page", s)
	}
}

func TestFirstConfigurationWins(t *testing.T) {
	src := generateTestPDF(t, "Only")
	cfg := layout.Document{Pages: []layout.Page{
		{Number: 0, Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: "first"}}},
		{Number: 0, Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: "second"}}},
	}}
	s := text(t, compose(t, src, cfg, nil), 1)
	if !strings.Contains(s, "first") || strings.Contains(s, "second") {
		t.Errorf("text = %q", s)
	}
}

func TestFailFast(t *testing.T) {
	src := generateTestPDF(t, "Alpha", "Beta")
	cfg := layout.Document{Pages: []layout.Page{
		{Number: 0, Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: "fine"}}},
		{Number: 1, Fields: []layout.Field{layout.ConditionalText{
			Common: layout.Common{Name: "status"},
			Rules:  []layout.Rule{{IfValue: "open", X: 10, Y: 10, Pattern: "O"}},
		}}},
	}}

	out, err := pdfoverlay.NewComposer(nil).Compose(bytes.NewReader(src), cfg, layout.Values{"status": "closed"})
	if err == nil {
		t.Fatal("expected error for unmatched conditional field")
	}
	if out != nil {
		t.Error("partial output returned")
	}
	var oe *pdfoverlay.OverlayError
	if !errors.As(err, &oe) || oe.Page != 1 || oe.Op != "render" {
		t.Errorf("expected render error on page 1, got %v", err)
	}
	var ue *render.UnresolvedFieldError
	if !errors.As(err, &ue) || ue.Key != "status" || ue.Value != "closed" {
		t.Errorf("expected UnresolvedFieldError for status=closed, got %v", err)
	}
	if !errors.Is(err, render.ErrUnresolvedField) {
		t.Errorf("errors.Is(ErrUnresolvedField) = false for %v", err)
	}
}

func TestMissingValue(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	cfg := layout.Document{Pages: []layout.Page{{Number: 0, Fields: []layout.Field{
		layout.Image{Common: layout.Common{Name: "logo"}, X: 0, Y: 0, Width: 10, Height: 10},
	}}}}
	_, err := pdfoverlay.NewComposer(nil).Compose(bytes.NewReader(src), cfg, layout.Values{})
	if !errors.Is(err, layout.ErrMissingValue) {
		t.Errorf("expected ErrMissingValue, got %v", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	for name, cfg := range map[string]layout.Document{
		"negative page": {Pages: []layout.Page{{Number: -1}}},
		"nil pointer":   {Pages: []layout.Page{{Number: 0, Fields: []layout.Field{(*layout.PlainText)(nil)}}}},
	} {
		_, err := pdfoverlay.NewComposer(nil).Compose(bytes.NewReader(src), cfg, nil)
		if !errors.Is(err, layout.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestEncryptedSource(t *testing.T) {
	src := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		"<< /Filter /Standard /V 1 /R 2 /O <00> /U <00> /P -4 >>",
	}, "/Root 1 0 R /Encrypt 4 0 R")
	_, err := pdfoverlay.NewComposer(nil).Compose(bytes.NewReader(src), layout.Document{}, nil)
	if !errors.Is(err, pdfoverlay.ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
}

func TestEmptySource(t *testing.T) {
	src := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	}, "/Root 1 0 R")
	_, err := pdfoverlay.NewComposer(nil).Compose(bytes.NewReader(src), layout.Document{}, nil)
	if !errors.Is(err, pdfoverlay.ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestUnreadableSource(t *testing.T) {
	_, err := pdfoverlay.NewComposer(nil).Compose(strings.NewReader("no pdf here"), layout.Document{}, nil)
	var oe *pdfoverlay.OverlayError
	if !errors.As(err, &oe) || oe.Op != "open" {
		t.Errorf("expected open error, got %v", err)
	}
}

// formSizes returns the bounding box sizes of all forms on page 1.
func formSizes(t *testing.T, doc *reader.Document) []render.PageSize {
	t.Helper()
	var sizes []render.PageSize
	for _, s := range forms(t, doc, 1) {
		box := s.Dict.Array("BBox")
		if len(box) != 4 {
			continue
		}
		var v [4]float64
		for i := range box {
			v[i], _ = reader.Number(box[i])
		}
		sizes = append(sizes, render.PageSize{Width: v[2] - v[0], Height: v[3] - v[1]})
	}
	return sizes
}

func countSize(sizes []render.PageSize, want render.PageSize) int {
	n := 0
	for _, s := range sizes {
		if math.Abs(s.Width-want.Width) < 1 && math.Abs(s.Height-want.Height) < 1 {
			n++
		}
	}
	return n
}

func TestPageSizePolicy(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	cfg := layout.Document{Pages: []layout.Page{{
		Number: 0,
		Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: "x"}},
	}}}

	tests := []struct {
		name   string
		opts   []pdfoverlay.Option
		letter int
		legal  int
		a4     int
	}{
		{"default", nil, 1, 0, 1},
		{"source", []pdfoverlay.Option{pdfoverlay.WithSourcePageSize()}, 0, 0, 2},
		{"legal", []pdfoverlay.Option{pdfoverlay.WithOverlayPageSize(render.Legal)}, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sizes := formSizes(t, compose(t, src, cfg, nil, tt.opts...))
			if len(sizes) != 2 {
				t.Fatalf("expected 2 forms, got %v", sizes)
			}
			if n := countSize(sizes, render.Letter); n != tt.letter {
				t.Errorf("%d Letter forms in %v, want %d", n, sizes, tt.letter)
			}
			if n := countSize(sizes, render.Legal); n != tt.legal {
				t.Errorf("%d Legal forms in %v, want %d", n, sizes, tt.legal)
			}
			if n := countSize(sizes, render.A4); n != tt.a4 {
				t.Errorf("%d A4 forms in %v, want %d", n, sizes, tt.a4)
			}
		})
	}
}

func TestOverlayWithFont(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	cfg := layout.Document{Pages: []layout.Page{{
		Number: 0,
		Fields: []layout.Field{layout.PlainText{Common: layout.Common{Name: "city"}, X: 72, Y: 72}},
	}}}
	out, err := pdfoverlay.Overlay(bytes.NewReader(src), cfg, layout.Values{"city": "Zürich Ωmega"}, goregular.TTF)
	if err != nil {
		t.Fatalf("overlay: %v", err)
	}
	var buf bytes.Buffer
	if err := out.Output(&buf); err != nil {
		t.Fatal(err)
	}
	doc, err := reader.ReadFrom(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if s := text(t, doc, 1); !strings.Contains(s, "Zürich Ωmega") {
		t.Errorf("text = %q", s)
	}
}

func TestOverlayInvalidFont(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	_, err := pdfoverlay.Overlay(bytes.NewReader(src), layout.Document{}, nil, []byte("not a font"))
	if !errors.Is(err, render.ErrInvalidFont) {
		t.Errorf("expected ErrInvalidFont, got %v", err)
	}
}

func TestComposerReuse(t *testing.T) {
	src := generateTestPDF(t, "Alpha")
	c := pdfoverlay.NewComposer(nil, pdfoverlay.WithFontSize(14))
	for _, name := range []string{"one", "two"} {
		cfg := layout.Document{Pages: []layout.Page{{
			Number: 0,
			Fields: []layout.Field{layout.PlainText{X: 10, Y: 10, Value: name}},
		}}}
		out, err := c.Compose(bytes.NewReader(src), cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		data, err := out.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		doc, err := reader.Parse(data)
		if err != nil {
			t.Fatal(err)
		}
		if s := text(t, doc, 1); !strings.Contains(s, name) {
			t.Errorf("run %q: text = %q", name, s)
		}
	}
}
