package reader

import (
	"fmt"
)

// US Letter, used when a page tree carries no usable /MediaBox.
var defaultMediaBox = Rectangle{URX: 612, URY: 792}

// Page is one leaf of the page tree.
type Page struct {
	Number    int // 1-based
	MediaBox  Rectangle
	CropBox   *Rectangle
	Rotate    int
	Resources Dict

	contents Object
	doc      *Document
}

// inheritable page attributes, in the order they are looked up.
var inheritable = []Name{"MediaBox", "CropBox", "Resources", "Rotate"}

func (d *Document) buildPages() error {
	root := d.resolveDict(d.trailer["Root"])
	if root == nil {
		return fmt.Errorf("reader: missing document catalog")
	}
	tree := d.resolveDict(root["Pages"])
	if tree == nil {
		return fmt.Errorf("reader: missing page tree")
	}
	d.pages = nil
	return d.walk(tree, Dict{}, make(map[Ref]bool), 0)
}

func (d *Document) walk(node, inherited Dict, visited map[Ref]bool, depth int) error {
	if depth > 64 {
		return fmt.Errorf("reader: page tree too deep")
	}
	attrs := make(Dict, len(inheritable))
	for _, k := range inheritable {
		if v, ok := node[k]; ok {
			attrs[k] = v
		} else if v, ok := inherited[k]; ok {
			attrs[k] = v
		}
	}

	// Some writers omit /Type on leaves; a node without /Kids is a page.
	kids, err := d.Resolve(node["Kids"])
	if err != nil {
		return fmt.Errorf("reader: page tree kids: %w", err)
	}
	if node.Name("Type") == "Page" || kids == nil || kids == (Null{}) {
		d.pages = append(d.pages, d.newPage(node, attrs))
		return nil
	}

	arr, _ := kids.(Array)
	for _, kid := range arr {
		if ref, ok := kid.(Ref); ok {
			if visited[ref] {
				return fmt.Errorf("reader: page tree cycle at %s", ref)
			}
			visited[ref] = true
		}
		child := d.resolveDict(kid)
		if child == nil {
			continue
		}
		if err := d.walk(child, attrs, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) newPage(node, attrs Dict) *Page {
	p := &Page{
		Number:   len(d.pages) + 1,
		MediaBox: defaultMediaBox,
		contents: node["Contents"],
		doc:      d,
	}
	if o, err := d.Resolve(attrs["MediaBox"]); err == nil {
		if r, err := rectangle(o); err == nil {
			p.MediaBox = r
		}
	}
	if o, err := d.Resolve(attrs["CropBox"]); err == nil {
		if r, err := rectangle(o); err == nil {
			p.CropBox = &r
		}
	}
	if o, err := d.Resolve(attrs["Rotate"]); err == nil {
		if n, ok := o.(Int); ok {
			p.Rotate = int(n)
		}
	}
	p.Resources = d.resolveDict(attrs["Resources"])
	return p
}

// ContentStream returns the page's decoded content. Multiple content
// streams are joined with newlines.
func (p *Page) ContentStream() ([]byte, error) {
	c, err := p.doc.Resolve(p.contents)
	if err != nil {
		return nil, fmt.Errorf("reader: page %d contents: %w", p.Number, err)
	}
	var parts []Object
	switch v := c.(type) {
	case Stream:
		parts = []Object{v}
	case Array:
		parts = v
	}

	var out []byte
	for _, part := range parts {
		o, err := p.doc.Resolve(part)
		if err != nil {
			return nil, fmt.Errorf("reader: page %d contents: %w", p.Number, err)
		}
		s, ok := o.(Stream)
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("reader: decoding page %d content: %w", p.Number, err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}
