package layout

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits configuration input to prevent memory exhaustion.
var MaxInputSize = 1 << 20

// Wire representation. Presence of the optional blocks decides the field
// variant; at most one of them may be given.

type rawPage struct {
	PageNumber *int       `yaml:"page_number"`
	Variables  []rawField `yaml:"variables"`
}

type rawField struct {
	Name        string      `yaml:"name"`
	FontSize    *float64    `yaml:"font_size"`
	Conditional *[]rawRule  `yaml:"conditional_coordinates"`
	DrawShape   *rawShape   `yaml:"draw_shape"`
	Image       *rawBox     `yaml:"image"`
	Barcode     *rawBarcode `yaml:"barcode"`
	X           *float64    `yaml:"x-coordinate"`
	Y           *float64    `yaml:"y-coordinate"`
	Value       any         `yaml:"value"`
}

type rawRule struct {
	IfValue      any      `yaml:"if_value"`
	X            *float64 `yaml:"x-coordinate"`
	Y            *float64 `yaml:"y-coordinate"`
	PrintPattern any      `yaml:"print_pattern"`
}

type rawShape struct {
	Shape string   `yaml:"shape"`
	R     float64  `yaml:"r"`
	G     float64  `yaml:"g"`
	B     float64  `yaml:"b"`
	X0    *float64 `yaml:"x0-coordinate"`
	Y0    *float64 `yaml:"y0-coordinate"`
	X1    *float64 `yaml:"x1-coordinate"`
	Y1    *float64 `yaml:"y1-coordinate"`
	Fill  any      `yaml:"fill"`
}

type rawBox struct {
	X      *float64 `yaml:"x-coordinate"`
	Y      *float64 `yaml:"y-coordinate"`
	Width  float64  `yaml:"width"`
	Height float64  `yaml:"height"`
}

type rawBarcode struct {
	Type   string   `yaml:"type"`
	X      *float64 `yaml:"x-coordinate"`
	Y      *float64 `yaml:"y-coordinate"`
	Width  float64  `yaml:"width"`
	Height float64  `yaml:"height"`
}

// Parse decodes a configuration from YAML or JSON and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrInvalidConfig)
	}
	if len(data) > MaxInputSize {
		return Document{}, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}

	var raw []rawPage
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.Strict()); err != nil {
		return Document{}, fmt.Errorf("layout: parsing configuration: %w", err)
	}

	doc := Document{Pages: make([]Page, 0, len(raw))}
	for i, rp := range raw {
		if rp.PageNumber == nil {
			return Document{}, &ConfigError{Page: i, Field: -1, Reason: fmt.Sprintf("entry %d: page_number is required", i)}
		}
		page := Page{Number: *rp.PageNumber, Fields: make([]Field, 0, len(rp.Variables))}
		for j, rf := range rp.Variables {
			f, err := rf.field()
			if err != nil {
				return Document{}, &ConfigError{Page: page.Number, Field: j, Key: rf.Name, Reason: err.Error()}
			}
			page.Fields = append(page.Fields, f)
		}
		doc.Pages = append(doc.Pages, page)
	}

	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	tracer().Debugf("parsed configuration with %d page entries", len(doc.Pages))
	return doc, nil
}

// ParseReader reads a configuration from r and parses it.
func ParseReader(r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(MaxInputSize)+1))
	if err != nil {
		return Document{}, fmt.Errorf("layout: reading configuration: %w", err)
	}
	return Parse(data)
}

// ParseFile reads and parses a configuration file.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("layout: opening %s: %w", path, err)
	}
	return Parse(data)
}

// field converts the wire form into a typed Field.
func (rf rawField) field() (Field, error) {
	var blocks []string
	if rf.Conditional != nil {
		blocks = append(blocks, "conditional_coordinates")
	}
	if rf.DrawShape != nil {
		blocks = append(blocks, "draw_shape")
	}
	if rf.Image != nil {
		blocks = append(blocks, "image")
	}
	if rf.Barcode != nil {
		blocks = append(blocks, "barcode")
	}
	hasPlain := rf.X != nil || rf.Y != nil || rf.Value != nil

	switch {
	case len(blocks) > 1:
		return nil, fmt.Errorf("ambiguous field: %s are mutually exclusive", strings.Join(blocks, ", "))
	case len(blocks) == 1 && hasPlain:
		return nil, fmt.Errorf("ambiguous field: %s cannot be combined with x-coordinate, y-coordinate or value", blocks[0])
	}

	common := Common{Name: rf.Name, FontSize: rf.FontSize}
	switch {
	case rf.Conditional != nil:
		return rf.conditional(common)
	case rf.DrawShape != nil:
		return rf.DrawShape.shape(common)
	case rf.Image != nil:
		x, y, err := coordinates(rf.Image.X, rf.Image.Y)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		return Image{Common: common, X: x, Y: y, Width: rf.Image.Width, Height: rf.Image.Height}, nil
	case rf.Barcode != nil:
		x, y, err := coordinates(rf.Barcode.X, rf.Barcode.Y)
		if err != nil {
			return nil, fmt.Errorf("barcode: %w", err)
		}
		return Barcode{
			Common:    common,
			Symbology: Symbology(strings.ToLower(rf.Barcode.Type)),
			X:         x,
			Y:         y,
			Width:     rf.Barcode.Width,
			Height:    rf.Barcode.Height,
		}, nil
	}

	if !hasPlain {
		return nil, fmt.Errorf("field matches no known kind")
	}
	x, y, err := coordinates(rf.X, rf.Y)
	if err != nil {
		return nil, err
	}
	text := PlainText{Common: common, X: x, Y: y}
	if truthy(rf.Value) {
		text.Value = Stringify(rf.Value)
	}
	return text, nil
}

func (rf rawField) conditional(common Common) (Field, error) {
	f := ConditionalText{Common: common, Rules: make([]Rule, 0, len(*rf.Conditional))}
	for i, rr := range *rf.Conditional {
		x, y, err := coordinates(rr.X, rr.Y)
		if err != nil {
			return nil, fmt.Errorf("conditional_coordinates[%d]: %w", i, err)
		}
		pattern, err := printPattern(rr.PrintPattern)
		if err != nil {
			return nil, fmt.Errorf("conditional_coordinates[%d]: %w", i, err)
		}
		f.Rules = append(f.Rules, Rule{IfValue: rr.IfValue, X: x, Y: y, Pattern: pattern})
	}
	return f, nil
}

func (rs rawShape) shape(common Common) (Field, error) {
	if rs.X0 == nil || rs.Y0 == nil || rs.X1 == nil || rs.Y1 == nil {
		return nil, fmt.Errorf("draw_shape: x0, y0, x1 and y1 coordinates are required")
	}
	fill := true
	if rs.Fill != nil {
		switch v := rs.Fill.(type) {
		case bool:
			fill = v
		default:
			n, ok := asFloat(v)
			if !ok {
				return nil, fmt.Errorf("draw_shape: fill must be 0, 1 or a boolean, got %v", v)
			}
			fill = n != 0
		}
	}
	return Shape{
		Common: common,
		Shape:  ShapeKind(rs.Shape),
		Color:  RGB{R: rs.R, G: rs.G, B: rs.B},
		X0:     *rs.X0,
		Y0:     *rs.Y0,
		X1:     *rs.X1,
		Y1:     *rs.Y1,
		Fill:   fill,
	}, nil
}

func coordinates(x, y *float64) (float64, float64, error) {
	if x == nil || y == nil {
		return 0, 0, fmt.Errorf("x-coordinate and y-coordinate are required")
	}
	return *x, *y, nil
}

// printPattern accepts a string, a number, false or null. Falsy values
// select the trigger value as the drawn text.
func printPattern(v any) (string, error) {
	if b, ok := v.(bool); ok && b {
		return "", fmt.Errorf("print_pattern must be text or false, got true")
	}
	if !truthy(v) {
		return "", nil
	}
	return Stringify(v), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if n, ok := asFloat(v); ok {
		return n != 0
	}
	return true
}
