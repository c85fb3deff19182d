package render

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/image/font/sfnt"
)

// Font is a validated TrueType font that overlay text is set in.
type Font struct {
	Name string // full font name from the name table, if present
	data []byte
}

// LoadFont loads a TrueType font from a file.
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: opening font %s: %w", path, err)
	}
	return ParseFont(data)
}

// ParseFont validates TrueType font data held in memory. Fonts with CFF
// outlines are rejected because they cannot be embedded as UTF-8 fonts.
func ParseFont(data []byte) (*Font, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes of data", ErrInvalidFont, len(data))
	}
	if bytes.Equal(data[:4], []byte("OTTO")) {
		return nil, fmt.Errorf("%w: CFF-based OpenType fonts are not supported", ErrInvalidFont)
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	if f.NumGlyphs() == 0 {
		return nil, fmt.Errorf("%w: font has no glyphs", ErrInvalidFont)
	}

	font := &Font{data: data}
	if font.Name, err = f.Name(nil, sfnt.NameIDFull); err != nil {
		tracer().Debugf("font has no full name: %v", err)
		font.Name = ""
	}
	tracer().Debugf("loaded and parsed SFNT %s (%d glyphs)", font.Name, f.NumGlyphs())
	return font, nil
}
