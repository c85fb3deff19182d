package pdfoverlay

import (
	"github.com/lvillar/pdfoverlay/render"
)

// Option is a functional option for configuring a Composer.
type Option func(*config)

type config struct {
	fontSize   float64
	pageSize   render.PageSize
	sourceSize bool
}

// WithFontSize sets the font size for fields without their own. The
// default is 10pt.
func WithFontSize(size float64) Option {
	return func(c *config) {
		c.fontSize = size
	}
}

// WithOverlayPageSize draws every overlay on pages of the given size. The
// overlay is anchored at the lower-left corner of the source page, so
// overlay and source coordinates agree regardless of the two sizes. The
// default is US Letter.
func WithOverlayPageSize(size render.PageSize) Option {
	return func(c *config) {
		c.pageSize = size
		c.sourceSize = false
	}
}

// WithSourcePageSize sizes each overlay to the source page it is merged
// onto.
func WithSourcePageSize() Option {
	return func(c *config) {
		c.sourceSize = true
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		fontSize: render.DefaultFontSize,
		pageSize: render.Letter,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
