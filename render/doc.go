/*
Package render draws the fields of one page configuration onto a transient
overlay page.

A Renderer interprets a list of layout.Field values against layout.Values
and issues drawing calls to a Canvas. The default Canvas is backed by gofpdf
and produces a single-page PDF (an OverlayPage) that the composer later
merges onto the original page.

Coordinates handed to a Canvas are PDF user space: points, origin at the
lower-left corner of the page. Shape fields are specified in inches and
scaled by Inch after the origin has been shifted one inch right and up.

Fields are drawn in list order, so later fields paint over earlier ones.
*/
package render

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pdfoverlay.render'.
func tracer() tracing.Trace {
	return tracing.Select("pdfoverlay.render")
}
