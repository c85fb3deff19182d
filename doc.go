/*
Package pdfoverlay fills template PDF documents with runtime values.

For every page of a source document that has a configuration, the fields of
that configuration are drawn onto a transient overlay page, which is then
merged on top of the original page. Pages without a configuration are
copied as they are. Page order and page count never change.

	doc, err := layout.ParseFile("invoice.yaml")
	...
	out, err := pdfoverlay.Overlay(src, doc, layout.Values{
		"customer": "ACME Corp.",
		"paid":     true,
	}, nil)
	...
	err = out.Output(w)

Configurations are described in package layout, drawing in package render
and page assembly in package pageops. Callers that process many documents
with the same font create a Composer once and call Compose repeatedly.
*/
package pdfoverlay

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pdfoverlay'.
func tracer() tracing.Trace {
	return tracing.Select("pdfoverlay")
}
