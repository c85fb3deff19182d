package pdfoverlay

import (
	"errors"
	"fmt"
)

// Sentinel errors for source documents that cannot be overlaid.
var (
	ErrEncrypted = errors.New("pdfoverlay: document is encrypted")
	ErrNoPages   = errors.New("pdfoverlay: document has no pages")
)

// OverlayError reports a failed composition step. Page is the 0-based
// source page index, or -1 for failures not tied to a page.
type OverlayError struct {
	Op   string // e.g. "open", "render", "merge"
	Page int
	Err  error
}

func (e *OverlayError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("pdfoverlay.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdfoverlay.%s: page %d: %v", e.Op, e.Page, e.Err)
}

func (e *OverlayError) Unwrap() error {
	return e.Err
}

func newOverlayError(op string, page int, err error) *OverlayError {
	return &OverlayError{Op: op, Page: page, Err: err}
}
