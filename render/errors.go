package render

import (
	"errors"
	"fmt"
)

// Sentinel errors for common rendering failures.
var (
	ErrUnresolvedField  = errors.New("render: unresolved field")
	ErrUnknownField     = errors.New("render: unknown field kind")
	ErrInvalidFont      = errors.New("render: invalid font")
	ErrUnsupportedImage = errors.New("render: unsupported image source")
)

// UnresolvedFieldError reports a text field whose position or text could
// not be determined: no conditional rule matched the value, or the value
// is missing.
type UnresolvedFieldError struct {
	Key   string
	Value any
	Err   error // underlying cause, if any
}

func (e *UnresolvedFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: could not find coordinates for key(%s): %v", e.Key, e.Err)
	}
	return fmt.Sprintf("render: could not find coordinates for key(%s) value %v", e.Key, e.Value)
}

func (e *UnresolvedFieldError) Unwrap() error {
	return e.Err
}

func (e *UnresolvedFieldError) Is(target error) bool {
	return target == ErrUnresolvedField
}
