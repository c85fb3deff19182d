package layout

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is classification.
var (
	ErrMissingValue  = errors.New("layout: missing value")
	ErrInvalidConfig = errors.New("layout: invalid configuration")
	ErrInputTooLarge = errors.New("layout: input exceeds maximum size")
)

// MissingValueError reports a key that has no entry in Values.
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("layout: no value for key %q", e.Key)
}

func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// ConfigError reports an ill-formed page or field configuration.
// Field is the index within the page's field list, or -1 for page-level
// problems.
type ConfigError struct {
	Page   int
	Field  int
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field < 0:
		return fmt.Sprintf("layout: page %d: %s", e.Page, e.Reason)
	case e.Key != "":
		return fmt.Sprintf("layout: page %d field %d (%s): %s", e.Page, e.Field, e.Key, e.Reason)
	default:
		return fmt.Sprintf("layout: page %d field %d: %s", e.Page, e.Field, e.Reason)
	}
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
