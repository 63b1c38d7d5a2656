package compiler

import (
	"errors"
	"fmt"

	"github.com/hanpama/shapeql/internal/shape"
)

// ErrCycleDepthExceeded matches every *CycleDepthError.
var ErrCycleDepthExceeded = errors.New("cycle depth exceeded")

// MissingSelectionError reports a spec that declares none of the variants.
type MissingSelectionError struct {
	TypeName  string
	Requested shape.Variant
}

func (e *MissingSelectionError) Error() string {
	return fmt.Sprintf("no selection declared for %s (requested %s)", e.TypeName, e.Requested)
}

// CycleDepthError reports recursion past the configured bound, usually a
// reference cycle that no fragment boundary breaks.
type CycleDepthError struct {
	Path  string
	Depth int
}

func (e *CycleDepthError) Error() string {
	return fmt.Sprintf("%s at %s (depth %d)", ErrCycleDepthExceeded, e.Path, e.Depth)
}

func (e *CycleDepthError) Is(target error) bool { return target == ErrCycleDepthExceeded }

// ThunkError wraps a failure returned by a lazy reference.
type ThunkError struct {
	Path string
	Err  error
}

func (e *ThunkError) Error() string {
	return fmt.Sprintf("resolve lazy reference at %s: %v", e.Path, e.Err)
}

func (e *ThunkError) Unwrap() error { return e.Err }

// MissingCatalogError is returned when a shape.Rel is met by a compiler built
// without a catalog.
type MissingCatalogError struct {
	TypeName string
}

func (e *MissingCatalogError) Error() string {
	return fmt.Sprintf("reference to %s needs a catalog", e.TypeName)
}
