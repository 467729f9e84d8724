package dpg

import (
	"errors"
	"fmt"

	"github.com/notargets/DPGKernel/element"
)

var (
	ErrDegenerateGeometry = element.ErrDegenerateGeometry
	ErrNonFinite          = element.ErrNonFinite
	// ErrSingularGram means the test space Gram matrix could not be
	// inverted, a broken test space or a zero measure cell
	ErrSingularGram = errors.New("singular test space Gram matrix")
	// ErrSingularNormal means B^T G^-1 B could not be inverted, an ill posed
	// trial space or insufficient test space enrichment
	ErrSingularNormal = errors.New("singular interior normal matrix")
)

// CellError reports a fatal failure while processing one cell
type CellError struct {
	Cell int
	Op   string
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %d: %s: %v", e.Cell, e.Op, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// IsGeometryError reports whether err is a per cell geometry or
// degenerate cell failure
func IsGeometryError(err error) bool {
	return errors.Is(err, ErrDegenerateGeometry) || errors.Is(err, ErrNonFinite) ||
		errors.Is(err, ErrSingularGram) || errors.Is(err, ErrSingularNormal)
}
