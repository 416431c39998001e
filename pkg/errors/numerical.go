package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NonFiniteValueError reports NaN or Inf cells found in a matrix that is about
// to be handed to a numeric model.
type NonFiniteValueError struct {
	Operation string
	Row       int
	Col       int
	Column    string // column name when known
	Value     float64
}

func (e *NonFiniteValueError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("tabprep: %s: non-finite value %v in column '%s' at row %d",
			e.Operation, e.Value, e.Column, e.Row)
	}
	return fmt.Sprintf("tabprep: %s: non-finite value %v at (%d, %d)", e.Operation, e.Value, e.Row, e.Col)
}

// NewNonFiniteValueError creates a NonFiniteValueError with a stack trace.
func NewNonFiniteValueError(operation string, row, col int, value float64) *NonFiniteValueError {
	return &NonFiniteValueError{Operation: operation, Row: row, Col: col, Value: value}
}

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error for the first offending value.
func CheckNumericalStability(operation string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.WithStack(NewNonFiniteValueError(operation, i, 0, v))
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
// names, when non-nil, labels the columns in the returned error.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int, names []string) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				err := NewNonFiniteValueError(operation, i, j, v)
				if j < len(names) {
					err.Column = names[j]
				}
				return errors.WithStack(err)
			}
		}
	}
	return nil
}
