package stats

import "fmt"

// InsufficientDataError reports a series shorter than an operation needs.
// It signals a caller bug for entry points that require a minimum history.
type InsufficientDataError struct {
	Operation string
	Required  int
	Actual    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need at least %d data points, got %d",
		e.Operation, e.Required, e.Actual)
}

// InvalidInputError reports structurally invalid input, such as parallel
// sequences of different lengths.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Message)
}

// RequireLength returns an InsufficientDataError when series has fewer than
// min elements.
func RequireLength(operation string, series []float64, min int) error {
	if len(series) < min {
		return &InsufficientDataError{Operation: operation, Required: min, Actual: len(series)}
	}
	return nil
}
