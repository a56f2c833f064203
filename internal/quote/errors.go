package quote

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed numeric parameters, e.g. a
	// negative quantity or discount. It is a local precondition failure and
	// must never be retried.
	ErrInvalidInput = errors.New("quote: invalid calculation input")
	// ErrTimeout is returned when a sub-call exceeded the orchestrator's
	// time budget. The condition is recoverable by retrying the calculation.
	ErrTimeout = errors.New("quote: calculation timed out")
)

// Calculation stages used for error attribution and telemetry labels.
const (
	StageCountry    = "country"
	StageConversion = "conversion"
	StageFreight    = "freight"
	StageFees       = "fees"
	StageCalculate  = "calculate"
)

// CalculationError wraps any failure raised while composing a breakdown.
// Transport-level errors from collaborators are always converted to this
// type at the orchestrator boundary.
type CalculationError struct {
	Stage string
	Err   error
}

func (e *CalculationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("quote: calculation failed at %s: %v", e.Stage, e.Err)
}

func (e *CalculationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func calcError(stage string, err error) *CalculationError {
	return &CalculationError{Stage: stage, Err: err}
}
