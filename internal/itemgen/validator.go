package itemgen

import (
	"fmt"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// Validator checks a drafted item before it is issued.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate returns nil if the draft passes.
	Validate(d *Draft, req assessment.ItemRequest) *ValidationError
}

// ValidationError describes why a draft failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
	Retryable bool   // Whether regeneration is likely to fix this
	Err       error  // Optional sentinel the failure maps to
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// runValidators applies validators in order; the first failure stops the chain.
func runValidators(validators []Validator, d *Draft, req assessment.ItemRequest) error {
	for _, v := range validators {
		if verr := v.Validate(d, req); verr != nil {
			return verr
		}
	}
	return nil
}
