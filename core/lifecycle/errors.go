package lifecycle

import (
	"errors"
	"fmt"

	"github.com/jbleroy/fieldops/core/status"
)

// ErrInvalidTransition is returned when an operation is not legal from the
// mission's current status. Callers match it with errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrReasonRequired is returned when pause or reject_report is attempted
// without a reason.
var ErrReasonRequired = errors.New("reason is required")

func invalid(op Op, cur status.Lifecycle) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, cur)
}
