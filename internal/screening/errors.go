package screening

import (
	"errors"
	"fmt"
	"strings"
)

// errUpdateCancelled guards the one forbidden schedule transition: nothing
// leaves the cancelled state.
var errUpdateCancelled = errors.New("schedule is cancelled")

// InvalidPartyError reports malformed party input. It aggregates every
// violation found rather than failing on the first.
type InvalidPartyError struct {
	PartyID    string
	Violations []string
}

func (e *InvalidPartyError) Error() string {
	subject := e.PartyID
	if subject == "" {
		subject = "<unknown>"
	}
	return fmt.Sprintf("invalid party %s: %s", subject, strings.Join(e.Violations, "; "))
}

// ScreeningFailedError wraps an unexpected failure during screening or
// scheduling. It always carries the subject id (party id, or a batch marker)
// and the underlying cause.
type ScreeningFailedError struct {
	Subject string
	Stage   string
	Err     error
}

func (e *ScreeningFailedError) Error() string {
	return fmt.Sprintf("screening failed for %s at %s: %v", e.Subject, e.Stage, e.Err)
}

func (e *ScreeningFailedError) Unwrap() error {
	return e.Err
}

// ArgumentOutOfRangeError reports a batch size, retry attempt count, or limit
// outside its documented bounds.
type ArgumentOutOfRangeError struct {
	Param string
	Value int
	Min   int
	Max   int
}

func (e *ArgumentOutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Param, e.Min, e.Max, e.Value)
}
