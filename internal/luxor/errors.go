package luxor

import (
	"errors"
	"fmt"
)

// ErrUnreachable is returned when a call could not complete at the transport level.
var ErrUnreachable = errors.New("controller unreachable")

// StatusError is a failure reported by the controller itself: the HTTP call
// succeeded but the response carried a nonzero Status.
type StatusError struct {
	Op        string
	Status    int
	StatusStr string
}

func (e *StatusError) Error() string {
	if e.StatusStr != "" {
		return fmt.Sprintf("%s: controller returned status %d (%s)", e.Op, e.Status, e.StatusStr)
	}
	return fmt.Sprintf("%s: controller returned status %d", e.Op, e.Status)
}

// IsStatusError reports whether err carries a controller-reported status.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
