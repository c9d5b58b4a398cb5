package lib

import (
	"context"
	"errors"
)

// IsCanceled reports whether err comes from a cancelled context, such as an
// interrupted command.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsDeadline reports whether err comes from an expired context deadline.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
