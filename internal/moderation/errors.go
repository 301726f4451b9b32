package moderation

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable matches every classifier failure.
var ErrServiceUnavailable = errors.New("moderation service unavailable")

// ServiceError reports a classifier that failed to produce a usable verdict.
// The image is treated as rejected.
type ServiceError struct {
	Stage Stage
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s classifier: %v", e.Stage, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrServiceUnavailable) true for any ServiceError.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// RejectionError reports an image flagged by a classifier.
type RejectionError struct {
	Stage  Stage
	Reason string
	Flags  []Flag
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("image rejected by %s classifier: %s", e.Stage, e.Reason)
}
