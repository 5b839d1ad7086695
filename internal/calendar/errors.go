package calendar

import (
	"errors"
	"fmt"
)

var (
	ErrDragInProgress = errors.New("drag already in progress")
	ErrNotDragging    = errors.New("no drag in progress")
)

// StaleReferenceError reports an event whose backing project no longer exists.
type StaleReferenceError struct {
	EventID   string
	ProjectID string
}

func (e StaleReferenceError) Error() string {
	if e.ProjectID == "" || e.ProjectID == e.EventID {
		return fmt.Sprintf("stale reference: event %s", e.EventID)
	}
	return fmt.Sprintf("stale reference: event %s (project %s)", e.EventID, e.ProjectID)
}

// MalformedBatchError is returned when a computed batch would break dense cell ordering.
type MalformedBatchError struct {
	Reason string
	Batch  Batch
}

func (e MalformedBatchError) Error() string {
	return fmt.Sprintf("malformed batch (%d mutations): %s", len(e.Batch), e.Reason)
}

func IsStale(err error) bool {
	var se StaleReferenceError
	return errors.As(err, &se)
}

func IsMalformed(err error) bool {
	var me MalformedBatchError
	return errors.As(err, &me)
}
