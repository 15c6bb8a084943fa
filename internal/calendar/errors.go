package calendar

import (
	"errors"
	"fmt"
)

// Reason classifies why the external calendar could not answer. The caller's
// fallback policy differs per reason, so they must stay distinguishable.
type Reason string

const (
	// ReasonNotConfigured means the professional has no external calendar;
	// callers skip the external source silently.
	ReasonNotConfigured Reason = "not_configured"
	// ReasonPermissionDenied means the integration exists but the service
	// account was rejected; the salon owner has to fix it.
	ReasonPermissionDenied Reason = "permission_denied"
	// ReasonTransient covers network errors, timeouts and 5xx responses.
	ReasonTransient Reason = "transient"
)

// Error is the typed failure returned by calendar operations.
type Error struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("calendar: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("calendar: %s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the failure reason, defaulting unknown errors to
// transient so callers never treat a surprise as "calendar is free".
func ReasonOf(err error) Reason {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonTransient
}
