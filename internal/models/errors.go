package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrViewEmpty signals a bounded view query that returned zero rows. The
// analyzer contract requires exactly one fallback attempt before surfacing
// a user-visible "no candidates" message.
var ErrViewEmpty = errors.New("view query returned no rows")

// ErrNotFound signals a missing single record (fund details, indicator row).
var ErrNotFound = errors.New("not found")

// ParseFailureError is raised when a single-fund question names no
// resolvable fund code. It is user-visible and never retried.
type ParseFailureError struct {
	Token     string   // the unresolved code-shaped token, if any
	Available []string // sample of canonical codes to show the user
}

func (e *ParseFailureError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("fund code %q not recognized; available codes include: %s",
			e.Token, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("no fund code recognized; available codes include: %s",
		strings.Join(e.Available, ", "))
}

// ViewStoreError wraps a view-store failure with the view name, so the
// analyzer can log which query faulted before taking its fallback.
type ViewStoreError struct {
	View string
	Err  error
}

func (e *ViewStoreError) Error() string {
	return fmt.Sprintf("view %s: %v", e.View, e.Err)
}

func (e *ViewStoreError) Unwrap() error { return e.Err }
