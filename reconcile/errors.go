/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All engine error types in one place. The reconciliation pass itself never
  fails: malformed input degrades to sentinel values or a missing bucket.
  Only the guard and align operations, which touch the live schedule store,
  can produce errors - and even then, "cannot proceed" outcomes (unresolvable
  name, would-be collision) are structured results, not errors crossing the
  engine boundary. The errors here cover the store collaborator contract.

ERROR CATEGORIES:
  1. Lookup errors  - Teacher/subject name resolution failures
  2. Store errors   - Queries or writes against the schedule store failing

USAGE:
  Callers can branch on sentinels:

    if errors.Is(err, reconcile.ErrTeacherNotFound) {
        // surface as a blocked align, not a 500
    }
*/
package reconcile

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTeacherNotFound is returned by ScheduleStore.ResolveTeacherID when
	// no teacher matches the given display name.
	ErrTeacherNotFound = errors.New("teacher not found")

	// ErrSubjectNotFound is returned by ScheduleStore.ResolveSubject when
	// no subject matches the given name prefix.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrLessonNotFound is returned when a persist targets a lesson that no
	// longer exists.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrPersistFailed is returned when the aligned write cannot be
	// committed. Align performs no partial mutation.
	ErrPersistFailed = errors.New("persist failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LookupError reports which free-text name could not be resolved.
type LookupError struct {
	Kind string // "teacher" or "subject"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *LookupError) Unwrap() error {
	if e.Kind == "subject" {
		return ErrSubjectNotFound
	}
	return ErrTeacherNotFound
}

// IsNotFound reports whether the error is any of the lookup sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTeacherNotFound) ||
		errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrLessonNotFound)
}
