/*
apply.go - The guarded align operation

PURPOSE:
  Overwrites an authoritative lesson's core fields (student name, duration,
  teacher, subject, start date) with the sheet row's values, preserving the
  lesson's day-of-week, start time and end date.

SAFETY INVARIANT:
  Callers are expected to run CheckConflict first for user feedback, but
  Align ALWAYS re-resolves names and re-runs the full guard immediately
  before mutating. Two aligns for different mismatches may be in flight
  concurrently; a guard verdict computed even moments earlier cannot be
  trusted at write time. The re-check closes the load-then-check-then-commit
  window as far as the engine can; a stale overlap slipping between the
  re-check and the store write is governed by the store's own write
  semantics and is accepted.

FAILURE MODEL:
  Align fails closed and explains itself. Unresolvable names and would-be
  collisions come back as unsuccessful results with a reason, never as
  partial writes. Store errors propagate as failures too; there is no
  mutation before the single conceptual write.
*/
package reconcile

import (
	"context"
	"fmt"
)

// ApplyResult is the outcome of one align attempt.
type ApplyResult struct {
	Success bool
	Message string
	Updated *Lesson // set only on success
}

func applyFailure(format string, args ...interface{}) ApplyResult {
	return ApplyResult{Message: fmt.Sprintf(format, args...)}
}

// Align overwrites lesson l with sheet row r's values after re-running the
// full conflict guard. On success the caller moves the pair from the
// Mismatched bucket into Matched; bucket bookkeeping stays with the owner
// of the Result.
func (a *Aligner) Align(ctx context.Context, l *Lesson, r *SheetLesson) (ApplyResult, error) {
	teacherID, err := a.Store.ResolveTeacherID(ctx, r.TeacherName)
	if err != nil {
		if IsNotFound(err) {
			return applyFailure("cannot align: teacher %q not found in this school", r.TeacherName), nil
		}
		return ApplyResult{}, err
	}
	subject, err := a.Store.ResolveSubject(ctx, r.SubjectName)
	if err != nil {
		if IsNotFound(err) {
			return applyFailure("cannot align: subject %q not found in this school", r.SubjectName), nil
		}
		return ApplyResult{}, err
	}

	// Full guard re-check at write time, not a cached verdict.
	guard, err := a.CheckConflict(ctx, l, r)
	if err != nil {
		return ApplyResult{}, err
	}
	if guard.Blocked {
		a.log().Debugf("align: lesson %s blocked: %s", l.ID, guard.Reason)
		return applyFailure("cannot align: %s", guard.Reason), nil
	}

	fields := AlignedFields{
		StudentName:  r.StudentName,
		DurationMins: r.DurationMins,
		TeacherID:    teacherID,
		SubjectID:    subject.ID,
		StartDate:    NormalizeDate(r.StartDate),
	}

	updated, err := a.Store.PersistAlignedLesson(ctx, l.ID, fields)
	if err != nil {
		a.log().Debugf("align: lesson %s persist failed: %v", l.ID, err)
		return applyFailure("align failed: %v", err), nil
	}

	a.log().Debugf("align: lesson %s aligned to sheet row %d", l.ID, r.RowNumber)
	return ApplyResult{
		Success: true,
		Message: fmt.Sprintf("lesson for %s aligned with sheet row %d", updated.StudentName, r.RowNumber),
		Updated: updated,
	}, nil
}
