/*
guard.go - Collision detection before an align overwrite

PURPOSE:
  Before an authoritative lesson is overwritten with its sheet counterpart,
  the guard decides whether doing so would double-book a teacher: a third,
  unrelated lesson on the same teacher and weekday whose time window would
  overlap the revised one.

SCOPE (deliberately narrow):
  The guard only fires when the align keeps the SAME teacher and CHANGES the
  duration. Moving a lesson to a different teacher trivially avoids
  self-collision, and an unchanged duration already occupies its slot.
  Broadening the check (e.g. room constraints implied by subject) is a
  product decision outside this engine.

COLLABORATOR:
  ScheduleStore is the live schedule, scoped to one school by its
  constructor. The guard resolves the sheet's free-text teacher and subject
  names through it and queries same-teacher, same-day lessons.

SEE ALSO:
  - apply.go: Re-runs this guard immediately before mutating
*/
package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// SCHEDULE STORE - Live-store collaborator used by guard and align
// =============================================================================

// SubjectRef is a resolved subject identifier with its display name.
type SubjectRef struct {
	ID   string
	Name string
}

// AlignedFields are the values an align writes. Day, time and end date are
// never part of the write; they are preserved as stored.
type AlignedFields struct {
	StudentName  string
	DurationMins int
	TeacherID    string
	SubjectID    string
	StartDate    *string
}

// ScheduleStore is the read/write collaborator for guard and align.
// Implementations are scoped to one school; the engine never passes or
// infers tenancy itself.
type ScheduleStore interface {
	// ResolveTeacherID maps a free-text teacher name to an ID by exact
	// case-insensitive match. Returns ErrTeacherNotFound when absent.
	ResolveTeacherID(ctx context.Context, name string) (string, error)

	// ResolveSubject maps a free-text subject name to an ID by
	// case-insensitive prefix/substring match. Returns ErrSubjectNotFound
	// when absent.
	ResolveSubject(ctx context.Context, namePrefix string) (SubjectRef, error)

	// FindCollidingLessons returns active lessons for the teacher on the
	// given weekday, excluding the lesson being aligned.
	FindCollidingLessons(ctx context.Context, teacherID, dayOfWeek, excludeID string) ([]*Lesson, error)

	// PersistAlignedLesson writes the aligned fields in one conceptual
	// write and returns the updated lesson.
	PersistAlignedLesson(ctx context.Context, id string, fields AlignedFields) (*Lesson, error)
}

// =============================================================================
// GUARD RESULT
// =============================================================================

// GuardResult is the structured outcome of a conflict check.
// Blocked outcomes always carry a user-facing reason; the guard never
// reports failure by error for "cannot proceed" cases.
type GuardResult struct {
	Blocked bool
	Reason  string
}

func notBlocked() GuardResult           { return GuardResult{} }
func blocked(reason string) GuardResult { return GuardResult{Blocked: true, Reason: reason} }

// =============================================================================
// ALIGNER - Guard and align against the live store
// =============================================================================

// Aligner performs conflict checks and guarded aligns against a
// school-scoped ScheduleStore.
type Aligner struct {
	Store ScheduleStore
	Log   Logger
}

func NewAligner(store ScheduleStore) *Aligner {
	return &Aligner{Store: store, Log: NopLogger{}}
}

func (a *Aligner) log() Logger {
	if a.Log == nil {
		return NopLogger{}
	}
	return a.Log
}

// CheckConflict reports whether aligning lesson l to sheet row r would
// create a scheduling collision. It is invoked by callers for user
// feedback before Align, and re-run inside Align as a safety invariant.
func (a *Aligner) CheckConflict(ctx context.Context, l *Lesson, r *SheetLesson) (GuardResult, error) {
	// Step 1: the sheet's free-text names must resolve against the live
	// store. Unresolvable names block with distinct reasons.
	teacherID, err := a.Store.ResolveTeacherID(ctx, r.TeacherName)
	if err != nil {
		if IsNotFound(err) {
			return blocked(fmt.Sprintf("teacher %q not found in this school", r.TeacherName)), nil
		}
		return GuardResult{}, err
	}
	if _, err := a.Store.ResolveSubject(ctx, r.SubjectName); err != nil {
		if IsNotFound(err) {
			return blocked(fmt.Sprintf("subject %q not found in this school", r.SubjectName)), nil
		}
		return GuardResult{}, err
	}

	// Step 2: nothing to collide with yet.
	if l.TeacherID == nil || l.DayOfWeek == nil || l.StartTime == nil {
		return notBlocked(), nil
	}

	// Step 3: a different teacher means a different calendar entirely.
	if teacherID != *l.TeacherID {
		return notBlocked(), nil
	}

	// Step 4: unchanged duration keeps the existing slot.
	if r.DurationMins == l.DurationMins {
		return notBlocked(), nil
	}

	// Step 5: same teacher, duration changing. Test the revised window
	// against every other lesson on that teacher and day.
	startMins, ok := minuteOfDay(*l.StartTime)
	if !ok {
		return notBlocked(), nil
	}
	endMins := startMins + r.DurationMins

	others, err := a.Store.FindCollidingLessons(ctx, teacherID, *l.DayOfWeek, l.ID)
	if err != nil {
		return GuardResult{}, err
	}
	for _, other := range others {
		if other.StartTime == nil {
			continue
		}
		otherStart, ok := minuteOfDay(*other.StartTime)
		if !ok {
			continue
		}
		otherEnd := otherStart + other.DurationMins
		// Open-interval overlap.
		if startMins < otherEnd && endMins > otherStart {
			a.log().Debugf("guard: lesson %s would overlap lesson %s (%s)", l.ID, other.ID, other.StudentName)
			return blocked(fmt.Sprintf(
				"the new duration would overlap %s's lesson at %s on %s",
				other.StudentName, *other.StartTime, *l.DayOfWeek)), nil
		}
	}

	return notBlocked(), nil
}

// minuteOfDay converts "HH:MM" to a minute offset from midnight.
func minuteOfDay(hhmm string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(hhmm), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
