/*
Package reconcile provides the lesson reconciliation engine.

PURPOSE:
  This package compares the authoritative lesson schedule (the database view)
  against an external, loosely-structured feed (spreadsheet rows) and produces
  a best-effort one-to-one pairing between the two. Every record lands in
  exactly one of four buckets: matched, mismatched, missing-in-db, or
  missing-in-sheet. A guarded align operation can then overwrite an
  authoritative lesson with its sheet counterpart without creating a
  double-booked teacher slot.

KEY CONCEPTS IN THIS FILE (types.go):
  - Lesson:       An authoritative scheduled (or unscheduled) lesson
  - SheetLesson:  One row from the external feed
  - Result:       The four disjoint outcome buckets of a reconciliation run
  - AlignmentTracker: Transient per-lesson state for align attempts

DESIGN PRINCIPLES:
  1. Purity: Reconcile is a synchronous computation over two in-memory lists.
     All I/O (fetching lessons, reading the sheet) belongs to the caller.
  2. Partition invariant: every input record appears in exactly one bucket
     per run. No duplicates, no omissions.
  3. Degrade gracefully: malformed free-text fields never abort a run; they
     simply fail to match.
  4. Explicit tenancy: the engine receives record lists and a scoped store.
     It never reads ambient session state.

USAGE:
  result := reconcile.Reconcile(lessons, rows)
  for _, m := range result.Mismatched {
      fmt.Println(m.Lesson.StudentName, m.Diffs)
  }

SEE ALSO:
  - score.go: Weighted pairwise similarity
  - match.go: The pairing algorithm
  - guard.go: Collision detection before align
  - apply.go: The guarded align operation
*/
package reconcile

// =============================================================================
// AUTHORITATIVE RECORD - A lesson as stored in the system of record
// =============================================================================

// Lesson is one scheduled (or unscheduled) lesson occurrence.
// Nil pointer fields mean "not set": a lesson with no TeacherID is
// unassigned, a lesson with no DayOfWeek/StartTime is unscheduled.
//
// The engine treats lessons as read-only except via Aligner.Align, which
// overwrites student name, duration, teacher, subject and start date while
// preserving day, time and end date.
type Lesson struct {
	ID           string
	StudentName  string
	DurationMins int

	TeacherID   *string
	TeacherName *string

	DayOfWeek *string // e.g. "Monday"
	StartTime *string // "HH:MM", 24-hour

	SubjectID   string
	SubjectName string

	StartDate *string // "YYYY-MM-DD", inclusive
	EndDate   *string // "YYYY-MM-DD", exclusive
}

// =============================================================================
// EXTERNAL RECORD - One row from the spreadsheet feed
// =============================================================================

// SheetLesson is one row from the external feed. All fields are free text
// as observed; the engine never assumes well-formed dates or unique names.
// Immutable within one reconciliation pass.
type SheetLesson struct {
	StudentName  string
	DurationMins int
	TeacherName  string
	StartDate    string // free text, possibly non-ISO
	SubjectName  string
	RowNumber    int // originating row, for diagnostics
}

// =============================================================================
// OUTCOMES - The four disjoint classifications
// =============================================================================

// MatchedPair is a lesson and sheet row with zero field differences.
type MatchedPair struct {
	Lesson *Lesson
	Row    *SheetLesson
}

// MismatchedPair is a paired lesson and sheet row that disagree on at least
// one field. Diffs is ordered by the fixed field order of Diff.
type MismatchedPair struct {
	Lesson *Lesson
	Row    *SheetLesson
	Diffs  []string
}

// Result holds the outcome of one reconciliation run. The four buckets
// partition the valid input: every lesson and every sheet row appears in
// exactly one of them.
type Result struct {
	Matched        []MatchedPair
	Mismatched     []MismatchedPair
	MissingInDb    []*SheetLesson // sheet rows with no counterpart
	MissingInSheet []*Lesson      // lessons with no counterpart
}

// =============================================================================
// ALIGNMENT TRACKER - Transient per-lesson align state
// =============================================================================

type AlignmentStatus string

const (
	AlignPending AlignmentStatus = "pending"
	AlignBlocked AlignmentStatus = "blocked"
	AlignFailed  AlignmentStatus = "failed"
)

// AlignmentAttempt records the state of one align attempt for a lesson.
type AlignmentAttempt struct {
	Status AlignmentStatus
	Reason string
}

// AlignmentTracker holds transient align state keyed by lesson ID.
// Successful aligns clear the entry; the caller moves the pair from the
// Mismatched bucket into Matched.
type AlignmentTracker struct {
	attempts map[string]AlignmentAttempt
}

func NewAlignmentTracker() *AlignmentTracker {
	return &AlignmentTracker{attempts: make(map[string]AlignmentAttempt)}
}

func (t *AlignmentTracker) SetPending(lessonID string) {
	t.attempts[lessonID] = AlignmentAttempt{Status: AlignPending}
}

func (t *AlignmentTracker) SetBlocked(lessonID, reason string) {
	t.attempts[lessonID] = AlignmentAttempt{Status: AlignBlocked, Reason: reason}
}

func (t *AlignmentTracker) SetFailed(lessonID, reason string) {
	t.attempts[lessonID] = AlignmentAttempt{Status: AlignFailed, Reason: reason}
}

// Clear removes the entry for a lesson, used on successful align.
func (t *AlignmentTracker) Clear(lessonID string) {
	delete(t.attempts, lessonID)
}

// Get returns the attempt state for a lesson, if any.
func (t *AlignmentTracker) Get(lessonID string) (AlignmentAttempt, bool) {
	a, ok := t.attempts[lessonID]
	return a, ok
}

// =============================================================================
// LOGGER - Injectable tracing, replaces ad-hoc global debug output
// =============================================================================

// Logger is the minimal tracing interface the engine accepts.
// *logrus.Logger satisfies it. The engine works with NopLogger by default
// so reconciliation stays a pure function in tests.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...interface{}) {}
