/*
score.go - Weighted pairwise similarity between a lesson and a sheet row

PURPOSE:
  Computes a graded similarity score across five independent signals plus a
  date-range proximity term. The matching engine uses the score to decide
  which sheet row, if any, is the same real-world lesson as a given
  authoritative lesson.

SIGNAL WEIGHTS:
  Student name (normalized equal)      3.0
  Duration (integer equal)             2.0
  Subject (case-insensitive equal)     2.0
  Teacher (case-insensitive equal)     0.5
  Start date (normalized equal)        0.5
  Date-range proximity                 0.0 - 2.0

CANDIDATE THRESHOLD:
  A pair is a candidate match at score >= 8. The three hard signals
  (name, duration, subject) sum to 7, so a candidate must additionally show
  at least one point of temporal plausibility. Two lessons for the same
  student and subject on unrelated dates therefore never count as the same
  lesson.

PRECISION:
  Scores are decimal.Decimal, not float64. The piecewise-linear proximity
  decay and the 8.0 threshold are exact; there is no accumulation drift to
  reason about at the boundaries.

SEE ALSO:
  - normalize.go: The canonical forms the signals compare
  - match.go:     How scores drive the pairing
*/
package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCORE - Similarity value with exact arithmetic
// =============================================================================

type Score struct {
	Value decimal.Decimal
}

func NewScore(value float64) Score {
	return Score{Value: decimal.NewFromFloat(value)}
}

func (s Score) Add(o Score) Score       { return Score{Value: s.Value.Add(o.Value)} }
func (s Score) GreaterThan(o Score) bool { return s.Value.GreaterThan(o.Value) }
func (s Score) AtLeast(o Score) bool     { return s.Value.GreaterThanOrEqual(o.Value) }
func (s Score) IsZero() bool             { return s.Value.IsZero() }
func (s Score) Float64() float64         { f, _ := s.Value.Float64(); return f }
func (s Score) String() string           { return s.Value.String() }

// Signal weights.
var (
	weightName      = NewScore(3.0)
	weightDuration  = NewScore(2.0)
	weightSubject   = NewScore(2.0)
	weightTeacher   = NewScore(0.5)
	weightStartDate = NewScore(0.5)

	proximityMax = NewScore(2.0)

	candidateThreshold = NewScore(8.0)
)

// =============================================================================
// FIELD SIGNALS - Shared with the difference reporter
// =============================================================================

func nameMatches(l *Lesson, r *SheetLesson) bool {
	key := NormalizeName(l.StudentName)
	return key != "" && key == NormalizeName(r.StudentName)
}

func durationMatches(l *Lesson, r *SheetLesson) bool {
	return l.DurationMins == r.DurationMins
}

func subjectMatches(l *Lesson, r *SheetLesson) bool {
	return strings.EqualFold(strings.TrimSpace(l.SubjectName), strings.TrimSpace(r.SubjectName))
}

func teacherMatches(l *Lesson, r *SheetLesson) bool {
	if l.TeacherName == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*l.TeacherName), strings.TrimSpace(r.TeacherName))
}

func startDateMatches(l *Lesson, r *SheetLesson) bool {
	if l.StartDate == nil {
		return false
	}
	dbDate := NormalizeDate(*l.StartDate)
	rowDate := NormalizeDate(r.StartDate)
	return dbDate != nil && rowDate != nil && *dbDate == *rowDate
}

// =============================================================================
// PAIRWISE SCORE
// =============================================================================

// ScorePair accumulates the weighted signals for one lesson/row pair.
// Non-negative; effectively capped at 10 by the weight table.
func ScorePair(l *Lesson, r *SheetLesson) Score {
	score := NewScore(0)
	if nameMatches(l, r) {
		score = score.Add(weightName)
	}
	if durationMatches(l, r) {
		score = score.Add(weightDuration)
	}
	if subjectMatches(l, r) {
		score = score.Add(weightSubject)
	}
	if teacherMatches(l, r) {
		score = score.Add(weightTeacher)
	}
	if startDateMatches(l, r) {
		score = score.Add(weightStartDate)
	}
	return score.Add(dateRangeProximity(l, r))
}

// IsCandidateMatch reports whether the pair scores high enough to be
// treated as the same real-world lesson.
func IsCandidateMatch(l *Lesson, r *SheetLesson) bool {
	return ScorePair(l, r).AtLeast(candidateThreshold)
}

// IsPartialMatch is the looser second-pass net: same student plus agreement
// on duration or subject. Used only to prefer an explainable mismatch over
// a missing-in-db classification for otherwise-unclaimed sheet rows.
func IsPartialMatch(l *Lesson, r *SheetLesson) bool {
	return nameMatches(l, r) && (durationMatches(l, r) || subjectMatches(l, r))
}

// =============================================================================
// DATE-RANGE PROXIMITY
// =============================================================================

// Decay segments: days-outside -> contribution, linear within each segment.
//   [0, 7]   1.5 down to 1.0
//   (7, 30]  1.0 down to 0.5
//   (30, 90] 0.5 down to 0.0
//   beyond   0.0
type decaySegment struct {
	fromDay, toDay int64
	hi, lo         decimal.Decimal
}

var decaySegments = []decaySegment{
	{0, 7, decimal.NewFromFloat(1.5), decimal.NewFromFloat(1.0)},
	{7, 30, decimal.NewFromFloat(1.0), decimal.NewFromFloat(0.5)},
	{30, 90, decimal.NewFromFloat(0.5), decimal.Zero},
}

// dateRangeProximity scores how plausibly the sheet row's start date sits
// relative to the lesson's [StartDate, EndDate) interval. A date inside the
// interval is worth the full 2.0; outside, the contribution decays with the
// day-distance to the nearest interval boundary. Any parse failure yields
// zero, never an error.
func dateRangeProximity(l *Lesson, r *SheetLesson) Score {
	if l.StartDate == nil {
		return NewScore(0)
	}
	start, ok := parseISODate(*l.StartDate)
	if !ok {
		return NewScore(0)
	}

	rowNorm := NormalizeDate(r.StartDate)
	if rowNorm == nil {
		return NewScore(0)
	}
	rowDate, ok := parseISODate(*rowNorm)
	if !ok {
		return NewScore(0)
	}

	// A lesson without an end date is open-ended: any row date on or after
	// the start counts as inside the interval.
	if l.EndDate == nil {
		if !rowDate.Before(start) {
			return proximityMax
		}
		return decayScore(daysBetween(rowDate, start))
	}

	end, ok := parseISODate(*l.EndDate)
	if !ok {
		return NewScore(0)
	}
	if !rowDate.Before(start) && rowDate.Before(end) {
		return proximityMax
	}

	// Distance to the nearest boundary.
	var days int64
	if rowDate.Before(start) {
		days = daysBetween(rowDate, start)
	} else {
		days = daysBetween(end, rowDate)
	}
	return decayScore(days)
}

func decayScore(days int64) Score {
	for _, seg := range decaySegments {
		if days <= seg.toDay {
			span := seg.hi.Sub(seg.lo)
			width := decimal.NewFromInt(seg.toDay - seg.fromDay)
			offset := decimal.NewFromInt(days - seg.fromDay)
			return Score{Value: seg.hi.Sub(span.Mul(offset).Div(width))}
		}
	}
	return NewScore(0)
}

func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}
