package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func strPtr(s string) *string { return &s }

func pianoLesson() *Lesson {
	return &Lesson{
		ID:           "lesson-1",
		StudentName:  "Alice Smith",
		DurationMins: 30,
		TeacherName:  strPtr("Ms. Keys"),
		SubjectID:    "subj-piano",
		SubjectName:  "Piano",
		StartDate:    strPtr("2024-01-01"),
		EndDate:      strPtr("2024-06-01"),
	}
}

func pianoRow() *SheetLesson {
	return &SheetLesson{
		StudentName:  "alice smith",
		DurationMins: 30,
		TeacherName:  "ms. keys",
		StartDate:    "2024-01-01",
		SubjectName:  "piano",
		RowNumber:    2,
	}
}

// =============================================================================
// SIGNAL WEIGHTS
// =============================================================================

func TestScorePair_AllSignals(t *testing.T) {
	// GIVEN: A pair agreeing on every signal, row date inside the range
	// THEN: 3 + 2 + 2 + 0.5 + 0.5 + 2 = 10
	score := ScorePair(pianoLesson(), pianoRow())
	assert.Equal(t, 10.0, score.Float64())
}

func TestScorePair_Monotonic(t *testing.T) {
	// Adding a matching signal never decreases the score.
	l := pianoLesson()
	r := pianoRow()
	r.DurationMins = 45 // drop the duration signal
	without := ScorePair(l, r)
	r.DurationMins = 30
	with := ScorePair(l, r)
	assert.True(t, with.AtLeast(without), "score %v < %v", with, without)
	assert.Equal(t, 2.0, with.Float64()-without.Float64())
}

func TestIsCandidateMatch_ThresholdAtEight(t *testing.T) {
	// GIVEN: Hard signals only (name 3 + duration 2 + subject 2 = 7),
	//        no temporal plausibility at all
	// THEN: Not a candidate. Same student/subject on unrelated dates must
	//       never be treated as the same lesson.
	l := pianoLesson()
	l.TeacherName = nil
	r := pianoRow()
	r.TeacherName = ""
	r.StartDate = "2030-01-01" // far beyond the 90-day decay

	score := ScorePair(l, r)
	assert.Equal(t, 7.0, score.Float64())
	assert.False(t, IsCandidateMatch(l, r))

	// One point of temporal plausibility tips it over.
	r.StartDate = "2024-06-08" // 7 days past the exclusive end -> 1.0
	assert.True(t, IsCandidateMatch(l, r))
}

func TestScoreAtLeastEightImpliesCandidate(t *testing.T) {
	l := pianoLesson()
	r := pianoRow()
	if ScorePair(l, r).AtLeast(NewScore(8)) {
		assert.True(t, IsCandidateMatch(l, r))
	}
}

// =============================================================================
// DATE-RANGE PROXIMITY BOUNDARIES
// =============================================================================

func TestDateRangeProximity_Boundaries(t *testing.T) {
	l := pianoLesson() // [2024-01-01, 2024-06-01)

	tests := []struct {
		name    string
		rowDate string
		want    float64
	}{
		{"on start date", "2024-01-01", 2.0},
		{"inside interval", "2024-03-15", 2.0},
		{"day before exclusive end", "2024-05-31", 2.0},
		{"on exclusive end", "2024-06-01", 1.5},
		{"7 days before start", "2023-12-25", 1.0},
		{"7 days past end", "2024-06-08", 1.0},
		{"30 days past end", "2024-07-01", 0.5},
		{"90 days past end", "2024-08-30", 0.0},
		{"beyond 90 days", "2025-01-01", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SheetLesson{StartDate: tt.rowDate}
			got := dateRangeProximity(l, r)
			assert.Equal(t, tt.want, got.Float64(), "row date %s", tt.rowDate)
		})
	}
}

func TestDateRangeProximity_ParseFailureScoresZero(t *testing.T) {
	l := pianoLesson()

	// Garbage row date
	assert.Equal(t, 0.0, dateRangeProximity(l, &SheetLesson{StartDate: "soonish"}).Float64())

	// Garbage authoritative dates
	bad := pianoLesson()
	bad.StartDate = strPtr("not-a-date")
	assert.Equal(t, 0.0, dateRangeProximity(bad, pianoRow()).Float64())

	// No authoritative start date at all
	unset := pianoLesson()
	unset.StartDate = nil
	assert.Equal(t, 0.0, dateRangeProximity(unset, pianoRow()).Float64())
}

func TestDateRangeProximity_OpenEndedInterval(t *testing.T) {
	// GIVEN: No end date
	// THEN: Any row date on or after the start is inside the interval
	l := pianoLesson()
	l.EndDate = nil
	assert.Equal(t, 2.0, dateRangeProximity(l, &SheetLesson{StartDate: "2030-01-01"}).Float64())
	assert.Equal(t, 1.0, dateRangeProximity(l, &SheetLesson{StartDate: "2023-12-25"}).Float64())
}

// =============================================================================
// PARTIAL MATCH
// =============================================================================

func TestIsPartialMatch(t *testing.T) {
	l := pianoLesson()

	// Same name + same duration, different subject
	r := pianoRow()
	r.SubjectName = "Violin"
	assert.True(t, IsPartialMatch(l, r))

	// Same name + same subject, different duration
	r = pianoRow()
	r.DurationMins = 45
	assert.True(t, IsPartialMatch(l, r))

	// Same name only
	r = pianoRow()
	r.DurationMins = 45
	r.SubjectName = "Violin"
	assert.False(t, IsPartialMatch(l, r))

	// Different name, everything else equal
	r = pianoRow()
	r.StudentName = "Bob Jones"
	assert.False(t, IsPartialMatch(l, r))
}
