package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/schedule-reconciler/reconcile"
)

// =============================================================================
// ALIGN - Guarded overwrite
// =============================================================================

func TestAlign_OverwritesCoreFieldsPreservesSlot(t *testing.T) {
	// GIVEN: A mismatched pair (sheet says 25 minutes, shrinking is safe)
	// WHEN: Aligning
	// THEN: Name, duration, teacher, subject and start date take the
	//       sheet's values; day, time and end date survive untouched
	_, aligner, a := newGuardFixture()

	r := alignRow(25)
	r.StudentName = "Alice R Smith"
	r.StartDate = "15/1/2024"

	result, err := aligner.Align(context.Background(), a, r)
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	require.NotNil(t, result.Updated)

	updated := result.Updated
	assert.Equal(t, "Alice R Smith", updated.StudentName)
	assert.Equal(t, 25, updated.DurationMins)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, "t-1", *updated.TeacherID)
	assert.Equal(t, "s-1", updated.SubjectID)
	require.NotNil(t, updated.StartDate)
	assert.Equal(t, "2024-01-15", *updated.StartDate) // normalized on write

	// Preserved as stored.
	require.NotNil(t, updated.DayOfWeek)
	assert.Equal(t, "Monday", *updated.DayOfWeek)
	require.NotNil(t, updated.StartTime)
	assert.Equal(t, "10:00", *updated.StartTime)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2024-06-01", *updated.EndDate)
}

func TestAlign_RerunsGuardAndFailsClosed(t *testing.T) {
	// GIVEN: A duration change that would overlap the next lesson
	// WHEN: Aligning WITHOUT a prior CheckConflict call
	// THEN: Align runs the guard itself and refuses with the reason;
	//       nothing is written
	mem, aligner, a := newGuardFixture()

	result, err := aligner.Align(context.Background(), a, alignRow(45))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Bob Jones")
	assert.Nil(t, result.Updated)

	// The store still holds the original duration.
	others, err := mem.FindCollidingLessons(context.Background(), "t-1", "Monday", "lesson-b")
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, 30, others[0].DurationMins)
}

func TestAlign_UnresolvableNamesFailClosed(t *testing.T) {
	_, aligner, a := newGuardFixture()

	r := alignRow(30)
	r.TeacherName = "Nobody Here"
	result, err := aligner.Align(context.Background(), a, r)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "teacher")

	r2 := alignRow(30)
	r2.SubjectName = "Theremin"
	result2, err := aligner.Align(context.Background(), a, r2)
	require.NoError(t, err)
	assert.False(t, result2.Success)
	assert.Contains(t, result2.Message, "subject")
}

func TestAlign_MissingLessonFailsWithoutPartialWrite(t *testing.T) {
	// GIVEN: The lesson vanished between fetch and align
	// THEN: A failure result with an explanation, not an error or a write
	_, aligner, a := newGuardFixture()
	ghost := *a
	ghost.ID = "lesson-gone"

	result, err := aligner.Align(context.Background(), &ghost, alignRow(30))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
}

// =============================================================================
// ALIGNMENT TRACKER
// =============================================================================

func TestAlignmentTracker_Lifecycle(t *testing.T) {
	tracker := reconcile.NewAlignmentTracker()

	tracker.SetPending("lesson-a")
	attempt, ok := tracker.Get("lesson-a")
	require.True(t, ok)
	assert.Equal(t, reconcile.AlignPending, attempt.Status)

	tracker.SetBlocked("lesson-a", "would overlap")
	attempt, _ = tracker.Get("lesson-a")
	assert.Equal(t, reconcile.AlignBlocked, attempt.Status)
	assert.Equal(t, "would overlap", attempt.Reason)

	tracker.Clear("lesson-a")
	_, ok = tracker.Get("lesson-a")
	assert.False(t, ok)
}
