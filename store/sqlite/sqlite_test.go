package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/schedule-reconciler/reconcile"
	"github.com/warp/schedule-reconciler/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func str(s string) *string { return &s }

type fixture struct {
	store   *sqlite.Store
	school  sqlite.School
	teacher sqlite.Teacher
	subject reconcile.SubjectRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	school, err := store.CreateSchool(ctx, "Northside Music School")
	require.NoError(t, err)
	teacher, err := store.CreateTeacher(ctx, school.ID, "Ms. Keys")
	require.NoError(t, err)
	subject, err := store.CreateSubject(ctx, school.ID, "Piano")
	require.NoError(t, err)

	return &fixture{store: store, school: school, teacher: teacher, subject: subject}
}

func (f *fixture) addLesson(t *testing.T, student, day, startTime string, duration int) *reconcile.Lesson {
	t.Helper()
	l, err := f.store.CreateLesson(context.Background(), f.school.ID, &reconcile.Lesson{
		StudentName:  student,
		DurationMins: duration,
		TeacherID:    &f.teacher.ID,
		DayOfWeek:    str(day),
		StartTime:    str(startTime),
		SubjectID:    f.subject.ID,
		StartDate:    str("2024-01-01"),
		EndDate:      str("2024-06-01"),
	})
	require.NoError(t, err)
	return l
}

// =============================================================================
// LESSON QUERIES
// =============================================================================

func TestStore_CreateAndListLessons(t *testing.T) {
	f := newFixture(t)
	f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)
	f.addLesson(t, "Bob Jones", "Tuesday", "14:00", 45)

	lessons, err := f.store.ListActiveLessons(context.Background(), f.school.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	// Display names resolved through the joins.
	require.NotNil(t, lessons[0].TeacherName)
	assert.Equal(t, "Ms. Keys", *lessons[0].TeacherName)
	assert.Equal(t, "Piano", lessons[0].SubjectName)
}

func TestStore_SoftDeletedLessonsNeverSurface(t *testing.T) {
	f := newFixture(t)
	l := f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)

	require.NoError(t, f.store.SoftDeleteLesson(context.Background(), f.school.ID, l.ID))
	require.ErrorIs(t, f.store.SoftDeleteLesson(context.Background(), f.school.ID, l.ID), reconcile.ErrLessonNotFound)

	lessons, err := f.store.ListActiveLessons(context.Background(), f.school.ID)
	require.NoError(t, err)
	assert.Empty(t, lessons)

	got, err := f.store.GetLesson(context.Background(), f.school.ID, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LessonsScopedBySchool(t *testing.T) {
	f := newFixture(t)
	f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)

	other, err := f.store.CreateSchool(context.Background(), "Westside Academy")
	require.NoError(t, err)

	lessons, err := f.store.ListActiveLessons(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

// =============================================================================
// SCHEDULE VIEW - Name resolution
// =============================================================================

func TestScheduleView_ResolveTeacherCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	view := f.store.Schedule(f.school.ID)

	id, err := view.ResolveTeacherID(context.Background(), "ms. keys")
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, id)

	_, err = view.ResolveTeacherID(context.Background(), "Nobody Here")
	assert.ErrorIs(t, err, reconcile.ErrTeacherNotFound)
}

func TestScheduleView_ResolveSubjectBySubstring(t *testing.T) {
	f := newFixture(t)
	view := f.store.Schedule(f.school.ID)

	ref, err := view.ResolveSubject(context.Background(), "pian")
	require.NoError(t, err)
	assert.Equal(t, f.subject.ID, ref.ID)
	assert.Equal(t, "Piano", ref.Name)

	_, err = view.ResolveSubject(context.Background(), "Theremin")
	assert.ErrorIs(t, err, reconcile.ErrSubjectNotFound)
}

func TestScheduleView_ResolutionScopedBySchool(t *testing.T) {
	// A teacher in one school must not resolve from another school's view.
	f := newFixture(t)
	other, err := f.store.CreateSchool(context.Background(), "Westside Academy")
	require.NoError(t, err)

	_, err = f.store.Schedule(other.ID).ResolveTeacherID(context.Background(), "Ms. Keys")
	assert.ErrorIs(t, err, reconcile.ErrTeacherNotFound)
}

// =============================================================================
// SCHEDULE VIEW - Collision query and aligned write
// =============================================================================

func TestScheduleView_FindCollidingLessons(t *testing.T) {
	f := newFixture(t)
	a := f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)
	b := f.addLesson(t, "Bob Jones", "Monday", "10:30", 30)
	f.addLesson(t, "Carol White", "Tuesday", "10:00", 30)

	view := f.store.Schedule(f.school.ID)
	others, err := view.FindCollidingLessons(context.Background(), f.teacher.ID, "Monday", a.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, b.ID, others[0].ID)
}

func TestScheduleView_PersistAlignedLesson(t *testing.T) {
	f := newFixture(t)
	l := f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)

	violin, err := f.store.CreateSubject(context.Background(), f.school.ID, "Violin")
	require.NoError(t, err)

	view := f.store.Schedule(f.school.ID)
	updated, err := view.PersistAlignedLesson(context.Background(), l.ID, reconcile.AlignedFields{
		StudentName:  "Alice R Smith",
		DurationMins: 45,
		TeacherID:    f.teacher.ID,
		SubjectID:    violin.ID,
		StartDate:    str("2024-02-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice R Smith", updated.StudentName)
	assert.Equal(t, 45, updated.DurationMins)
	assert.Equal(t, violin.ID, updated.SubjectID)
	assert.Equal(t, "Violin", updated.SubjectName)
	require.NotNil(t, updated.StartDate)
	assert.Equal(t, "2024-02-01", *updated.StartDate)

	// The slot survives the write untouched.
	require.NotNil(t, updated.DayOfWeek)
	assert.Equal(t, "Monday", *updated.DayOfWeek)
	require.NotNil(t, updated.StartTime)
	assert.Equal(t, "10:00", *updated.StartTime)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2024-06-01", *updated.EndDate)
}

func TestScheduleView_PersistAlignedLesson_MissingLesson(t *testing.T) {
	f := newFixture(t)
	view := f.store.Schedule(f.school.ID)

	_, err := view.PersistAlignedLesson(context.Background(), "no-such-lesson", reconcile.AlignedFields{
		StudentName:  "Ghost",
		DurationMins: 30,
		TeacherID:    f.teacher.ID,
		SubjectID:    f.subject.ID,
	})
	assert.ErrorIs(t, err, reconcile.ErrLessonNotFound)
}

// End-to-end: the sqlite view drives the engine's guarded align.
func TestScheduleView_DrivesAligner(t *testing.T) {
	f := newFixture(t)
	a := f.addLesson(t, "Alice Smith", "Monday", "10:00", 30)
	f.addLesson(t, "Bob Jones", "Monday", "10:30", 30)

	aligner := reconcile.NewAligner(f.store.Schedule(f.school.ID))

	row := &reconcile.SheetLesson{
		StudentName:  "Alice Smith",
		DurationMins: 45,
		TeacherName:  "ms. keys",
		SubjectName:  "piano",
		StartDate:    "2024-01-01",
		RowNumber:    2,
	}

	result, err := aligner.Align(context.Background(), a, row)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Bob Jones")
}
