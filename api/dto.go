/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/types.go: The domain model these project
*/
package api

import (
	"github.com/warp/schedule-reconciler/feed"
	"github.com/warp/schedule-reconciler/reconcile"
	"github.com/warp/schedule-reconciler/store/sqlite"
)

// =============================================================================
// SCHOOL / TEACHER / SUBJECT
// =============================================================================

// SchoolDTO represents a school in API responses.
type SchoolDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateSchoolRequest is the request to create a school.
type CreateSchoolRequest struct {
	Name string `json:"name"`
}

// TeacherDTO represents a teacher in API responses.
type TeacherDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateTeacherRequest is the request to create a teacher.
type CreateTeacherRequest struct {
	Name string `json:"name"`
}

// SubjectDTO represents a subject in API responses.
type SubjectDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateSubjectRequest is the request to create a subject.
type CreateSubjectRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// LESSONS
// =============================================================================

// LessonDTO represents a scheduled lesson in API responses. Optional fields
// render as null, matching the nullable columns behind them.
type LessonDTO struct {
	ID           string  `json:"id"`
	StudentName  string  `json:"student_name"`
	DurationMins int     `json:"duration_mins"`
	TeacherID    *string `json:"teacher_id"`
	TeacherName  *string `json:"teacher_name"`
	DayOfWeek    *string `json:"day_of_week"`
	StartTime    *string `json:"start_time"`
	SubjectID    string  `json:"subject_id"`
	SubjectName  string  `json:"subject_name"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// CreateLessonRequest is the request to create a lesson.
type CreateLessonRequest struct {
	StudentName  string  `json:"student_name"`
	DurationMins int     `json:"duration_mins"`
	TeacherID    *string `json:"teacher_id"`
	DayOfWeek    *string `json:"day_of_week"`
	StartTime    *string `json:"start_time"`
	SubjectID    string  `json:"subject_id"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// SheetLessonDTO represents one spreadsheet row in API responses.
type SheetLessonDTO struct {
	StudentName  string `json:"student_name"`
	DurationMins int    `json:"duration_mins"`
	TeacherName  string `json:"teacher_name"`
	SubjectName  string `json:"subject_name"`
	StartDate    string `json:"start_date"`
	RowNumber    int    `json:"row_number"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// MatchedPairDTO is a lesson and sheet row with zero differences.
type MatchedPairDTO struct {
	Lesson LessonDTO      `json:"lesson"`
	Row    SheetLessonDTO `json:"row"`
}

// MismatchedPairDTO is a paired lesson and row that disagree on at least one
// field. Alignment carries the transient align state for the lesson, if any.
type MismatchedPairDTO struct {
	Lesson    LessonDTO      `json:"lesson"`
	Row       SheetLessonDTO `json:"row"`
	Diffs     []string       `json:"diffs"`
	Alignment *AlignmentDTO  `json:"alignment,omitempty"`
}

// AlignmentDTO is the transient align state of one lesson.
type AlignmentDTO struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ReconciliationDTO is the full four-bucket result of one run.
type ReconciliationDTO struct {
	Matched        []MatchedPairDTO    `json:"matched"`
	Mismatched     []MismatchedPairDTO `json:"mismatched"`
	MissingInDb    []SheetLessonDTO    `json:"missing_in_db"`
	MissingInSheet []LessonDTO         `json:"missing_in_sheet"`
}

// =============================================================================
// CHECK / ALIGN
// =============================================================================

// PairRequest names a lesson and a sheet row for a check or align call.
// The row is sent back verbatim rather than referenced, because feed rows
// have no server-side identity beyond the upload they arrived in.
type PairRequest struct {
	LessonID string         `json:"lesson_id"`
	Row      SheetLessonDTO `json:"row"`
}

// CheckResponse is the outcome of a conflict check.
type CheckResponse struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// AlignResponse is the outcome of a guarded align.
type AlignResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Updated *LessonDTO `json:"updated,omitempty"`
}

// =============================================================================
// FEED
// =============================================================================

// FeedUploadResponse reports what a workbook parsed into.
type FeedUploadResponse struct {
	Rows    []SheetLessonDTO  `json:"rows"`
	Dropped []feed.DroppedRow `json:"dropped"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what a scenario load created.
type LoadScenarioResponse struct {
	School   SchoolDTO `json:"school"`
	Lessons  int       `json:"lessons"`
	FeedRows int       `json:"feed_rows"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO PROJECTION
// =============================================================================

func toLessonDTO(l *reconcile.Lesson) LessonDTO {
	return LessonDTO{
		ID:           l.ID,
		StudentName:  l.StudentName,
		DurationMins: l.DurationMins,
		TeacherID:    l.TeacherID,
		TeacherName:  l.TeacherName,
		DayOfWeek:    l.DayOfWeek,
		StartTime:    l.StartTime,
		SubjectID:    l.SubjectID,
		SubjectName:  l.SubjectName,
		StartDate:    l.StartDate,
		EndDate:      l.EndDate,
	}
}

func toSheetLessonDTO(r *reconcile.SheetLesson) SheetLessonDTO {
	return SheetLessonDTO{
		StudentName:  r.StudentName,
		DurationMins: r.DurationMins,
		TeacherName:  r.TeacherName,
		SubjectName:  r.SubjectName,
		StartDate:    r.StartDate,
		RowNumber:    r.RowNumber,
	}
}

func (d SheetLessonDTO) toDomain() *reconcile.SheetLesson {
	return &reconcile.SheetLesson{
		StudentName:  d.StudentName,
		DurationMins: d.DurationMins,
		TeacherName:  d.TeacherName,
		SubjectName:  d.SubjectName,
		StartDate:    d.StartDate,
		RowNumber:    d.RowNumber,
	}
}

func toTeacherDTO(t sqlite.Teacher) TeacherDTO {
	return TeacherDTO{ID: t.ID, Name: t.Name}
}

func toSubjectDTO(s reconcile.SubjectRef) SubjectDTO {
	return SubjectDTO{ID: s.ID, Name: s.Name}
}
