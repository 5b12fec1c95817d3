/*
handlers.go - HTTP API handlers for the schedule reconciler

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Schools:
    POST   /api/schools                          Create school
    GET    /api/schools/{schoolID}/teachers      List teachers
    POST   /api/schools/{schoolID}/teachers      Create teacher
    GET    /api/schools/{schoolID}/subjects      List subjects
    POST   /api/schools/{schoolID}/subjects      Create subject

  Lessons:
    GET    /api/schools/{schoolID}/lessons       List active lessons
    POST   /api/schools/{schoolID}/lessons       Create lesson
    DELETE /api/schools/{schoolID}/lessons/{id}  Soft-delete lesson

  Feed:
    POST   /api/schools/{schoolID}/feed          Upload .xlsx feed

  Reconciliation:
    GET    /api/schools/{schoolID}/reconciliation        Run against the feed
    POST   /api/schools/{schoolID}/reconciliation/check  Conflict check a pair
    POST   /api/schools/{schoolID}/reconciliation/align  Guarded align a pair

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store:   Database access
  - Log:     Structured logging
  - Metrics: Prometheus instruments
  The last uploaded feed and the align state are held in memory per school;
  both are working state of a review session, not durable data.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Reconciliation requested with no feed uploaded
  - 500: Internal errors
  Guard "blocked" and align "cannot proceed" outcomes are NOT errors: they
  return 200 with the structured outcome, because the client renders them.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/schedule-reconciler/feed"
	"github.com/warp/schedule-reconciler/reconcile"
	"github.com/warp/schedule-reconciler/store/sqlite"
)

// maxFeedUploadBytes caps workbook uploads.
const maxFeedUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Log     *logrus.Logger
	Metrics *Metrics

	// Working state of a review session, keyed by school ID.
	mu       sync.RWMutex
	feeds    map[string][]*reconcile.SheetLesson
	trackers map[string]*reconcile.AlignmentTracker

	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:    store,
		Log:      log,
		Metrics:  NewMetrics(),
		feeds:    make(map[string][]*reconcile.SheetLesson),
		trackers: make(map[string]*reconcile.AlignmentTracker),
	}
}

func (h *Handler) tracker(schoolID string) *reconcile.AlignmentTracker {
	if t, ok := h.trackers[schoolID]; ok {
		return t
	}
	t := reconcile.NewAlignmentTracker()
	h.trackers[schoolID] = t
	return t
}

// =============================================================================
// SCHOOL / TEACHER / SUBJECT HANDLERS
// =============================================================================

// CreateSchool creates a new school.
func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	school, err := h.Store.CreateSchool(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create school", err)
		return
	}
	writeJSON(w, http.StatusCreated, SchoolDTO{ID: school.ID, Name: school.Name})
}

// ListTeachers returns all teachers of a school.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	teachers, err := h.Store.ListTeachers(r.Context(), schoolID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, 0, len(teachers))
	for _, t := range teachers {
		dtos = append(dtos, toTeacherDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeacher creates a teacher in a school.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	var req CreateTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	teacher, err := h.Store.CreateTeacher(r.Context(), schoolID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(teacher))
}

// ListSubjects returns all subjects of a school.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	subjects, err := h.Store.ListSubjects(r.Context(), schoolID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subjects", err)
		return
	}

	dtos := make([]SubjectDTO, 0, len(subjects))
	for _, s := range subjects {
		dtos = append(dtos, toSubjectDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSubject creates a subject in a school.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	var req CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	subject, err := h.Store.CreateSubject(r.Context(), schoolID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create subject", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubjectDTO(subject))
}

// =============================================================================
// LESSON HANDLERS
// =============================================================================

// ListLessons returns the active lessons of a school.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	lessons, err := h.Store.ListActiveLessons(r.Context(), schoolID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lessons", err)
		return
	}

	dtos := make([]LessonDTO, 0, len(lessons))
	for _, l := range lessons {
		dtos = append(dtos, toLessonDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLesson creates a lesson in a school.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	var req CreateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StudentName == "" {
		writeError(w, http.StatusBadRequest, "student_name is required", nil)
		return
	}
	if req.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, "duration_mins must be positive", nil)
		return
	}
	if req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required", nil)
		return
	}

	lesson, err := h.Store.CreateLesson(r.Context(), schoolID, &reconcile.Lesson{
		StudentName:  req.StudentName,
		DurationMins: req.DurationMins,
		TeacherID:    req.TeacherID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		SubjectID:    req.SubjectID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create lesson", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLessonDTO(lesson))
}

// DeleteLesson soft-deletes a lesson.
func (h *Handler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")
	id := chi.URLParam(r, "id")

	if err := h.Store.SoftDeleteLesson(r.Context(), schoolID, id); err != nil {
		if reconcile.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Lesson not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete lesson", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// FEED HANDLERS
// =============================================================================

// UploadFeed accepts an .xlsx workbook (multipart field "file") and stores
// its parsed rows as the school's current feed.
func (h *Handler) UploadFeed(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	if err := r.ParseMultipartForm(maxFeedUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	result, err := feed.Load(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse workbook", err)
		return
	}

	h.mu.Lock()
	h.feeds[schoolID] = result.Rows
	h.trackers[schoolID] = reconcile.NewAlignmentTracker()
	h.mu.Unlock()

	h.Metrics.feedUploads.Inc()
	h.Metrics.feedRowsDropped.Add(float64(len(result.Dropped)))
	h.Log.WithFields(logrus.Fields{
		"school":  schoolID,
		"file":    header.Filename,
		"rows":    len(result.Rows),
		"dropped": len(result.Dropped),
	}).Info("feed uploaded")

	resp := FeedUploadResponse{Rows: make([]SheetLessonDTO, 0, len(result.Rows)), Dropped: result.Dropped}
	for _, row := range result.Rows {
		resp.Rows = append(resp.Rows, toSheetLessonDTO(row))
	}
	if resp.Dropped == nil {
		resp.Dropped = []feed.DroppedRow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// RunReconciliation classifies the school's active lessons against its
// current feed.
func (h *Handler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	h.mu.RLock()
	rows, ok := h.feeds[schoolID]
	h.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusConflict, "No feed uploaded for this school", nil)
		return
	}

	lessons, err := h.Store.ListActiveLessons(r.Context(), schoolID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lessons", err)
		return
	}

	start := time.Now()
	rc := &reconcile.Reconciler{Log: h.Log}
	result := rc.Reconcile(lessons, rows)
	h.Metrics.reconciliationRuns.Inc()
	h.Metrics.reconciliationSecs.Observe(time.Since(start).Seconds())

	h.mu.RLock()
	dto := h.toReconciliationDTO(schoolID, result)
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, dto)
}

// CheckConflict runs the guard on one lesson/row pair without writing.
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	lesson, row, ok := h.resolvePair(w, r, schoolID)
	if !ok {
		return
	}

	aligner := reconcile.NewAligner(h.Store.Schedule(schoolID))
	aligner.Log = h.Log
	guard, err := aligner.CheckConflict(r.Context(), lesson, row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Conflict check failed", err)
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Blocked: guard.Blocked, Reason: guard.Reason})
}

// AlignLesson overwrites a lesson with its sheet row's values after
// re-running the conflict guard.
func (h *Handler) AlignLesson(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	lesson, row, ok := h.resolvePair(w, r, schoolID)
	if !ok {
		return
	}

	aligner := reconcile.NewAligner(h.Store.Schedule(schoolID))
	aligner.Log = h.Log

	h.mu.Lock()
	h.tracker(schoolID).SetPending(lesson.ID)
	h.mu.Unlock()

	guard, err := aligner.CheckConflict(r.Context(), lesson, row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Conflict check failed", err)
		return
	}
	if guard.Blocked {
		h.mu.Lock()
		h.tracker(schoolID).SetBlocked(lesson.ID, guard.Reason)
		h.mu.Unlock()
		h.Metrics.observeAlign("blocked")
		writeJSON(w, http.StatusOK, AlignResponse{Success: false, Message: guard.Reason})
		return
	}

	result, err := aligner.Align(r.Context(), lesson, row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Align failed", err)
		return
	}

	resp := AlignResponse{Success: result.Success, Message: result.Message}
	h.mu.Lock()
	if result.Success {
		h.tracker(schoolID).Clear(lesson.ID)
	} else {
		h.tracker(schoolID).SetFailed(lesson.ID, result.Message)
	}
	h.mu.Unlock()

	if result.Success {
		dto := toLessonDTO(result.Updated)
		resp.Updated = &dto
		h.Metrics.observeAlign("success")
		h.Log.WithFields(logrus.Fields{
			"school": schoolID,
			"lesson": lesson.ID,
			"row":    row.RowNumber,
		}).Info("lesson aligned to sheet")
	} else {
		h.Metrics.observeAlign("failed")
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolvePair decodes a PairRequest and loads its lesson. A false return
// means the response has already been written.
func (h *Handler) resolvePair(w http.ResponseWriter, r *http.Request, schoolID string) (*reconcile.Lesson, *reconcile.SheetLesson, bool) {
	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, nil, false
	}
	if req.LessonID == "" {
		writeError(w, http.StatusBadRequest, "lesson_id is required", nil)
		return nil, nil, false
	}

	lesson, err := h.Store.GetLesson(r.Context(), schoolID, req.LessonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load lesson", err)
		return nil, nil, false
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "Lesson not found", nil)
		return nil, nil, false
	}
	return lesson, req.Row.toDomain(), true
}

// toReconciliationDTO projects an engine result, attaching any transient
// align state to the mismatched pairs. Caller holds h.mu.
func (h *Handler) toReconciliationDTO(schoolID string, result *reconcile.Result) ReconciliationDTO {
	dto := ReconciliationDTO{
		Matched:        make([]MatchedPairDTO, 0, len(result.Matched)),
		Mismatched:     make([]MismatchedPairDTO, 0, len(result.Mismatched)),
		MissingInDb:    make([]SheetLessonDTO, 0, len(result.MissingInDb)),
		MissingInSheet: make([]LessonDTO, 0, len(result.MissingInSheet)),
	}

	tracker := h.trackers[schoolID]
	for _, p := range result.Matched {
		dto.Matched = append(dto.Matched, MatchedPairDTO{Lesson: toLessonDTO(p.Lesson), Row: toSheetLessonDTO(p.Row)})
	}
	for _, p := range result.Mismatched {
		m := MismatchedPairDTO{Lesson: toLessonDTO(p.Lesson), Row: toSheetLessonDTO(p.Row), Diffs: p.Diffs}
		if tracker != nil {
			if attempt, ok := tracker.Get(p.Lesson.ID); ok {
				m.Alignment = &AlignmentDTO{Status: string(attempt.Status), Reason: attempt.Reason}
			}
		}
		dto.Mismatched = append(dto.Mismatched, m)
	}
	for _, row := range result.MissingInDb {
		dto.MissingInDb = append(dto.MissingInDb, toSheetLessonDTO(row))
	}
	for _, l := range result.MissingInSheet {
		dto.MissingInSheet = append(dto.MissingInSheet, toLessonDTO(l))
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
