/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a school with teachers,
	subjects, and lessons, and installs a spreadsheet feed alongside so the
	reconciliation screen has something to show immediately.

AVAILABLE SCENARIOS:

	clean-sheet:      Database and spreadsheet agree on everything
	drifted-sheet:    Mix of matches, field drift, and one-sided records
	collision-course: A sheet-side duration change that collides with the
	                  teacher's next lesson, demonstrating the guard

HOW SCENARIOS WORK:
 1. Create a fresh school
 2. Create teachers and subjects
 3. Create lessons
 4. Install the scenario's feed rows as the school's current feed

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "drifted-sheet"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: feed and reconciliation handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/schedule-reconciler/reconcile"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "clean-sheet",
		Name:        "Clean Sheet",
		Description: "Database and spreadsheet agree; every lesson matches its row",
	},
	{
		ID:          "drifted-sheet",
		Name:        "Drifted Sheet",
		Description: "Duration and teacher drift, one sheet-only row, one database-only lesson",
	},
	{
		ID:          "collision-course",
		Name:        "Collision Course",
		Description: "A sheet-side duration change that would overlap the teacher's next lesson",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario populates the database with a named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context, *Handler) (LoadScenarioResponse, error)
	switch req.ScenarioID {
	case "clean-sheet":
		loader = loadCleanSheetScenario
	case "drifted-sheet":
		loader = loadDriftedSheetScenario
	case "collision-course":
		loader = loadCollisionCourseScenario
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	resp, err := loader(r.Context(), h)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, resp)
}

// SeedDemo loads the drifted-sheet scenario, for servers started with
// demo seeding enabled.
func SeedDemo(ctx context.Context, h *Handler) error {
	resp, err := loadDriftedSheetScenario(ctx, h)
	if err != nil {
		return err
	}
	h.currentScenario = "drifted-sheet"
	h.Log.WithField("school", resp.School.ID).Info("demo scenario seeded")
	return nil
}

// =============================================================================
// SCENARIO BUILDING BLOCKS
// =============================================================================

// scenarioSchool is one school's worth of seed data plus its feed.
type scenarioSchool struct {
	name     string
	teachers []string
	subjects []string
	lessons  []seedLesson
	feed     []*reconcile.SheetLesson
}

// seedLesson references teachers and subjects by name; the builder resolves
// them to the IDs minted during the load.
type seedLesson struct {
	student   string
	duration  int
	teacher   string // blank = unassigned
	day       string // blank = unscheduled
	startTime string
	subject   string
	startDate string
	endDate   string
}

func (h *Handler) buildScenario(ctx context.Context, s scenarioSchool) (LoadScenarioResponse, error) {
	school, err := h.Store.CreateSchool(ctx, s.name)
	if err != nil {
		return LoadScenarioResponse{}, err
	}

	teacherIDs := make(map[string]string, len(s.teachers))
	for _, name := range s.teachers {
		t, err := h.Store.CreateTeacher(ctx, school.ID, name)
		if err != nil {
			return LoadScenarioResponse{}, err
		}
		teacherIDs[name] = t.ID
	}

	subjectIDs := make(map[string]string, len(s.subjects))
	for _, name := range s.subjects {
		sub, err := h.Store.CreateSubject(ctx, school.ID, name)
		if err != nil {
			return LoadScenarioResponse{}, err
		}
		subjectIDs[name] = sub.ID
	}

	for _, l := range s.lessons {
		lesson := &reconcile.Lesson{
			StudentName:  l.student,
			DurationMins: l.duration,
			SubjectID:    subjectIDs[l.subject],
		}
		if l.teacher != "" {
			id := teacherIDs[l.teacher]
			lesson.TeacherID = &id
		}
		if l.day != "" {
			lesson.DayOfWeek = strPtr(l.day)
			lesson.StartTime = strPtr(l.startTime)
		}
		if l.startDate != "" {
			lesson.StartDate = strPtr(l.startDate)
		}
		if l.endDate != "" {
			lesson.EndDate = strPtr(l.endDate)
		}
		if _, err := h.Store.CreateLesson(ctx, school.ID, lesson); err != nil {
			return LoadScenarioResponse{}, err
		}
	}

	h.mu.Lock()
	h.feeds[school.ID] = s.feed
	h.trackers[school.ID] = reconcile.NewAlignmentTracker()
	h.mu.Unlock()

	return LoadScenarioResponse{
		School:   SchoolDTO{ID: school.ID, Name: school.Name},
		Lessons:  len(s.lessons),
		FeedRows: len(s.feed),
	}, nil
}

func sheetRow(rowNumber int, student string, duration int, teacher, subject, startDate string) *reconcile.SheetLesson {
	return &reconcile.SheetLesson{
		StudentName:  student,
		DurationMins: duration,
		TeacherName:  teacher,
		SubjectName:  subject,
		StartDate:    startDate,
		RowNumber:    rowNumber,
	}
}

func strPtr(s string) *string { return &s }

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadCleanSheetScenario(ctx context.Context, h *Handler) (LoadScenarioResponse, error) {
	return h.buildScenario(ctx, scenarioSchool{
		name:     "Riverside Music School",
		teachers: []string{"Ms. Keys", "Mr. Frets"},
		subjects: []string{"Piano", "Guitar"},
		lessons: []seedLesson{
			{"Alice Smith", 30, "Ms. Keys", "Monday", "10:00", "Piano", "2026-01-05", "2026-07-01"},
			{"Bob Jones", 45, "Mr. Frets", "Tuesday", "15:00", "Guitar", "2026-01-06", "2026-07-01"},
		},
		feed: []*reconcile.SheetLesson{
			sheetRow(2, "Alice Smith", 30, "Ms. Keys", "Piano", "2026-01-05"),
			sheetRow(3, "Bob Jones", 45, "Mr. Frets", "Guitar", "2026-01-06"),
		},
	})
}

func loadDriftedSheetScenario(ctx context.Context, h *Handler) (LoadScenarioResponse, error) {
	return h.buildScenario(ctx, scenarioSchool{
		name:     "Hillcrest Academy of Music",
		teachers: []string{"Ms. Keys", "Mr. Frets", "Mrs. Bow"},
		subjects: []string{"Piano", "Guitar", "Violin"},
		lessons: []seedLesson{
			// Matches its row exactly.
			{"Alice Smith", 30, "Ms. Keys", "Monday", "10:00", "Piano", "2026-01-05", "2026-07-01"},
			// Sheet says 45 minutes; the database still has 30.
			{"Bob Jones", 30, "Mr. Frets", "Tuesday", "15:00", "Guitar", "2026-01-06", "2026-07-01"},
			// Sheet reassigned Carol to Mrs. Bow.
			{"Carol White", 60, "Ms. Keys", "Wednesday", "16:00", "Violin", "2026-01-07", "2026-07-01"},
			// Nobody put Dave in the sheet.
			{"Dave Green", 30, "Mr. Frets", "Thursday", "11:00", "Guitar", "2026-01-08", "2026-07-01"},
		},
		feed: []*reconcile.SheetLesson{
			sheetRow(2, "Alice Smith", 30, "Ms. Keys", "Piano", "2026-01-05"),
			sheetRow(3, "Bob Jones", 45, "Mr. Frets", "Guitar", "2026-01-06"),
			sheetRow(4, "Carol White", 60, "Mrs. Bow", "Violin", "2026-01-07"),
			// Eve only exists in the sheet.
			sheetRow(5, "Eve Black", 30, "Ms. Keys", "Piano", "2026-02-02"),
		},
	})
}

func loadCollisionCourseScenario(ctx context.Context, h *Handler) (LoadScenarioResponse, error) {
	return h.buildScenario(ctx, scenarioSchool{
		name:     "Westgate Conservatory",
		teachers: []string{"Ms. Keys"},
		subjects: []string{"Piano"},
		lessons: []seedLesson{
			// Growing Alice to 45 minutes would run into Bob's 10:30 slot.
			{"Alice Smith", 30, "Ms. Keys", "Monday", "10:00", "Piano", "2026-01-05", "2026-07-01"},
			{"Bob Jones", 30, "Ms. Keys", "Monday", "10:30", "Piano", "2026-01-05", "2026-07-01"},
		},
		feed: []*reconcile.SheetLesson{
			sheetRow(2, "Alice Smith", 45, "Ms. Keys", "Piano", "2026-01-05"),
			sheetRow(3, "Bob Jones", 30, "Ms. Keys", "Piano", "2026-01-05"),
		},
	})
}
