/*
Package sqlite provides a SQLite-backed schedule store.

PURPOSE:
  Persists the authoritative schedule (lessons, teachers, subjects) per
  school and implements the engine's ScheduleStore collaborator for the
  conflict guard and align operation. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  reconcile.ScheduleStore (via the school-scoped view from Schedule())

KEY TABLES:
  schools:   Tenant records
  teachers:  Teaching resources, resolved by case-insensitive name
  subjects:  Lesson categories, resolved by case-insensitive substring
  lessons:   The authoritative schedule; soft-deleted rows never surface

TENANCY:
  Every query is scoped by school_id. Callers obtain a school-scoped view
  with Schedule(schoolID); the engine never sees tenancy at all.

ALIGN WRITES:
  PersistAlignedLesson updates student name, duration, teacher, subject and
  start date in ONE statement. Day-of-week, start time and end date are
  deliberately not part of the UPDATE.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and SQLite WAL mode so readers don't
  block. Two concurrent aligns are serialized by the write lock; the guard
  re-check inside Align runs under current data.

USAGE:
  st, err := sqlite.New("./data/schedule.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  aligner := reconcile.NewAligner(st.Schedule(schoolID))

SEE ALSO:
  - reconcile/guard.go: The collaborator contract
  - reconcile/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/schedule-reconciler/reconcile"
)

// Store owns the database handle. Obtain school-scoped views with Schedule.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_teachers_school
		ON teachers(school_id);
	-- Name resolution is case-insensitive and per school.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_teachers_school_name
		ON teachers(school_id, name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subjects_school
		ON subjects(school_id);

	CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		duration_mins INTEGER NOT NULL,
		teacher_id TEXT,
		day_of_week TEXT,
		start_time TEXT,
		subject_id TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		deleted_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (teacher_id) REFERENCES teachers(id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE INDEX IF NOT EXISTS idx_lessons_school
		ON lessons(school_id) WHERE deleted_at IS NULL;
	-- Collision queries: same teacher, same weekday (hot path for the guard)
	CREATE INDEX IF NOT EXISTS idx_lessons_teacher_day
		ON lessons(teacher_id, day_of_week) WHERE deleted_at IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func newID() string { return uuid.NewString() }

// =============================================================================
// SCHOOLS, TEACHERS, SUBJECTS
// =============================================================================

type School struct {
	ID   string
	Name string
}

type Teacher struct {
	ID   string
	Name string
}

func (s *Store) CreateSchool(ctx context.Context, name string) (School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := School{ID: newID(), Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schools (id, name, created_at) VALUES (?, ?, ?)`,
		sc.ID, sc.Name, now())
	return sc, err
}

func (s *Store) CreateTeacher(ctx context.Context, schoolID, name string) (Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := Teacher{ID: newID(), Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teachers (id, school_id, name, created_at) VALUES (?, ?, ?, ?)`,
		tc.ID, schoolID, tc.Name, now())
	return tc, err
}

func (s *Store) CreateSubject(ctx context.Context, schoolID, name string) (reconcile.SubjectRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := reconcile.SubjectRef{ID: newID(), Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id, school_id, name, created_at) VALUES (?, ?, ?, ?)`,
		sub.ID, schoolID, sub.Name, now())
	return sub, err
}

func (s *Store) ListTeachers(ctx context.Context, schoolID string) ([]Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM teachers WHERE school_id = ? ORDER BY name`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func (s *Store) ListSubjects(ctx context.Context, schoolID string) ([]reconcile.SubjectRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM subjects WHERE school_id = ? ORDER BY name`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []reconcile.SubjectRef
	for rows.Next() {
		var sub reconcile.SubjectRef
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// =============================================================================
// LESSONS
// =============================================================================

const lessonColumns = `
	l.id, l.student_name, l.duration_mins,
	l.teacher_id, t.name,
	l.day_of_week, l.start_time,
	l.subject_id, COALESCE(sub.name, ''),
	l.start_date, l.end_date`

const lessonJoins = `
	FROM lessons l
	LEFT JOIN teachers t ON t.id = l.teacher_id
	LEFT JOIN subjects sub ON sub.id = l.subject_id`

func scanLesson(scan func(dest ...any) error) (*reconcile.Lesson, error) {
	var l reconcile.Lesson
	var teacherID, teacherName, day, start, startDate, endDate sql.NullString
	err := scan(
		&l.ID, &l.StudentName, &l.DurationMins,
		&teacherID, &teacherName,
		&day, &start,
		&l.SubjectID, &l.SubjectName,
		&startDate, &endDate,
	)
	if err != nil {
		return nil, err
	}
	if teacherID.Valid {
		l.TeacherID = &teacherID.String
	}
	if teacherName.Valid {
		l.TeacherName = &teacherName.String
	}
	if day.Valid {
		l.DayOfWeek = &day.String
	}
	if start.Valid {
		l.StartTime = &start.String
	}
	if startDate.Valid {
		l.StartDate = &startDate.String
	}
	if endDate.Valid {
		l.EndDate = &endDate.String
	}
	return &l, nil
}

// CreateLesson inserts a lesson, minting an ID when the caller left it blank.
func (s *Store) CreateLesson(ctx context.Context, schoolID string, l *reconcile.Lesson) (*reconcile.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = newID()
	}
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons
			(id, school_id, student_name, duration_mins, teacher_id,
			 day_of_week, start_time, subject_id, start_date, end_date,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, schoolID, l.StudentName, l.DurationMins, l.TeacherID,
		l.DayOfWeek, l.StartTime, l.SubjectID, l.StartDate, l.EndDate,
		ts, ts)
	if err != nil {
		return nil, err
	}
	return s.getLessonLocked(ctx, l.ID)
}

// ListActiveLessons returns all non-deleted lessons for a school. Date
// windowing, when wanted, is the caller's filtering policy.
func (s *Store) ListActiveLessons(ctx context.Context, schoolID string) ([]*reconcile.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT`+lessonColumns+lessonJoins+`
		WHERE l.school_id = ? AND l.deleted_at IS NULL
		ORDER BY l.created_at, l.id`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*reconcile.Lesson
	for rows.Next() {
		l, err := scanLesson(rows.Scan)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// GetLesson returns one active lesson by ID, or nil when absent.
func (s *Store) GetLesson(ctx context.Context, schoolID, id string) (*reconcile.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT`+lessonColumns+lessonJoins+`
		WHERE l.id = ? AND l.school_id = ? AND l.deleted_at IS NULL`, id, schoolID)
	l, err := scanLesson(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (s *Store) getLessonLocked(ctx context.Context, id string) (*reconcile.Lesson, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+lessonColumns+lessonJoins+`
		WHERE l.id = ? AND l.deleted_at IS NULL`, id)
	l, err := scanLesson(row.Scan)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrLessonNotFound
	}
	return l, err
}

// SoftDeleteLesson hides a lesson from all active queries.
func (s *Store) SoftDeleteLesson(ctx context.Context, schoolID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET deleted_at = ? WHERE id = ? AND school_id = ? AND deleted_at IS NULL`,
		now(), id, schoolID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return reconcile.ErrLessonNotFound
	}
	return nil
}

// =============================================================================
// SCHOOL-SCOPED VIEW - reconcile.ScheduleStore
// =============================================================================

// ScheduleView is a school-scoped facade implementing reconcile.ScheduleStore.
type ScheduleView struct {
	store    *Store
	schoolID string
}

// Schedule returns the ScheduleStore view for one school.
func (s *Store) Schedule(schoolID string) *ScheduleView {
	return &ScheduleView{store: s, schoolID: schoolID}
}

func (v *ScheduleView) ResolveTeacherID(ctx context.Context, name string) (string, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	var id string
	err := v.store.db.QueryRowContext(ctx,
		`SELECT id FROM teachers
		WHERE school_id = ? AND name = ? COLLATE NOCASE`,
		v.schoolID, strings.TrimSpace(name)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", &reconcile.LookupError{Kind: "teacher", Name: name}
	}
	return id, err
}

func (v *ScheduleView) ResolveSubject(ctx context.Context, namePrefix string) (reconcile.SubjectRef, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	needle := strings.TrimSpace(namePrefix)
	if needle == "" {
		return reconcile.SubjectRef{}, &reconcile.LookupError{Kind: "subject", Name: namePrefix}
	}

	var ref reconcile.SubjectRef
	err := v.store.db.QueryRowContext(ctx,
		`SELECT id, name FROM subjects
		WHERE school_id = ? AND INSTR(LOWER(name), LOWER(?)) > 0
		ORDER BY name LIMIT 1`,
		v.schoolID, needle).Scan(&ref.ID, &ref.Name)
	if err == sql.ErrNoRows {
		return reconcile.SubjectRef{}, &reconcile.LookupError{Kind: "subject", Name: namePrefix}
	}
	return ref, err
}

func (v *ScheduleView) FindCollidingLessons(ctx context.Context, teacherID, dayOfWeek, excludeID string) ([]*reconcile.Lesson, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	rows, err := v.store.db.QueryContext(ctx,
		`SELECT`+lessonColumns+lessonJoins+`
		WHERE l.school_id = ?
		  AND l.teacher_id = ?
		  AND l.day_of_week = ? COLLATE NOCASE
		  AND l.id != ?
		  AND l.deleted_at IS NULL`,
		v.schoolID, teacherID, dayOfWeek, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*reconcile.Lesson
	for rows.Next() {
		l, err := scanLesson(rows.Scan)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (v *ScheduleView) PersistAlignedLesson(ctx context.Context, id string, fields reconcile.AlignedFields) (*reconcile.Lesson, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	// One conceptual write; day_of_week, start_time and end_date are
	// intentionally absent from the SET list.
	res, err := v.store.db.ExecContext(ctx, `
		UPDATE lessons
		SET student_name = ?,
		    duration_mins = ?,
		    teacher_id = ?,
		    subject_id = ?,
		    start_date = ?,
		    updated_at = ?
		WHERE id = ? AND school_id = ? AND deleted_at IS NULL`,
		fields.StudentName, fields.DurationMins, fields.TeacherID,
		fields.SubjectID, fields.StartDate, now(), id, v.schoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reconcile.ErrPersistFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, reconcile.ErrLessonNotFound
	}
	return v.store.getLessonLocked(ctx, id)
}
