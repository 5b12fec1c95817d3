// Package store provides ScheduleStore implementations.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/warp/schedule-reconciler/reconcile"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a school-scoped in-memory ScheduleStore. Lessons, teachers and
// subjects are seeded directly; mutation happens only through
// PersistAlignedLesson, mirroring the engine's ownership model.
type Memory struct {
	mu       sync.RWMutex
	lessons  map[string]*reconcile.Lesson
	teachers map[string]string // ID -> display name
	subjects map[string]string // ID -> display name
}

func NewMemory() *Memory {
	return &Memory{
		lessons:  make(map[string]*reconcile.Lesson),
		teachers: make(map[string]string),
		subjects: make(map[string]string),
	}
}

// AddLesson seeds a lesson. Test/dev helper, not part of ScheduleStore.
func (m *Memory) AddLesson(l *reconcile.Lesson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.lessons[l.ID] = &cp
}

// AddTeacher seeds a teacher. Test/dev helper.
func (m *Memory) AddTeacher(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[id] = name
}

// AddSubject seeds a subject. Test/dev helper.
func (m *Memory) AddSubject(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[id] = name
}

func (m *Memory) ResolveTeacherID(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, display := range m.teachers {
		if strings.EqualFold(strings.TrimSpace(display), strings.TrimSpace(name)) {
			return id, nil
		}
	}
	return "", &reconcile.LookupError{Kind: "teacher", Name: name}
}

func (m *Memory) ResolveSubject(_ context.Context, namePrefix string) (reconcile.SubjectRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(namePrefix))
	if needle == "" {
		return reconcile.SubjectRef{}, &reconcile.LookupError{Kind: "subject", Name: namePrefix}
	}
	for id, display := range m.subjects {
		if strings.Contains(strings.ToLower(display), needle) {
			return reconcile.SubjectRef{ID: id, Name: display}, nil
		}
	}
	return reconcile.SubjectRef{}, &reconcile.LookupError{Kind: "subject", Name: namePrefix}
}

func (m *Memory) FindCollidingLessons(_ context.Context, teacherID, dayOfWeek, excludeID string) ([]*reconcile.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*reconcile.Lesson
	for _, l := range m.lessons {
		if l.ID == excludeID || l.TeacherID == nil || l.DayOfWeek == nil {
			continue
		}
		if *l.TeacherID == teacherID && strings.EqualFold(*l.DayOfWeek, dayOfWeek) {
			cp := *l
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *Memory) PersistAlignedLesson(_ context.Context, id string, fields reconcile.AlignedFields) (*reconcile.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil, reconcile.ErrLessonNotFound
	}

	l.StudentName = fields.StudentName
	l.DurationMins = fields.DurationMins
	l.TeacherID = &fields.TeacherID
	if name, ok := m.teachers[fields.TeacherID]; ok {
		l.TeacherName = &name
	}
	l.SubjectID = fields.SubjectID
	if name, ok := m.subjects[fields.SubjectID]; ok {
		l.SubjectName = name
	}
	l.StartDate = fields.StartDate

	cp := *l
	return &cp, nil
}
