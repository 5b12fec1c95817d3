/*
diff.go - Field-level differences for paired records

PURPOSE:
  For a paired lesson and sheet row that are not identical, enumerates
  plain-language differences in a fixed field order: student name,
  duration, subject, teacher, start date. Only mismatching fields produce
  an entry. The wording is presentation; the SET of detected differences
  is the contract the matching engine and tests rely on.
*/
package reconcile

import (
	"fmt"
	"strings"
)

const (
	unassignedTeacher = "Unassigned"
	dateNotSet        = "not set"
)

// Diff returns the ordered list of field differences for a pair.
// An empty result means the pair is identical for reconciliation purposes.
func Diff(l *Lesson, r *SheetLesson) []string {
	var diffs []string

	// Name comparison here is case-insensitive only, looser normalization
	// is reserved for match keys.
	if !strings.EqualFold(strings.TrimSpace(l.StudentName), strings.TrimSpace(r.StudentName)) {
		diffs = append(diffs, fmt.Sprintf("Student name differs: %q in the schedule vs %q in the sheet", l.StudentName, r.StudentName))
	}
	if !durationMatches(l, r) {
		diffs = append(diffs, fmt.Sprintf("Duration differs: %d minutes in the schedule vs %d minutes in the sheet", l.DurationMins, r.DurationMins))
	}
	if !subjectMatches(l, r) {
		diffs = append(diffs, fmt.Sprintf("Subject differs: %q in the schedule vs %q in the sheet", l.SubjectName, r.SubjectName))
	}

	// A blank teacher cell in the sheet means the same thing as an
	// unassigned lesson, so both sides default to the sentinel.
	dbTeacher := unassignedTeacher
	if l.TeacherName != nil {
		dbTeacher = *l.TeacherName
	}
	rowTeacher := strings.TrimSpace(r.TeacherName)
	if rowTeacher == "" {
		rowTeacher = unassignedTeacher
	}
	if !teacherDisplayEqual(dbTeacher, rowTeacher) {
		diffs = append(diffs, fmt.Sprintf("Teacher differs: %q in the schedule vs %q in the sheet", dbTeacher, rowTeacher))
	}

	dbDate := renderDate(l.StartDate)
	rowDate := renderDate(&r.StartDate)
	if dbDate != rowDate {
		diffs = append(diffs, fmt.Sprintf("Start date differs: %s in the schedule vs %s in the sheet", dbDate, rowDate))
	}

	return diffs
}

func teacherDisplayEqual(dbName, rowName string) bool {
	return strings.EqualFold(strings.TrimSpace(dbName), strings.TrimSpace(rowName))
}

// renderDate normalizes for comparison and display: nil or blank is
// "not set", parseable input is ISO, anything else stays verbatim.
func renderDate(text *string) string {
	if text == nil {
		return dateNotSet
	}
	norm := NormalizeDate(*text)
	if norm == nil {
		return dateNotSet
	}
	return *norm
}
