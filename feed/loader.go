/*
loader.go - Spreadsheet feed loader

PURPOSE:
  Reads an .xlsx workbook exported from the scheduling spreadsheet and turns
  it into SheetLesson rows the reconciliation engine understands. This is the
  only place that knows about workbook layout; the engine sees clean rows.

COLUMN MAPPING:
  Columns are located by header text, not position. The first row of the
  first sheet is scanned for the known headers (case-insensitive, trimmed):

    Student      -> StudentName   (required header)
    Duration     -> DurationMins  (required header)
    Teacher      -> TeacherName
    Subject      -> SubjectName
    Start Date   -> StartDate

  Extra columns are ignored. Missing optional columns leave the field blank.

VALIDITY FILTER:
  Rows with a blank student name are dropped before they reach the engine -
  the engine assumes every row it sees names a student. Dropped rows are
  reported back so the caller can surface them.

ROW NUMBERS:
  RowNumber is the 1-based workbook row, so "row 7" in an error message
  matches what the user sees when they open the file.

SEE ALSO:
  - reconcile/types.go: SheetLesson
  - api/handlers.go: feed upload endpoint
*/
package feed

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/schedule-reconciler/reconcile"
)

// =============================================================================
// COLUMN HEADERS
// =============================================================================

const (
	headerStudent   = "student"
	headerDuration  = "duration"
	headerTeacher   = "teacher"
	headerSubject   = "subject"
	headerStartDate = "start date"
)

// columnMap holds the 0-based column index for each recognized header,
// or -1 when the workbook doesn't carry that column.
type columnMap struct {
	student   int
	duration  int
	teacher   int
	subject   int
	startDate int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{student: -1, duration: -1, teacher: -1, subject: -1, startDate: -1}
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case headerStudent:
			cols.student = i
		case headerDuration:
			cols.duration = i
		case headerTeacher:
			cols.teacher = i
		case headerSubject:
			cols.subject = i
		case headerStartDate:
			cols.startDate = i
		}
	}
	if cols.student == -1 {
		return cols, fmt.Errorf("missing required column %q", headerStudent)
	}
	if cols.duration == -1 {
		return cols, fmt.Errorf("missing required column %q", headerDuration)
	}
	return cols, nil
}

// =============================================================================
// LOAD RESULT
// =============================================================================

// DroppedRow records a workbook row that failed the validity filter.
type DroppedRow struct {
	RowNumber int    `json:"rowNumber"`
	Reason    string `json:"reason"`
}

// LoadResult is what a workbook parses into: the rows the engine will see,
// plus the rows that were filtered out and why.
type LoadResult struct {
	Rows    []*reconcile.SheetLesson `json:"rows"`
	Dropped []DroppedRow             `json:"dropped"`
}

// =============================================================================
// LOADER
// =============================================================================

// Load reads an .xlsx workbook and returns the parsed feed. The first sheet
// is used; its first row must be the header row.
func Load(r io.Reader) (*LoadResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for i, row := range rows[1:] {
		rowNumber := i + 2 // header is workbook row 1

		student := cellAt(row, cols.student)
		if student == "" {
			result.Dropped = append(result.Dropped, DroppedRow{
				RowNumber: rowNumber,
				Reason:    "blank student name",
			})
			continue
		}

		duration, err := parseDuration(cellAt(row, cols.duration))
		if err != nil {
			result.Dropped = append(result.Dropped, DroppedRow{
				RowNumber: rowNumber,
				Reason:    err.Error(),
			})
			continue
		}

		result.Rows = append(result.Rows, &reconcile.SheetLesson{
			StudentName:  student,
			DurationMins: duration,
			TeacherName:  cellAt(row, cols.teacher),
			SubjectName:  cellAt(row, cols.subject),
			StartDate:    cellAt(row, cols.startDate),
			RowNumber:    rowNumber,
		})
	}

	return result, nil
}

// cellAt tolerates short rows - excelize trims trailing empty cells.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseDuration accepts a bare number or a "30 mins" style cell.
func parseDuration(cell string) (int, error) {
	if cell == "" {
		return 0, fmt.Errorf("blank duration")
	}
	// Strip a trailing unit like "mins" or "min".
	fields := strings.Fields(cell)
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q", cell)
	}
	if n <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", cell)
	}
	return n, nil
}
