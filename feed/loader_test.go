package feed_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/schedule-reconciler/feed"
)

// buildWorkbook writes a one-sheet workbook with the given header and rows
// and returns it as a reader, the way an uploaded file arrives.
func buildWorkbook(t *testing.T, header []string, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

var standardHeader = []string{"Student", "Duration", "Teacher", "Subject", "Start Date"}

func TestLoad_ParsesRowsWithWorkbookRowNumbers(t *testing.T) {
	// GIVEN a workbook with a header row and two lesson rows
	r := buildWorkbook(t, standardHeader, [][]interface{}{
		{"Alice Smith", 30, "Ms. Keys", "Piano", "2024-01-01"},
		{"Bob Jones", "45 mins", "Mr. Frets", "Guitar", "15/1/2024"},
	})

	// WHEN the feed is loaded
	result, err := feed.Load(r)
	require.NoError(t, err)

	// THEN both rows parse, numbered as the user sees them in the workbook
	require.Len(t, result.Rows, 2)
	assert.Empty(t, result.Dropped)

	assert.Equal(t, "Alice Smith", result.Rows[0].StudentName)
	assert.Equal(t, 30, result.Rows[0].DurationMins)
	assert.Equal(t, "Ms. Keys", result.Rows[0].TeacherName)
	assert.Equal(t, "Piano", result.Rows[0].SubjectName)
	assert.Equal(t, "2024-01-01", result.Rows[0].StartDate)
	assert.Equal(t, 2, result.Rows[0].RowNumber)

	// A "45 mins" cell still yields a numeric duration.
	assert.Equal(t, 45, result.Rows[1].DurationMins)
	assert.Equal(t, 3, result.Rows[1].RowNumber)
}

func TestLoad_DropsBlankStudentRows(t *testing.T) {
	// GIVEN a workbook where the middle row has no student name
	r := buildWorkbook(t, standardHeader, [][]interface{}{
		{"Alice Smith", 30, "Ms. Keys", "Piano", "2024-01-01"},
		{"", 30, "Ms. Keys", "Piano", "2024-01-01"},
		{"Carol White", 60, "", "Violin", ""},
	})

	// WHEN the feed is loaded
	result, err := feed.Load(r)
	require.NoError(t, err)

	// THEN the blank row is dropped and the survivors keep their numbers
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.Rows[0].RowNumber)
	assert.Equal(t, 4, result.Rows[1].RowNumber)

	require.Len(t, result.Dropped, 1)
	assert.Equal(t, 3, result.Dropped[0].RowNumber)
	assert.Equal(t, "blank student name", result.Dropped[0].Reason)
}

func TestLoad_DropsUnparseableDurations(t *testing.T) {
	r := buildWorkbook(t, standardHeader, [][]interface{}{
		{"Alice Smith", "half an hour", "Ms. Keys", "Piano", "2024-01-01"},
		{"Bob Jones", 0, "Mr. Frets", "Guitar", ""},
	})

	result, err := feed.Load(r)
	require.NoError(t, err)

	assert.Empty(t, result.Rows)
	require.Len(t, result.Dropped, 2)
	assert.Equal(t, 2, result.Dropped[0].RowNumber)
	assert.Equal(t, 3, result.Dropped[1].RowNumber)
}

func TestLoad_HeaderOrderAndCaseDoNotMatter(t *testing.T) {
	// GIVEN the columns shuffled and the headers shouted
	r := buildWorkbook(t, []string{"TEACHER", "start date", "Student", "Subject", "Duration"}, [][]interface{}{
		{"Ms. Keys", "2024-01-01", "Alice Smith", "Piano", 30},
	})

	result, err := feed.Load(r)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Alice Smith", result.Rows[0].StudentName)
	assert.Equal(t, "Ms. Keys", result.Rows[0].TeacherName)
	assert.Equal(t, 30, result.Rows[0].DurationMins)
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	r := buildWorkbook(t, []string{"Student", "Teacher"}, [][]interface{}{
		{"Alice Smith", "Ms. Keys"},
	})

	_, err := feed.Load(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}

func TestLoad_RejectsNonWorkbookInput(t *testing.T) {
	_, err := feed.Load(strings.NewReader("student,duration\nAlice,30\n"))
	require.Error(t, err)
}

func TestLoad_ShortRowsReadAsBlankCells(t *testing.T) {
	// excelize trims trailing empty cells from GetRows; a row that stops
	// after the duration column must still parse with blank optionals.
	r := buildWorkbook(t, standardHeader, [][]interface{}{
		{"Alice Smith", 30},
	})

	result, err := feed.Load(r)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "", result.Rows[0].TeacherName)
	assert.Equal(t, "", result.Rows[0].SubjectName)
	assert.Equal(t, "", result.Rows[0].StartDate)
}
