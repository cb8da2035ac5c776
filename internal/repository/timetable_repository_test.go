package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

func entryRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "class_level_id", "subclass_letter", "subject_id", "teacher_id", "day_of_week", "start_time", "end_time", "number_of_periods", "location", "academic_year_id", "created_at", "updated_at"}).
		AddRow("entry-1", "primary-6", "A", "subject-math", "teacher-1", "MONDAY", "08:00", "09:30", 2, "Room 12", "year-1", now, now)
}

func TestTimetableRepositoryFindByIDComposesPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE id = $1")).
		WithArgs("entry-1").
		WillReturnRows(entryRows(t))

	periodRows := sqlmock.NewRows([]string{"id", "timetable_entry_id", "period_index", "date"}).
		AddRow("period-0", "entry-1", 0, nil).
		AddRow("period-1", "entry-1", 1, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE timetable_entry_id = $1 ORDER BY period_index ASC")).
		WithArgs("entry-1").
		WillReturnRows(periodRows)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE period_id = $1")).
		WithArgs("period-0").
		WillReturnRows(sqlmock.NewRows([]string{"id", "period_id", "student_id", "status", "notes"}).
			AddRow("att-1", "period-0", "student-1", "PRESENT", nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE period_id = $1")).
		WithArgs("period-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "period_id", "student_id", "status", "notes"}))

	entry, err := repo.FindByID(context.Background(), "entry-1")
	require.NoError(t, err)
	require.Len(t, entry.Periods, 2)
	require.Len(t, entry.Periods[0].Attendance, 1)
	assert.Equal(t, models.AttendancePresent, entry.Periods[0].Attendance[0].Status)
	assert.Empty(t, entry.Periods[1].Attendance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateInsertsPeriodPlaceholders(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO periods")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO periods")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.TimetableEntry{
		ClassLevelID:    "primary-6",
		SubclassLetter:  "A",
		SubjectID:       "subject-math",
		DayOfWeek:       models.DayMonday,
		StartTime:       "08:00",
		EndTime:         "09:30",
		NumberOfPeriods: 2,
		AcademicYearID:  "year-1",
	}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	require.Len(t, entry.Periods, 2)
	assert.Equal(t, 0, entry.Periods[0].PeriodIndex)
	assert.Equal(t, 1, entry.Periods[1].PeriodIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE period_id IN")).
		WithArgs("entry-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM periods WHERE timetable_entry_id = $1")).
		WithArgs("entry-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE id = $1")).
		WithArgs("entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "entry-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplacePeriodAttendance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE period_id = $1")).
		WithArgs("period-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET date = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "period-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records := []models.AttendanceRecord{{StudentID: "student-1", Status: models.AttendancePresent}}
	err := repo.ReplacePeriodAttendance(context.Background(), "period-1", time.Now().UTC(), records)
	require.NoError(t, err)
	assert.Equal(t, "period-1", records[0].PeriodID)
	assert.NotEmpty(t, records[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateReshapesPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE period_id IN")).
		WithArgs("entry-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM periods WHERE timetable_entry_id = $1 AND period_index >= $2")).
		WithArgs("entry-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM periods WHERE timetable_entry_id = $1")).
		WithArgs("entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO periods")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.TimetableEntry{
		ID:              "entry-1",
		ClassLevelID:    "primary-6",
		SubclassLetter:  "A",
		SubjectID:       "subject-math",
		DayOfWeek:       models.DayMonday,
		StartTime:       "08:00",
		EndTime:         "10:15",
		NumberOfPeriods: 3,
		AcademicYearID:  "year-1",
	}
	err := repo.Update(context.Background(), entry)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByClassOrdersByWeekday(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY CASE day_of_week WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2")).
		WithArgs("primary-6", "A", "year-1").
		WillReturnRows(entryRows(t))

	entries, err := repo.ListByClass(context.Background(), "primary-6", "A", "year-1", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryStudentIDsForEntryHonorsFromIndex(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.timetable_entry_id = $1 AND p.period_index >= $2")).
		WithArgs("entry-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-1"))

	ids, err := repo.StudentIDsForEntry(context.Background(), "entry-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryStudentStatuses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"status"}).
		AddRow("PRESENT").
		AddRow("ABSENT")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ar.status FROM attendance_records ar")).
		WithArgs("student-1", "primary-6", "A", "year-1").
		WillReturnRows(rows)

	statuses, err := repo.StudentStatuses(context.Background(), "student-1", "primary-6", "A", "year-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, models.AttendancePresent, statuses[0])
	require.NoError(t, mock.ExpectationsWereMet())
}
