package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// TimetableRepository owns timetable entries and their embedded periods and
// attendance records.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository instantiates a timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const entryColumns = "id, class_level_id, subclass_letter, subject_id, teacher_id, day_of_week, start_time, end_time, number_of_periods, location, academic_year_id, created_at, updated_at"

// day_of_week holds enum strings, which sort alphabetically. Listings order by
// calendar position instead.
const weekdayOrder = "CASE day_of_week WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3 WHEN 'THURSDAY' THEN 4 ELSE 5 END"

// FindByID loads an entry with its periods and attendance composed.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE id = $1", entryColumns)
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	if err := r.attachPeriods(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByClassDay returns entries sharing class level, subclass and day within a year.
func (r *TimetableRepository) ListByClassDay(ctx context.Context, classLevelID, subclassLetter string, day models.DayOfWeek, yearID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE class_level_id = $1 AND subclass_letter = $2 AND day_of_week = $3 AND academic_year_id = $4", entryColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, classLevelID, subclassLetter, day, yearID); err != nil {
		return nil, fmt.Errorf("list entries by class day: %w", err)
	}
	return entries, nil
}

// ListByTeacherDay returns entries where the teacher appears on a day within a
// year, regardless of class.
func (r *TimetableRepository) ListByTeacherDay(ctx context.Context, teacherID string, day models.DayOfWeek, yearID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE teacher_id = $1 AND day_of_week = $2 AND academic_year_id = $3", entryColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID, day, yearID); err != nil {
		return nil, fmt.Errorf("list entries by teacher day: %w", err)
	}
	return entries, nil
}

// ListByClass returns a class timetable for a year, optionally narrowed to a subject.
func (r *TimetableRepository) ListByClass(ctx context.Context, classLevelID, subclassLetter, yearID, subjectID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE class_level_id = $1 AND subclass_letter = $2 AND academic_year_id = $3", entryColumns)
	args := []interface{}{classLevelID, subclassLetter, yearID}
	if subjectID != "" {
		query += " AND subject_id = $4"
		args = append(args, subjectID)
	}
	query += " ORDER BY " + weekdayOrder + ", start_time ASC"

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list entries by class: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns all entries a teacher holds within a year.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID, yearID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE teacher_id = $1 AND academic_year_id = $2 ORDER BY %s, start_time ASC", entryColumns, weekdayOrder)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID, yearID); err != nil {
		return nil, fmt.Errorf("list entries by teacher: %w", err)
	}
	return entries, nil
}

// Create stores a new entry together with its period placeholders.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO timetable_entries (id, class_level_id, subclass_letter, subject_id, teacher_id, day_of_week, start_time, end_time, number_of_periods, location, academic_year_id, created_at, updated_at) VALUES (:id, :class_level_id, :subclass_letter, :subject_id, :teacher_id, :day_of_week, :start_time, :end_time, :number_of_periods, :location, :academic_year_id, :created_at, :updated_at)`, entry); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	entry.Periods = make([]models.Period, 0, entry.NumberOfPeriods)
	for i := 0; i < entry.NumberOfPeriods; i++ {
		period := models.Period{
			ID:               uuid.NewString(),
			TimetableEntryID: entry.ID,
			PeriodIndex:      i,
			Attendance:       []models.AttendanceRecord{},
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO periods (id, timetable_entry_id, period_index, date) VALUES (:id, :timetable_entry_id, :period_index, :date)`, &period); err != nil {
			return fmt.Errorf("create period %d: %w", i, err)
		}
		entry.Periods = append(entry.Periods, period)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create entry: %w", err)
	}
	return nil
}

// Update modifies an entry and reshapes its period placeholders when the
// period count changed. Periods removed by a shrink lose their attendance.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entry.UpdatedAt = time.Now().UTC()
	if _, err = tx.NamedExecContext(ctx, `UPDATE timetable_entries SET class_level_id = :class_level_id, subclass_letter = :subclass_letter, subject_id = :subject_id, teacher_id = :teacher_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, number_of_periods = :number_of_periods, location = :location, updated_at = :updated_at WHERE id = :id`, entry); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE period_id IN (SELECT id FROM periods WHERE timetable_entry_id = $1 AND period_index >= $2)`, entry.ID, entry.NumberOfPeriods); err != nil {
		return fmt.Errorf("trim attendance: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM periods WHERE timetable_entry_id = $1 AND period_index >= $2`, entry.ID, entry.NumberOfPeriods); err != nil {
		return fmt.Errorf("trim periods: %w", err)
	}

	var existing int
	if err = tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM periods WHERE timetable_entry_id = $1`, entry.ID); err != nil {
		return fmt.Errorf("count periods: %w", err)
	}
	for i := existing; i < entry.NumberOfPeriods; i++ {
		period := models.Period{ID: uuid.NewString(), TimetableEntryID: entry.ID, PeriodIndex: i}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO periods (id, timetable_entry_id, period_index, date) VALUES (:id, :timetable_entry_id, :period_index, :date)`, &period); err != nil {
			return fmt.Errorf("grow periods: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update entry: %w", err)
	}
	return nil
}

// Delete removes an entry with its periods and attendance.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE period_id IN (SELECT id FROM periods WHERE timetable_entry_id = $1)`, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM periods WHERE timetable_entry_id = $1`, id); err != nil {
		return fmt.Errorf("delete periods: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete entry: %w", err)
	}
	return nil
}

// FindPeriod loads one period of an entry by index.
func (r *TimetableRepository) FindPeriod(ctx context.Context, entryID string, index int) (*models.Period, error) {
	const query = `SELECT id, timetable_entry_id, period_index, date FROM periods WHERE timetable_entry_id = $1 AND period_index = $2`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, entryID, index); err != nil {
		return nil, err
	}
	return &period, nil
}

// ReplacePeriodAttendance swaps the period's roll wholesale and stamps its date.
func (r *TimetableRepository) ReplacePeriodAttendance(ctx context.Context, periodID string, date time.Time, records []models.AttendanceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE period_id = $1`, periodID); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}

	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.PeriodID = periodID
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO attendance_records (id, period_id, student_id, status, notes) VALUES (:id, :period_id, :student_id, :status, :notes)`, record); err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE periods SET date = $1 WHERE id = $2`, date, periodID); err != nil {
		return fmt.Errorf("stamp period date: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mark attendance: %w", err)
	}
	return nil
}

// StudentStatuses returns every attendance status recorded for a student across
// the entries of one subclass and year.
func (r *TimetableRepository) StudentStatuses(ctx context.Context, studentID, classLevelID, subclassLetter, yearID string) ([]models.AttendanceStatus, error) {
	const query = `SELECT ar.status FROM attendance_records ar
		JOIN periods p ON p.id = ar.period_id
		JOIN timetable_entries te ON te.id = p.timetable_entry_id
		WHERE ar.student_id = $1 AND te.class_level_id = $2 AND te.subclass_letter = $3 AND te.academic_year_id = $4`
	var statuses []models.AttendanceStatus
	if err := r.db.SelectContext(ctx, &statuses, query, studentID, classLevelID, subclassLetter, yearID); err != nil {
		return nil, fmt.Errorf("list student statuses: %w", err)
	}
	return statuses, nil
}

// StudentIDsForEntry returns the distinct students referenced in an entry's
// attendance records at or beyond fromIndex. A fromIndex of 0 covers the
// whole entry.
func (r *TimetableRepository) StudentIDsForEntry(ctx context.Context, entryID string, fromIndex int) ([]string, error) {
	const query = `SELECT DISTINCT ar.student_id FROM attendance_records ar
		JOIN periods p ON p.id = ar.period_id
		WHERE p.timetable_entry_id = $1 AND p.period_index >= $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, entryID, fromIndex); err != nil {
		return nil, fmt.Errorf("list entry students: %w", err)
	}
	return ids, nil
}

func (r *TimetableRepository) attachPeriods(ctx context.Context, entry *models.TimetableEntry) error {
	const query = `SELECT id, timetable_entry_id, period_index, date FROM periods WHERE timetable_entry_id = $1 ORDER BY period_index ASC`
	if err := r.db.SelectContext(ctx, &entry.Periods, query, entry.ID); err != nil {
		return fmt.Errorf("list periods: %w", err)
	}

	for i := range entry.Periods {
		const attQuery = `SELECT id, period_id, student_id, status, notes FROM attendance_records WHERE period_id = $1`
		if err := r.db.SelectContext(ctx, &entry.Periods[i].Attendance, attQuery, entry.Periods[i].ID); err != nil {
			return fmt.Errorf("list attendance: %w", err)
		}
	}
	return nil
}
