package models

import "time"

// DayOfWeek enumerates the school days a placement may occupy.
type DayOfWeek string

const (
	DayMonday    DayOfWeek = "MONDAY"
	DayTuesday   DayOfWeek = "TUESDAY"
	DayWednesday DayOfWeek = "WEDNESDAY"
	DayThursday  DayOfWeek = "THURSDAY"
	DayFriday    DayOfWeek = "FRIDAY"
)

// Valid returns true when the day is a school day.
func (d DayOfWeek) Valid() bool {
	switch d {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday:
		return true
	default:
		return false
	}
}

// AttendanceStatus represents the status of one attendance record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Counted reports whether the status counts toward the attendance rate.
func (s AttendanceStatus) Counted() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// AttendanceRecord is one student's roll entry for a period.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	PeriodID  string           `db:"period_id" json:"period_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
}

// Period is one occurrence slot of a timetable entry. Date stays nil until
// attendance is first marked.
type Period struct {
	ID               string             `db:"id" json:"id"`
	TimetableEntryID string             `db:"timetable_entry_id" json:"timetable_entry_id"`
	PeriodIndex      int                `db:"period_index" json:"period_index"`
	Date             *time.Time         `db:"date" json:"date,omitempty"`
	Attendance       []AttendanceRecord `db:"-" json:"attendance"`
}

// TimetableEntry places a subject into a weekly slot for a class/subclass.
// EndTime is always derived from StartTime and NumberOfPeriods.
type TimetableEntry struct {
	ID              string    `db:"id" json:"id"`
	ClassLevelID    string    `db:"class_level_id" json:"class_level_id"`
	SubclassLetter  string    `db:"subclass_letter" json:"subclass_letter"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	TeacherID       *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	DayOfWeek       DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	NumberOfPeriods int       `db:"number_of_periods" json:"number_of_periods"`
	Location        string    `db:"location" json:"location"`
	AcademicYearID  string    `db:"academic_year_id" json:"academic_year_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
	Periods         []Period  `db:"-" json:"periods,omitempty"`
}

// PlacementConflict describes the existing entry a proposed placement collides with.
type PlacementConflict struct {
	EntryID        string    `json:"entry_id"`
	SubjectID      string    `json:"subject_id"`
	TeacherID      *string   `json:"teacher_id,omitempty"`
	ClassLevelID   string    `json:"class_level_id"`
	SubclassLetter string    `json:"subclass_letter"`
	DayOfWeek      DayOfWeek `json:"day_of_week"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Scope          string    `json:"scope"`
}

// Conflict scopes.
const (
	ConflictScopeClass   = "CLASS"
	ConflictScopeTeacher = "TEACHER"
)

// PlacementConflictError is returned when a placement collides with an existing one.
type PlacementConflictError struct {
	Scope    string            `json:"scope"`
	Message  string            `json:"message"`
	Conflict PlacementConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *PlacementConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
