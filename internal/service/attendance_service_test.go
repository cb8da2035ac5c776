package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type attendanceStudentStub struct {
	students map[string]*models.Student
	rates    map[string]float64
	rateErr  error
}

func (s *attendanceStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (s *attendanceStudentStub) UpdateAttendanceRate(ctx context.Context, id string, rate float64) error {
	if s.rateErr != nil {
		return s.rateErr
	}
	if s.rates == nil {
		s.rates = make(map[string]float64)
	}
	s.rates[id] = rate
	return nil
}

type statusReaderStub struct {
	statuses map[string][]models.AttendanceStatus
	err      error
}

func (s statusReaderStub) StudentStatuses(ctx context.Context, studentID, classLevelID, subclassLetter, yearID string) ([]models.AttendanceStatus, error) {
	return s.statuses[studentID], s.err
}

func placedStudent(id string) *models.Student {
	level := "primary-6"
	letter := "A"
	return &models.Student{ID: id, ClassLevelID: &level, SubclassLetter: &letter}
}

func newAttendanceService(students *attendanceStudentStub, statuses statusReaderStub) *AttendanceService {
	years := yearResolverStub{year: &models.AcademicYear{ID: "year-1", IsCurrent: true}}
	return NewAttendanceService(students, statuses, years, zap.NewNop())
}

func TestAttendanceRateZeroWithoutRecords(t *testing.T) {
	students := &attendanceStudentStub{students: map[string]*models.Student{"student-1": placedStudent("student-1")}}
	service := newAttendanceService(students, statusReaderStub{})

	rate, err := service.RateFor(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestAttendanceRateZeroWhenUnplaced(t *testing.T) {
	students := &attendanceStudentStub{students: map[string]*models.Student{"student-1": {ID: "student-1"}}}
	service := newAttendanceService(students, statusReaderStub{})

	rate, err := service.RateFor(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestAttendanceRateCountsPresentAndLate(t *testing.T) {
	students := &attendanceStudentStub{students: map[string]*models.Student{"student-1": placedStudent("student-1")}}
	statuses := statusReaderStub{statuses: map[string][]models.AttendanceStatus{
		"student-1": {
			models.AttendancePresent,
			models.AttendanceLate,
			models.AttendanceAbsent,
			models.AttendanceExcused,
		},
	}}
	service := newAttendanceService(students, statuses)

	rate, err := service.RateFor(context.Background(), "student-1")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rate, 0.0001)
}

func TestAttendanceRateUnknownStudent(t *testing.T) {
	service := newAttendanceService(&attendanceStudentStub{}, statusReaderStub{})

	_, err := service.RateFor(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecomputeForStudentsPersistsRates(t *testing.T) {
	students := &attendanceStudentStub{students: map[string]*models.Student{
		"student-1": placedStudent("student-1"),
		"student-2": placedStudent("student-2"),
	}}
	statuses := statusReaderStub{statuses: map[string][]models.AttendanceStatus{
		"student-1": {models.AttendancePresent, models.AttendancePresent},
		"student-2": {models.AttendancePresent, models.AttendanceAbsent},
	}}
	service := newAttendanceService(students, statuses)

	service.RecomputeForStudents(context.Background(), []string{"student-1", "student-2"})
	assert.InDelta(t, 100.0, students.rates["student-1"], 0.0001)
	assert.InDelta(t, 50.0, students.rates["student-2"], 0.0001)
}

func TestRecomputeForStudentsContinuesOnFailure(t *testing.T) {
	students := &attendanceStudentStub{students: map[string]*models.Student{
		"student-2": placedStudent("student-2"),
	}}
	statuses := statusReaderStub{statuses: map[string][]models.AttendanceStatus{
		"student-2": {models.AttendancePresent},
	}}
	service := newAttendanceService(students, statuses)

	service.RecomputeForStudents(context.Background(), []string{"ghost", "student-2"})
	assert.InDelta(t, 100.0, students.rates["student-2"], 0.0001)
}
