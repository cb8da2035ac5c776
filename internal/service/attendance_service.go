package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
)

type attendanceStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateAttendanceRate(ctx context.Context, id string, rate float64) error
}

type attendanceStatusReader interface {
	StudentStatuses(ctx context.Context, studentID, classLevelID, subclassLetter, yearID string) ([]models.AttendanceStatus, error)
}

// AttendanceService derives per-student attendance rates from the recorded rolls.
type AttendanceService struct {
	students attendanceStudentStore
	statuses attendanceStatusReader
	years    currentYearResolver
	logger   *zap.Logger
}

// NewAttendanceService constructs the attendance aggregation service.
func NewAttendanceService(students attendanceStudentStore, statuses attendanceStatusReader, years currentYearResolver, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{students: students, statuses: statuses, years: years, logger: logger}
}

// RateFor computes the current-year attendance rate of one student as a
// percentage. Present and late count as attended. A student with no records,
// or without a class placement, rates zero.
func (s *AttendanceService) RateFor(ctx context.Context, studentID string) (float64, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Placed() {
		return 0, nil
	}

	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return 0, err
	}

	statuses, err := s.statuses.StudentStatuses(ctx, studentID, *student.ClassLevelID, *student.SubclassLetter, year.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	if len(statuses) == 0 {
		return 0, nil
	}

	attended := 0
	for _, status := range statuses {
		if status.Counted() {
			attended++
		}
	}
	return float64(attended) / float64(len(statuses)) * 100, nil
}

// RecomputeForStudents recalculates and persists rates for a batch of students.
// Individual failures are logged and the batch continues.
func (s *AttendanceService) RecomputeForStudents(ctx context.Context, studentIDs []string) {
	for _, id := range studentIDs {
		rate, err := s.RateFor(ctx, id)
		if err != nil {
			s.logger.Warn("failed to compute attendance rate", zap.String("student_id", id), zap.Error(err))
			continue
		}
		if err := s.students.UpdateAttendanceRate(ctx, id, rate); err != nil {
			s.logger.Warn("failed to persist attendance rate", zap.String("student_id", id), zap.Error(err))
		}
	}
}

const recomputeJobType = "attendance_recompute"

// RecomputeDispatcher pushes rate recomputation onto the background queue so
// attendance writes do not block on the aggregation pass.
type RecomputeDispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewRecomputeDispatcher wraps a started queue.
func NewRecomputeDispatcher(queue *jobs.Queue, logger *zap.Logger) *RecomputeDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecomputeDispatcher{queue: queue, logger: logger}
}

// RecomputeForStudents enqueues one recompute job for the batch.
func (d *RecomputeDispatcher) RecomputeForStudents(_ context.Context, studentIDs []string) {
	if len(studentIDs) == 0 {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    recomputeJobType,
		Payload: studentIDs,
	}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue attendance recompute", zap.Int("students", len(studentIDs)), zap.Error(err))
	}
}

// RecomputeJobHandler adapts the attendance service to the queue handler shape.
func RecomputeJobHandler(svc *AttendanceService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		ids, ok := job.Payload.([]string)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
		}
		svc.RecomputeForStudents(ctx, ids)
		return nil
	}
}
