package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type conflictRepository interface {
	ListByClassDay(ctx context.Context, classLevelID, subclassLetter string, day models.DayOfWeek, yearID string) ([]models.TimetableEntry, error)
	ListByTeacherDay(ctx context.Context, teacherID string, day models.DayOfWeek, yearID string) ([]models.TimetableEntry, error)
}

// Placement is a proposed slot submitted to the conflict checker.
type Placement struct {
	ClassLevelID    string
	SubclassLetter  string
	SubjectID       string
	TeacherID       *string
	DayOfWeek       models.DayOfWeek
	StartTime       string
	NumberOfPeriods int
	AcademicYearID  string
}

// ConflictChecker validates proposed placements against existing entries.
type ConflictChecker struct {
	repo         conflictRepository
	periodLength int
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewConflictChecker constructs a checker with the configured period length.
func NewConflictChecker(repo conflictRepository, periodLength int, metrics *MetricsService, logger *zap.Logger) *ConflictChecker {
	if periodLength <= 0 {
		periodLength = DefaultPeriodLengthMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictChecker{repo: repo, periodLength: periodLength, metrics: metrics, logger: logger}
}

// PeriodLength exposes the configured period length in minutes.
func (c *ConflictChecker) PeriodLength() int {
	return c.periodLength
}

// Check runs the class-scope and teacher-scope overlap checks. Both must pass.
// On update the entry being updated is excluded from its own conflict set by id.
func (c *ConflictChecker) Check(ctx context.Context, p Placement, ignoreID string) error {
	start, err := MinutesOfDay(p.StartTime)
	if err != nil {
		return err
	}
	endClock, err := EndClock(p.StartTime, p.NumberOfPeriods, c.periodLength)
	if err != nil {
		return err
	}
	end, _ := MinutesOfDay(endClock)

	classEntries, err := c.repo.ListByClassDay(ctx, p.ClassLevelID, p.SubclassLetter, p.DayOfWeek, p.AcademicYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class entries")
	}
	for i := range classEntries {
		existing := &classEntries[i]
		if existing.ID == ignoreID || existing.SubjectID == p.SubjectID {
			continue
		}
		if c.overlaps(start, end, existing) {
			return c.conflict(models.ConflictScopeClass, "subclass already occupied in this window", existing)
		}
	}

	if p.TeacherID == nil || *p.TeacherID == "" {
		return nil
	}

	teacherEntries, err := c.repo.ListByTeacherDay(ctx, *p.TeacherID, p.DayOfWeek, p.AcademicYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher entries")
	}
	for i := range teacherEntries {
		existing := &teacherEntries[i]
		if existing.ID == ignoreID {
			continue
		}
		if c.overlaps(start, end, existing) {
			return c.conflict(models.ConflictScopeTeacher, "teacher already scheduled in this window", existing)
		}
	}

	return nil
}

func (c *ConflictChecker) overlaps(start, end int, existing *models.TimetableEntry) bool {
	existingStart, err := MinutesOfDay(existing.StartTime)
	if err != nil {
		c.logger.Warn("entry carries malformed start time", zap.String("entry_id", existing.ID), zap.String("start_time", existing.StartTime))
		return false
	}
	existingEnd, err := MinutesOfDay(existing.EndTime)
	if err != nil {
		c.logger.Warn("entry carries malformed end time", zap.String("entry_id", existing.ID), zap.String("end_time", existing.EndTime))
		return false
	}
	return windowsOverlap(start, end, existingStart, existingEnd)
}

func (c *ConflictChecker) conflict(scope, message string, existing *models.TimetableEntry) error {
	if c.metrics != nil {
		c.metrics.IncPlacementConflict(scope)
	}
	domainErr := &models.PlacementConflictError{
		Scope:   scope,
		Message: message,
		Conflict: models.PlacementConflict{
			EntryID:        existing.ID,
			SubjectID:      existing.SubjectID,
			TeacherID:      existing.TeacherID,
			ClassLevelID:   existing.ClassLevelID,
			SubclassLetter: existing.SubclassLetter,
			DayOfWeek:      existing.DayOfWeek,
			StartTime:      existing.StartTime,
			EndTime:        existing.EndTime,
			Scope:          scope,
		},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("placement conflict: %s", message))
}
