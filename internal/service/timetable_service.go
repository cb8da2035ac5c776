package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type timetableRepository interface {
	conflictRepository
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
	ListByClass(ctx context.Context, classLevelID, subclassLetter, yearID, subjectID string) ([]models.TimetableEntry, error)
	ListByTeacher(ctx context.Context, teacherID, yearID string) ([]models.TimetableEntry, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
	FindPeriod(ctx context.Context, entryID string, index int) (*models.Period, error)
	ReplacePeriodAttendance(ctx context.Context, periodID string, date time.Time, records []models.AttendanceRecord) error
	StudentIDsForEntry(ctx context.Context, entryID string, fromIndex int) ([]string, error)
}

type classLevelReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassLevel, error)
}

type subjectRegistry interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListAssignments(ctx context.Context, subjectID, classLevelID, subclassLetter string) ([]models.SubjectAssignment, error)
	TeacherHasAssignments(ctx context.Context, teacherID string) (bool, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListIDsBySubclass(ctx context.Context, classLevelID, subclassLetter string) ([]string, error)
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type currentYearResolver interface {
	GetCurrentYear(ctx context.Context) (*models.AcademicYear, error)
}

type attendanceRecomputer interface {
	RecomputeForStudents(ctx context.Context, studentIDs []string)
}

// CreatePlacementRequest describes payload for placing a weekly slot.
type CreatePlacementRequest struct {
	ClassLevelID    string  `json:"class_level_id" validate:"required"`
	SubclassLetter  string  `json:"subclass_letter" validate:"required,len=1,uppercase"`
	SubjectID       string  `json:"subject_id" validate:"required"`
	TeacherID       *string `json:"teacher_id"`
	DayOfWeek       string  `json:"day_of_week" validate:"required,school_day"`
	StartTime       string  `json:"start_time" validate:"required,clock"`
	NumberOfPeriods int     `json:"number_of_periods" validate:"required,min=1"`
	Location        string  `json:"location"`
}

// UpdatePlacementRequest updates an entry; nil fields keep their current value.
type UpdatePlacementRequest struct {
	SubjectID       *string `json:"subject_id"`
	TeacherID       *string `json:"teacher_id"`
	DayOfWeek       *string `json:"day_of_week" validate:"omitempty,school_day"`
	StartTime       *string `json:"start_time" validate:"omitempty,clock"`
	NumberOfPeriods *int    `json:"number_of_periods" validate:"omitempty,min=1"`
	Location        *string `json:"location"`
}

// AttendanceRecordRequest is one roll entry in a mark-attendance payload.
type AttendanceRecordRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Notes     *string `json:"notes"`
}

// MarkAttendanceRequest replaces the roll of one period wholesale.
type MarkAttendanceRequest struct {
	Records []AttendanceRecordRequest `json:"records" validate:"dive"`
}

// TimetableService coordinates placement validation and persistence.
type TimetableService struct {
	repo      timetableRepository
	classes   classLevelReader
	subjects  subjectRegistry
	students  studentDirectory
	teachers  teacherDirectory
	years     currentYearResolver
	checker   *ConflictChecker
	recompute attendanceRecomputer
	metrics   *MetricsService
	locks     *scopeLock
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimetableService instantiates the timetable service.
func NewTimetableService(
	repo timetableRepository,
	classes classLevelReader,
	subjects subjectRegistry,
	students studentDirectory,
	teachers teacherDirectory,
	years currentYearResolver,
	checker *ConflictChecker,
	recompute attendanceRecomputer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TimetableService{
		repo:      repo,
		classes:   classes,
		subjects:  subjects,
		students:  students,
		teachers:  teachers,
		years:     years,
		checker:   checker,
		recompute: recompute,
		metrics:   metrics,
		locks:     newScopeLock(),
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	svc.validator.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := MinutesOfDay(fl.Field().String())
		return err == nil
	})
	svc.validator.RegisterValidation("school_day", func(fl validator.FieldLevel) bool {
		return models.DayOfWeek(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// Create places a new entry after the full validation pipeline.
func (s *TimetableService) Create(ctx context.Context, req CreatePlacementRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}

	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}

	entry := &models.TimetableEntry{
		ClassLevelID:    req.ClassLevelID,
		SubclassLetter:  req.SubclassLetter,
		SubjectID:       req.SubjectID,
		TeacherID:       req.TeacherID,
		DayOfWeek:       models.DayOfWeek(strings.ToUpper(req.DayOfWeek)),
		StartTime:       req.StartTime,
		NumberOfPeriods: req.NumberOfPeriods,
		Location:        req.Location,
		AcademicYearID:  year.ID,
	}
	if err := s.validatePlacement(ctx, entry); err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(scopeKeys(entry))
	defer unlock()

	if err := s.checker.Check(ctx, placementOf(entry), ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
	}
	return entry, nil
}

// Update re-runs the validation pipeline over the merge of the existing entry
// and the provided fields. Entries outside the current year are rejected.
func (s *TimetableService) Update(ctx context.Context, id string, req UpdatePlacementRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}

	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	if existing.AcademicYearID != year.ID {
		return nil, appErrors.Clone(appErrors.ErrScope, "entry belongs to a different academic year")
	}

	merged := *existing
	merged.Periods = nil
	if req.SubjectID != nil {
		merged.SubjectID = *req.SubjectID
	}
	if req.TeacherID != nil {
		if *req.TeacherID == "" {
			merged.TeacherID = nil
		} else {
			merged.TeacherID = req.TeacherID
		}
	}
	if req.DayOfWeek != nil {
		merged.DayOfWeek = models.DayOfWeek(strings.ToUpper(*req.DayOfWeek))
	}
	if req.StartTime != nil {
		merged.StartTime = *req.StartTime
	}
	if req.NumberOfPeriods != nil {
		merged.NumberOfPeriods = *req.NumberOfPeriods
	}
	if req.Location != nil {
		merged.Location = *req.Location
	}

	if err := s.validatePlacement(ctx, &merged); err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(scopeKeys(&merged))
	defer unlock()

	if err := s.checker.Check(ctx, placementOf(&merged), merged.ID); err != nil {
		return nil, err
	}

	// Shrinking the period count drops the trimmed periods' attendance rows,
	// so the affected students' cached rates must be recomputed.
	var trimmed []string
	if merged.NumberOfPeriods < existing.NumberOfPeriods {
		ids, err := s.repo.StudentIDsForEntry(ctx, id, merged.NumberOfPeriods)
		if err != nil {
			s.logger.Warn("failed to collect students before shrink", zap.String("entry_id", id), zap.Error(err))
		} else {
			trimmed = ids
		}
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}

	if len(trimmed) > 0 && s.recompute != nil {
		s.recompute.RecomputeForStudents(ctx, trimmed)
	}
	return &merged, nil
}

// Delete removes an entry and recomputes attendance rates for every student
// referenced in its roll. Recomputation is best-effort.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	studentIDs, err := s.repo.StudentIDsForEntry(ctx, id, 0)
	if err != nil {
		s.logger.Warn("failed to collect students before delete", zap.String("entry_id", id), zap.Error(err))
		studentIDs = nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable entry")
	}

	if len(studentIDs) > 0 && s.recompute != nil {
		s.recompute.RecomputeForStudents(ctx, studentIDs)
	}
	return nil
}

// MarkAttendance replaces one period's roll wholesale and stamps its date.
func (s *TimetableService) MarkAttendance(ctx context.Context, id string, periodIndex int, req MarkAttendanceRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	if entry.AcademicYearID != year.ID {
		return nil, appErrors.Clone(appErrors.ErrScope, "entry belongs to a different academic year")
	}
	if periodIndex < 0 || periodIndex >= entry.NumberOfPeriods {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period index %d out of range [0,%d)", periodIndex, entry.NumberOfPeriods))
	}

	roster, err := s.students.ListIDsBySubclass(ctx, entry.ClassLevelID, entry.SubclassLetter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subclass roster")
	}
	inSubclass := make(map[string]struct{}, len(roster))
	for _, sid := range roster {
		inSubclass[sid] = struct{}{}
	}

	records := make([]models.AttendanceRecord, 0, len(req.Records))
	affected := make([]string, 0, len(req.Records))
	for _, rec := range req.Records {
		if _, ok := inSubclass[rec.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in subclass %s", rec.StudentID, entry.SubclassLetter))
		}
		records = append(records, models.AttendanceRecord{
			StudentID: rec.StudentID,
			Status:    models.AttendanceStatus(strings.ToUpper(rec.Status)),
			Notes:     rec.Notes,
		})
		affected = append(affected, rec.StudentID)
	}

	period, err := s.repo.FindPeriod(ctx, entry.ID, periodIndex)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	stamp := s.now()
	if err := s.repo.ReplacePeriodAttendance(ctx, period.ID, stamp, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.metrics.IncAttendanceMark()

	if len(affected) > 0 && s.recompute != nil {
		s.recompute.RecomputeForStudents(ctx, affected)
	}

	period.Date = &stamp
	period.Attendance = records
	return period, nil
}

// Get loads one entry with its periods and attendance.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	return entry, nil
}

// ListForClass returns the class timetable in the current year, optionally
// narrowed to a subject.
func (s *TimetableService) ListForClass(ctx context.Context, classLevelID, subclassLetter, subjectID string) ([]models.TimetableEntry, error) {
	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSubclass(ctx, classLevelID, subclassLetter); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByClass(ctx, classLevelID, subclassLetter, year.ID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class timetable")
	}
	return entries, nil
}

// ListForTeacher returns a teacher's entries in the current year. A teacher
// absent from the assignment registry gets a not-assigned error, not an empty list.
func (s *TimetableService) ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	assigned, err := s.subjects.TeacherHasAssignments(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher assignments")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "teacher has no subject assignments")
	}
	entries, err := s.repo.ListByTeacher(ctx, teacherID, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher timetable")
	}
	return entries, nil
}

// ListForStudent returns the timetable of the student's subclass in the current
// year. Students without a class placement get a not-assigned error.
func (s *TimetableService) ListForStudent(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	year, err := s.years.GetCurrentYear(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Placed() {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "student has no class placement")
	}
	entries, err := s.repo.ListByClass(ctx, *student.ClassLevelID, *student.SubclassLetter, year.ID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student timetable")
	}
	return entries, nil
}

// validatePlacement checks referential validity and derives the end time.
func (s *TimetableService) validatePlacement(ctx context.Context, entry *models.TimetableEntry) error {
	if err := s.ensureSubclass(ctx, entry.ClassLevelID, entry.SubclassLetter); err != nil {
		return err
	}

	if _, err := s.subjects.FindByID(ctx, entry.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	assignments, err := s.subjects.ListAssignments(ctx, entry.SubjectID, entry.ClassLevelID, entry.SubclassLetter)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject assignments")
	}
	if len(assignments) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "subject is not assigned to this subclass")
	}

	if entry.TeacherID != nil && *entry.TeacherID != "" {
		allowed := false
		for _, a := range assignments {
			if a.TeacherID == *entry.TeacherID {
				allowed = true
				break
			}
		}
		if !allowed {
			return appErrors.Clone(appErrors.ErrValidation, "teacher is not assigned to this subject for the subclass")
		}
	}

	endTime, err := EndClock(entry.StartTime, entry.NumberOfPeriods, s.checker.PeriodLength())
	if err != nil {
		return err
	}
	entry.EndTime = endTime
	return nil
}

func (s *TimetableService) ensureSubclass(ctx context.Context, classLevelID, subclassLetter string) error {
	level, err := s.classes.FindByID(ctx, classLevelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class level not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class level")
	}
	if !level.HasSubclass(subclassLetter) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subclass %s not found in %s", subclassLetter, level.Name))
	}
	return nil
}

func placementOf(entry *models.TimetableEntry) Placement {
	return Placement{
		ClassLevelID:    entry.ClassLevelID,
		SubclassLetter:  entry.SubclassLetter,
		SubjectID:       entry.SubjectID,
		TeacherID:       entry.TeacherID,
		DayOfWeek:       entry.DayOfWeek,
		StartTime:       entry.StartTime,
		NumberOfPeriods: entry.NumberOfPeriods,
		AcademicYearID:  entry.AcademicYearID,
	}
}

func scopeKeys(entry *models.TimetableEntry) []string {
	keys := []string{
		fmt.Sprintf("class|%s|%s|%s|%s", entry.ClassLevelID, entry.SubclassLetter, entry.DayOfWeek, entry.AcademicYearID),
	}
	if entry.TeacherID != nil && *entry.TeacherID != "" {
		keys = append(keys, fmt.Sprintf("teacher|%s|%s|%s", *entry.TeacherID, entry.DayOfWeek, entry.AcademicYearID))
	}
	return keys
}
