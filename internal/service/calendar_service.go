package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context) ([]models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, id string) (int64, error)
}

type academicTermRepository interface {
	CreateWithSubTerms(ctx context.Context, term *models.AcademicTerm) error
	ListByYear(ctx context.Context, yearID string) ([]models.AcademicTerm, error)
	SetSubTermCurrent(ctx context.Context, subTermID string, current bool) error
}

type calendarCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const currentYearCacheKey = "calendar:current_year"

// CreateYearRequest describes payload for creating an academic year.
type CreateYearRequest struct {
	Name     string    `json:"name" validate:"required"`
	FromDate time.Time `json:"from_date" validate:"required"`
	ToDate   time.Time `json:"to_date" validate:"required"`
}

// SubTermRequest is one dated division inside a term creation payload.
type SubTermRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// CreateTermRequest creates a term with exactly three named sub-terms.
type CreateTermRequest struct {
	SubTerms []SubTermRequest `json:"terms" validate:"required,len=3,dive"`
}

// CalendarService owns academic years and terms, including the single
// current-year switch and the term reconciliation pass.
type CalendarService struct {
	years     academicYearRepository
	terms     academicTermRepository
	cache     calendarCache
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	cacheTTL  time.Duration
}

// NewCalendarService constructs the calendar service.
func NewCalendarService(years academicYearRepository, terms academicTermRepository, cache calendarCache, validate *validator.Validate, logger *zap.Logger, location *time.Location, cacheTTL time.Duration) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CalendarService{
		years:     years,
		terms:     terms,
		cache:     cache,
		validator: validate,
		logger:    logger,
		location:  location,
		cacheTTL:  cacheTTL,
	}
}

// ListYears returns all academic years.
func (s *CalendarService) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// CreateYear registers a new academic year. Years start non-current; the flag
// only moves through ChangeCurrentYear.
func (s *CalendarService) CreateYear(ctx context.Context, req CreateYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.FromDate.Before(req.ToDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from_date must be before to_date")
	}

	year := &models.AcademicYear{
		Name:     req.Name,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	return year, nil
}

// GetCurrentYear resolves the single year flagged current, via cache when warm.
// Zero or multiple current years is a state inconsistency and fails closed.
func (s *CalendarService) GetCurrentYear(ctx context.Context) (*models.AcademicYear, error) {
	if s.cache != nil {
		var cached models.AcademicYear
		if err := s.cache.Get(ctx, currentYearCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	years, err := s.years.FindCurrent(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current academic year")
	}
	switch len(years) {
	case 1:
	case 0:
		s.logger.Error("no academic year is flagged current")
		return nil, appErrors.Clone(appErrors.ErrState, "no current academic year")
	default:
		s.logger.Error("multiple academic years flagged current", zap.Int("count", len(years)))
		return nil, appErrors.Clone(appErrors.ErrState, "multiple current academic years")
	}

	year := years[0]
	if s.cache != nil {
		if err := s.cache.Set(ctx, currentYearCacheKey, year, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache current year", zap.Error(err))
		}
	}
	return &year, nil
}

// ChangeCurrentYear atomically moves the current flag to the target year.
func (s *CalendarService) ChangeCurrentYear(ctx context.Context, yearID string) (*models.AcademicYear, error) {
	affected, err := s.years.SetCurrent(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change current year")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, currentYearCacheKey); err != nil {
			s.logger.Warn("failed to invalidate current year cache", zap.Error(err))
		}
	}

	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

// CreateTerm adds a term with exactly three sub-terms named 1st, 2nd and 3rd,
// whose date ranges must not overlap each other or any sub-term already stored
// for the year. Overlapping ranges would let reconciliation flag two sub-terms
// current at once.
func (s *CalendarService) CreateTerm(ctx context.Context, yearID string, req CreateTermRequest) (*models.AcademicTerm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}

	if _, err := s.years.FindByID(ctx, yearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	seen := make(map[models.SubTermName]bool, 3)
	subs := make([]models.SubTerm, 0, len(req.SubTerms))
	for _, st := range req.SubTerms {
		name := models.SubTermName(st.Name)
		if !name.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid sub-term name %q", st.Name))
		}
		if seen[name] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate sub-term name %q", st.Name))
		}
		seen[name] = true
		if st.EndDate.Before(st.StartDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sub-term %q ends before it starts", st.Name))
		}
		subs = append(subs, models.SubTerm{Name: name, StartDate: st.StartDate, EndDate: st.EndDate})
	}

	for i := 0; i < len(subs); i++ {
		for j := i + 1; j < len(subs); j++ {
			if rangesIntersect(subs[i].StartDate, subs[i].EndDate, subs[j].StartDate, subs[j].EndDate) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sub-terms %q and %q overlap", subs[i].Name, subs[j].Name))
			}
		}
	}

	stored, err := s.terms.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	for _, held := range stored {
		for _, heldSub := range held.SubTerms {
			for _, sub := range subs {
				if rangesIntersect(sub.StartDate, sub.EndDate, heldSub.StartDate, heldSub.EndDate) {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sub-term %q overlaps sub-term %q of an existing term", sub.Name, heldSub.Name))
				}
			}
		}
	}

	term := &models.AcademicTerm{AcademicYearID: yearID, SubTerms: subs}
	if err := s.terms.CreateWithSubTerms(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// ListTerms returns the terms of a year with their sub-terms.
func (s *CalendarService) ListTerms(ctx context.Context, yearID string) ([]models.AcademicTerm, error) {
	if _, err := s.years.FindByID(ctx, yearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	terms, err := s.terms.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// ReconcileCurrentTerm recomputes the current flag of every sub-term in the
// current year against the given wall-clock time, normalized to midnight in the
// institutional time zone. Only changed flags are persisted; per-sub-term
// failures are logged and the batch continues. The year flag itself is never
// touched here. Returns the number of mutated sub-terms.
func (s *CalendarService) ReconcileCurrentTerm(ctx context.Context, now time.Time) (int, error) {
	years, err := s.years.FindCurrent(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current academic year")
	}
	if len(years) != 1 {
		s.logger.Error("reconcile skipped, calendar state inconsistent", zap.Int("current_years", len(years)))
		return 0, appErrors.Clone(appErrors.ErrState, "calendar has no single current year")
	}

	terms, err := s.terms.ListByYear(ctx, years[0].ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}

	today := s.midnight(now)
	mutated := 0
	for _, term := range terms {
		for _, sub := range term.SubTerms {
			want := !today.Before(s.midnight(sub.StartDate)) && !today.After(s.midnight(sub.EndDate))
			if want == sub.IsCurrent {
				continue
			}
			if err := s.terms.SetSubTermCurrent(ctx, sub.ID, want); err != nil {
				s.logger.Error("failed to persist sub-term flag",
					zap.String("sub_term_id", sub.ID),
					zap.String("name", string(sub.Name)),
					zap.Error(err))
				continue
			}
			mutated++
		}
	}
	return mutated, nil
}

func (s *CalendarService) midnight(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

func rangesIntersect(s1, e1, s2, e2 time.Time) bool {
	return !e1.Before(s2) && !e2.Before(s1)
}
