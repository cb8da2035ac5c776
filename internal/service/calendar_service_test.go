package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type yearRepoStub struct {
	years       []models.AcademicYear
	current     []models.AcademicYear
	createErr   error
	setAffected int64
	setErr      error
	setCalls    int
	currentErr  error
}

func (s *yearRepoStub) List(ctx context.Context) ([]models.AcademicYear, error) {
	return s.years, nil
}

func (s *yearRepoStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	for i := range s.years {
		if s.years[i].ID == id {
			return &s.years[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *yearRepoStub) FindCurrent(ctx context.Context) ([]models.AcademicYear, error) {
	return s.current, s.currentErr
}

func (s *yearRepoStub) Create(ctx context.Context, year *models.AcademicYear) error {
	if s.createErr != nil {
		return s.createErr
	}
	year.ID = "year-new"
	s.years = append(s.years, *year)
	return nil
}

func (s *yearRepoStub) SetCurrent(ctx context.Context, id string) (int64, error) {
	s.setCalls++
	return s.setAffected, s.setErr
}

type termRepoStub struct {
	terms      []models.AcademicTerm
	flagWrites map[string]bool
	flagErr    error
}

func (s *termRepoStub) CreateWithSubTerms(ctx context.Context, term *models.AcademicTerm) error {
	term.ID = "term-new"
	s.terms = append(s.terms, *term)
	return nil
}

func (s *termRepoStub) ListByYear(ctx context.Context, yearID string) ([]models.AcademicTerm, error) {
	return s.terms, nil
}

func (s *termRepoStub) SetSubTermCurrent(ctx context.Context, subTermID string, current bool) error {
	if s.flagErr != nil {
		return s.flagErr
	}
	if s.flagWrites == nil {
		s.flagWrites = make(map[string]bool)
	}
	s.flagWrites[subTermID] = current
	for ti := range s.terms {
		for si := range s.terms[ti].SubTerms {
			if s.terms[ti].SubTerms[si].ID == subTermID {
				s.terms[ti].SubTerms[si].IsCurrent = current
			}
		}
	}
	return nil
}

type cacheStub struct {
	values  map[string]models.AcademicYear
	deletes []string
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if year, ok := s.values[key]; ok {
		if out, ok := dest.(*models.AcademicYear); ok {
			*out = year
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = make(map[string]models.AcademicYear)
	}
	if year, ok := value.(models.AcademicYear); ok {
		s.values[key] = year
	}
	return nil
}

func (s *cacheStub) Delete(ctx context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	delete(s.values, key)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newCalendarService(years *yearRepoStub, terms *termRepoStub, cache calendarCache) *CalendarService {
	return NewCalendarService(years, terms, cache, nil, zap.NewNop(), time.UTC, time.Minute)
}

func TestCalendarServiceGetCurrentYear(t *testing.T) {
	years := &yearRepoStub{current: []models.AcademicYear{{ID: "year-1", Name: "2025/2026", IsCurrent: true}}}
	cache := &cacheStub{}
	service := newCalendarService(years, &termRepoStub{}, cache)

	year, err := service.GetCurrentYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "year-1", year.ID)
	assert.Contains(t, cache.values, currentYearCacheKey)

	years.current = nil
	cached, err := service.GetCurrentYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "year-1", cached.ID, "second read must be served from cache")
}

func TestCalendarServiceGetCurrentYearStateErrors(t *testing.T) {
	service := newCalendarService(&yearRepoStub{}, &termRepoStub{}, nil)
	_, err := service.GetCurrentYear(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)

	two := &yearRepoStub{current: []models.AcademicYear{{ID: "a"}, {ID: "b"}}}
	service = newCalendarService(two, &termRepoStub{}, nil)
	_, err = service.GetCurrentYear(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceChangeCurrentYear(t *testing.T) {
	years := &yearRepoStub{
		years:       []models.AcademicYear{{ID: "year-2", Name: "2026/2027"}},
		setAffected: 1,
	}
	cache := &cacheStub{values: map[string]models.AcademicYear{currentYearCacheKey: {ID: "year-1"}}}
	service := newCalendarService(years, &termRepoStub{}, cache)

	year, err := service.ChangeCurrentYear(context.Background(), "year-2")
	require.NoError(t, err)
	assert.Equal(t, "year-2", year.ID)
	assert.Contains(t, cache.deletes, currentYearCacheKey)
}

func TestCalendarServiceChangeCurrentYearNotFound(t *testing.T) {
	service := newCalendarService(&yearRepoStub{setAffected: 0}, &termRepoStub{}, nil)
	_, err := service.ChangeCurrentYear(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceCreateYearRejectsInvertedRange(t *testing.T) {
	service := newCalendarService(&yearRepoStub{}, &termRepoStub{}, nil)
	_, err := service.CreateYear(context.Background(), CreateYearRequest{
		Name:     "2026/2027",
		FromDate: date(2027, time.July, 1),
		ToDate:   date(2026, time.September, 1),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func validTermRequest() CreateTermRequest {
	return CreateTermRequest{SubTerms: []SubTermRequest{
		{Name: "1st", StartDate: date(2025, time.September, 1), EndDate: date(2025, time.December, 12)},
		{Name: "2nd", StartDate: date(2026, time.January, 5), EndDate: date(2026, time.April, 2)},
		{Name: "3rd", StartDate: date(2026, time.April, 20), EndDate: date(2026, time.July, 24)},
	}}
}

func TestCalendarServiceCreateTerm(t *testing.T) {
	years := &yearRepoStub{years: []models.AcademicYear{{ID: "year-1"}}}
	terms := &termRepoStub{}
	service := newCalendarService(years, terms, nil)

	term, err := service.CreateTerm(context.Background(), "year-1", validTermRequest())
	require.NoError(t, err)
	assert.Equal(t, "year-1", term.AcademicYearID)
	require.Len(t, term.SubTerms, 3)
}

func TestCalendarServiceCreateTermRejectsDuplicateNames(t *testing.T) {
	years := &yearRepoStub{years: []models.AcademicYear{{ID: "year-1"}}}
	service := newCalendarService(years, &termRepoStub{}, nil)

	req := validTermRequest()
	req.SubTerms[1].Name = "1st"
	_, err := service.CreateTerm(context.Background(), "year-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceCreateTermRejectsOverlap(t *testing.T) {
	years := &yearRepoStub{years: []models.AcademicYear{{ID: "year-1"}}}
	service := newCalendarService(years, &termRepoStub{}, nil)

	req := validTermRequest()
	req.SubTerms[1].StartDate = date(2025, time.December, 12)
	_, err := service.CreateTerm(context.Background(), "year-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceCreateTermRejectsOverlapWithStoredTerms(t *testing.T) {
	years := &yearRepoStub{years: []models.AcademicYear{{ID: "year-1"}}}
	terms := &termRepoStub{}
	service := newCalendarService(years, terms, nil)

	_, err := service.CreateTerm(context.Background(), "year-1", validTermRequest())
	require.NoError(t, err)

	second := CreateTermRequest{SubTerms: []SubTermRequest{
		{Name: "1st", StartDate: date(2025, time.October, 1), EndDate: date(2026, time.January, 30)},
		{Name: "2nd", StartDate: date(2026, time.August, 3), EndDate: date(2026, time.October, 30)},
		{Name: "3rd", StartDate: date(2026, time.November, 2), EndDate: date(2027, time.January, 29)},
	}}
	_, err = service.CreateTerm(context.Background(), "year-1", second)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Len(t, terms.terms, 1, "overlapping term must not be stored")
}

func TestCalendarServiceCreateTermAcceptsDisjointSecondTerm(t *testing.T) {
	years := &yearRepoStub{years: []models.AcademicYear{{ID: "year-1"}}}
	terms := &termRepoStub{}
	service := newCalendarService(years, terms, nil)

	_, err := service.CreateTerm(context.Background(), "year-1", validTermRequest())
	require.NoError(t, err)

	second := CreateTermRequest{SubTerms: []SubTermRequest{
		{Name: "1st", StartDate: date(2026, time.September, 7), EndDate: date(2026, time.December, 11)},
		{Name: "2nd", StartDate: date(2027, time.January, 4), EndDate: date(2027, time.April, 1)},
		{Name: "3rd", StartDate: date(2027, time.April, 19), EndDate: date(2027, time.July, 23)},
	}}
	_, err = service.CreateTerm(context.Background(), "year-1", second)
	require.NoError(t, err)
	require.Len(t, terms.terms, 2)
}

func reconcileFixture() (*yearRepoStub, *termRepoStub) {
	years := &yearRepoStub{current: []models.AcademicYear{{ID: "year-1", IsCurrent: true}}}
	terms := &termRepoStub{terms: []models.AcademicTerm{{
		ID:             "term-1",
		AcademicYearID: "year-1",
		SubTerms: []models.SubTerm{
			{ID: "sub-1", Name: "1st", StartDate: date(2025, time.September, 1), EndDate: date(2025, time.December, 12), IsCurrent: true},
			{ID: "sub-2", Name: "2nd", StartDate: date(2026, time.January, 5), EndDate: date(2026, time.April, 2)},
			{ID: "sub-3", Name: "3rd", StartDate: date(2026, time.April, 20), EndDate: date(2026, time.July, 24)},
		},
	}}}
	return years, terms
}

func TestCalendarServiceReconcileMovesCurrentFlag(t *testing.T) {
	years, terms := reconcileFixture()
	service := newCalendarService(years, terms, nil)

	mutated, err := service.ReconcileCurrentTerm(context.Background(), date(2026, time.February, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, mutated, "first sub-term unset, second set")
	assert.False(t, terms.flagWrites["sub-1"])
	assert.True(t, terms.flagWrites["sub-2"])
}

func TestCalendarServiceReconcileIsIdempotent(t *testing.T) {
	years, terms := reconcileFixture()
	service := newCalendarService(years, terms, nil)
	now := date(2026, time.February, 10)

	mutated, err := service.ReconcileCurrentTerm(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, mutated)

	mutated, err = service.ReconcileCurrentTerm(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, mutated, "second pass must not rewrite flags")
}

func TestCalendarServiceReconcileInclusiveBoundaries(t *testing.T) {
	years, terms := reconcileFixture()
	service := newCalendarService(years, terms, nil)

	mutated, err := service.ReconcileCurrentTerm(context.Background(), date(2025, time.December, 12))
	require.NoError(t, err)
	assert.Equal(t, 0, mutated, "end date itself is still inside the sub-term")
}

func TestCalendarServiceReconcileRequiresSingleCurrentYear(t *testing.T) {
	terms := &termRepoStub{}
	service := newCalendarService(&yearRepoStub{}, terms, nil)

	_, err := service.ReconcileCurrentTerm(context.Background(), date(2026, time.February, 10))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}
