package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

type calendarService interface {
	ListYears(ctx context.Context) ([]models.AcademicYear, error)
	CreateYear(ctx context.Context, req service.CreateYearRequest) (*models.AcademicYear, error)
	GetCurrentYear(ctx context.Context) (*models.AcademicYear, error)
	ChangeCurrentYear(ctx context.Context, yearID string) (*models.AcademicYear, error)
	CreateTerm(ctx context.Context, yearID string, req service.CreateTermRequest) (*models.AcademicTerm, error)
	ListTerms(ctx context.Context, yearID string) ([]models.AcademicTerm, error)
}

// CalendarHandler manages academic year and term endpoints.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// ListYears godoc
// @Summary List academic years
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *CalendarHandler) ListYears(c *gin.Context) {
	years, err := h.service.ListYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years)
}

// CreateYear godoc
// @Summary Create academic year
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.CreateYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *CalendarHandler) CreateYear(c *gin.Context) {
	var req service.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.service.CreateYear(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// CurrentYear godoc
// @Summary Get the current academic year
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years/current [get]
func (h *CalendarHandler) CurrentYear(c *gin.Context) {
	year, err := h.service.GetCurrentYear(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year)
}

// ChangeCurrentYear godoc
// @Summary Move the current flag to another academic year
// @Tags Calendar
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/current [put]
func (h *CalendarHandler) ChangeCurrentYear(c *gin.Context) {
	year, err := h.service.ChangeCurrentYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year)
}

// CreateTerm godoc
// @Summary Create a term with its three sub-terms
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body service.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years/{id}/terms [post]
func (h *CalendarHandler) CreateTerm(c *gin.Context) {
	var req service.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	term, err := h.service.CreateTerm(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// ListTerms godoc
// @Summary List terms of an academic year
// @Tags Calendar
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/terms [get]
func (h *CalendarHandler) ListTerms(c *gin.Context) {
	terms, err := h.service.ListTerms(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms)
}
