package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

type attendanceMarker interface {
	MarkAttendance(ctx context.Context, id string, periodIndex int, req service.MarkAttendanceRequest) (*models.Period, error)
}

type attendanceRater interface {
	RateFor(ctx context.Context, studentID string) (float64, error)
}

// AttendanceHandler manages per-period attendance endpoints.
type AttendanceHandler struct {
	timetable  attendanceMarker
	attendance attendanceRater
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(timetable attendanceMarker, attendance attendanceRater) *AttendanceHandler {
	return &AttendanceHandler{timetable: timetable, attendance: attendance}
}

// Mark godoc
// @Summary Record the roll of one period
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param index path int true "Period index, zero-based"
// @Param payload body service.MarkAttendanceRequest true "Roll records"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/{id}/periods/{index}/attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period index must be an integer"))
		return
	}

	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := h.timetable.MarkAttendance(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period)
}

// Rate godoc
// @Summary Get a student's current-year attendance rate
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance-rate [get]
func (h *AttendanceHandler) Rate(c *gin.Context) {
	rate, err := h.attendance.RateFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_id": c.Param("id"), "attendance_rate": rate})
}
