package handler

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/service"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

type exportService interface {
	ExportClassTimetable(ctx context.Context, classLevelID, subclassLetter, format string) (*service.ExportResult, error)
	Download(token string) (*os.File, string, error)
}

// ExportHandler manages timetable export endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export a subclass timetable to CSV or PDF
// @Tags Exports
// @Produce json
// @Param id path string true "Class level ID"
// @Param letter path string true "Subclass letter"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subclasses/{letter}/timetable/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	letter := strings.ToUpper(c.Param("letter"))
	format := c.DefaultQuery("format", "csv")
	result, err := h.service.ExportClassTimetable(c.Request.Context(), c.Param("id"), letter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download godoc
// @Summary Download an export via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, name, err := h.service.Download(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if strings.HasSuffix(name, ".pdf") {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": "attachment; filename=" + name,
	})
}
