package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

type timetableExporter interface {
	RenderCSV(ctx context.Context, scheduleID string, view service.ExportView) ([]byte, error)
	RenderPDF(ctx context.Context, scheduleID string, view service.ExportView) ([]byte, error)
}

// ExportHandler serves rendered timetable sheets for a saved schedule.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

func exportView(c *gin.Context) service.ExportView {
	switch service.ExportView(c.Query("view")) {
	case service.ExportViewTeacher:
		return service.ExportViewTeacher
	case service.ExportViewVenue:
		return service.ExportViewVenue
	default:
		return service.ExportViewCohort
	}
}

// CSV godoc
// @Summary Download a semester schedule as CSV
// @Tags Scheduler
// @Produce text/csv
// @Param id path string true "Semester schedule ID"
// @Param view query string false "cohort|teacher|venue"
// @Success 200 {file} file
// @Router /timetables/{id}/export.csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	id := c.Param("id")
	payload, err := h.service.RenderCSV(c.Request.Context(), id, exportView(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("timetable-%s.csv", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// PDF godoc
// @Summary Download a semester schedule as PDF
// @Tags Scheduler
// @Produce application/pdf
// @Param id path string true "Semester schedule ID"
// @Param view query string false "cohort|teacher|venue"
// @Success 200 {file} file
// @Router /timetables/{id}/export.pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	id := c.Param("id")
	payload, err := h.service.RenderPDF(c.Request.Context(), id, exportView(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("timetable-%s.pdf", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
