package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-activity-api/internal/service"
	"github.com/noah-isme/club-activity-api/pkg/response"
)

type rosterExporter interface {
	ExportRoster(ctx context.Context, format string) (*service.ExportResult, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	exporter rosterExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(exporter rosterExporter) *ReportHandler {
	return &ReportHandler{exporter: exporter}
}

// Roster godoc
// @Summary Member roster
// @Description Every member with hour totals and qualification, as CSV or PDF.
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/roster [get]
func (h *ReportHandler) Roster(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	result, err := h.exporter.ExportRoster(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}
