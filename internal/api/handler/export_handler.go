package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"cantine/internal/dto"
	"cantine/internal/service"
	"cantine/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler spreadsheet downloads
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportMealPlans downloads the plans of a period as a workbook.
// GET /api/v1/mealplans/export?from=2025-03-01&to=2025-03-14
func (h *ExportHandler) ExportMealPlans(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	buf, filename, err := h.exportSvc.ExportMealPlans(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMealPlanInvalidRange):
		response.BadRequest(c, 15005, err.Error())
	case errors.Is(err, service.ErrExportNoPlans):
		response.NotFound(c, 15101, "no meal plans in this period")
	default:
		response.InternalError(c)
	}
}
