package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cantine/internal/dto"
	"cantine/internal/service"
	"cantine/pkg/response"
)

// MealPlanHandler meal plan endpoints
type MealPlanHandler struct {
	planSvc service.MealPlanService
}

// NewMealPlanHandler creates a MealPlanHandler.
func NewMealPlanHandler(planSvc service.MealPlanService) *MealPlanHandler {
	return &MealPlanHandler{planSvc: planSvc}
}

// ════════════════════════════════════════════════════════════
// Self service
// ════════════════════════════════════════════════════════════

// GetSelf returns the caller's current planning window.
// GET /api/v1/mealplans/self
func (h *MealPlanHandler) GetSelf(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.GetSelf(c.Request.Context(), p)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	response.OK(c, plan)
}

// SaveSelf replaces the caller's choices for one window.
// POST /api/v1/mealplans/self
func (h *MealPlanHandler) SaveSelf(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.SaveSelfPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "start and end are required")
		return
	}

	result, err := h.planSvc.SaveSelf(c.Request.Context(), p, &req)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	response.OK(c, result)
}

// SelfCalendar serves the caller's plans as an iCalendar feed.
// GET /api/v1/mealplans/self/calendar
func (h *MealPlanHandler) SelfCalendar(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	data, err := h.planSvc.SelfCalendar(c.Request.Context(), p)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cantine.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// ════════════════════════════════════════════════════════════
// Administration
// ════════════════════════════════════════════════════════════

// ListMealPlans
// GET /api/v1/mealplans
func (h *MealPlanHandler) ListMealPlans(c *gin.Context) {
	var req dto.MealPlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	list, total, err := h.planSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Summary returns planned and consumed counts per day and meal.
// GET /api/v1/mealplans/summary
func (h *MealPlanHandler) Summary(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	days, err := h.planSvc.Summary(c.Request.Context(), &req)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	response.OK(c, days)
}

// ClearAll deletes every meal plan.
// DELETE /api/v1/mealplans
func (h *MealPlanHandler) ClearAll(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	n, err := h.planSvc.ClearAll(c.Request.Context(), p)
	if err != nil {
		h.handleMealPlanError(c, err)
		return
	}
	response.OK(c, dto.ClearPlansResponse{Deleted: n})
}

func (h *MealPlanHandler) handleMealPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMealPlanPersonNotFound):
		response.NotFound(c, 15001, "no person is linked to this account")
	case errors.Is(err, service.ErrMealPlanInvalidDates):
		response.BadRequest(c, 15002, err.Error())
	case errors.Is(err, service.ErrMealPlanInvalidWindow):
		response.BadRequest(c, 15003, err.Error())
	case errors.Is(err, service.ErrMealPlanWindowLocked):
		response.Forbidden(c, 15004, err.Error())
	case errors.Is(err, service.ErrMealPlanInvalidRange):
		response.BadRequest(c, 15005, err.Error())
	default:
		response.InternalError(c)
	}
}
