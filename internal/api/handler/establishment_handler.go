package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"cantine/internal/dto"
	"cantine/internal/service"
	"cantine/pkg/response"
)

// EstablishmentHandler establishment endpoints
type EstablishmentHandler struct {
	estSvc service.EstablishmentService
}

// NewEstablishmentHandler creates an EstablishmentHandler.
func NewEstablishmentHandler(estSvc service.EstablishmentService) *EstablishmentHandler {
	return &EstablishmentHandler{estSvc: estSvc}
}

// ListEstablishments
// GET /api/v1/establishments
func (h *EstablishmentHandler) ListEstablishments(c *gin.Context) {
	list, err := h.estSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// GetEstablishment
// GET /api/v1/establishments/:id
func (h *EstablishmentHandler) GetEstablishment(c *gin.Context) {
	est, err := h.estSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEstablishmentError(c, err)
		return
	}
	response.OK(c, est)
}

// CreateEstablishment
// POST /api/v1/establishments
func (h *EstablishmentHandler) CreateEstablishment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.EstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "name must be 2 to 150 characters")
		return
	}

	est, err := h.estSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEstablishmentError(c, err)
		return
	}
	response.Created(c, est)
}

// UpdateEstablishment
// PUT /api/v1/establishments/:id
func (h *EstablishmentHandler) UpdateEstablishment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.EstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "name must be 2 to 150 characters")
		return
	}

	est, err := h.estSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleEstablishmentError(c, err)
		return
	}
	response.OK(c, est)
}

// DeleteEstablishment
// DELETE /api/v1/establishments/:id
func (h *EstablishmentHandler) DeleteEstablishment(c *gin.Context) {
	if err := h.estSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleEstablishmentError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *EstablishmentHandler) handleEstablishmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEstablishmentNotFound):
		response.NotFound(c, 13001, "establishment not found")
	case errors.Is(err, service.ErrEstablishmentNameExists):
		response.Conflict(c, 13002, "an establishment with this name already exists")
	case errors.Is(err, service.ErrEstablishmentInUse):
		response.Conflict(c, 13003, "establishment still has people attached")
	default:
		response.InternalError(c)
	}
}
