package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"cantine/internal/dto"
	"cantine/internal/service"
	pkgerrors "cantine/pkg/errors"
	"cantine/pkg/response"
)

// PersonHandler person endpoints
type PersonHandler struct {
	personSvc service.PersonService
}

// NewPersonHandler creates a PersonHandler.
func NewPersonHandler(personSvc service.PersonService) *PersonHandler {
	return &PersonHandler{personSvc: personSvc}
}

// ListPersons
// GET /api/v1/persons
func (h *PersonHandler) ListPersons(c *gin.Context) {
	var req dto.PersonListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	list, total, err := h.personSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetPerson
// GET /api/v1/persons/:id
func (h *PersonHandler) GetPerson(c *gin.Context) {
	p, err := h.personSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePersonError(c, err)
		return
	}
	response.OK(c, p)
}

// CreatePerson
// POST /api/v1/persons
func (h *PersonHandler) CreatePerson(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	p, err := h.personSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePersonError(c, err)
		return
	}
	response.Created(c, p)
}

// UpdatePerson
// PUT /api/v1/persons/:id
func (h *PersonHandler) UpdatePerson(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}
	if req.Version <= 0 {
		response.BadRequest(c, 10001, "version is required")
		return
	}

	p, err := h.personSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePersonError(c, err)
		return
	}
	response.OK(c, p)
}

// DeletePerson
// DELETE /api/v1/persons/:id
func (h *PersonHandler) DeletePerson(c *gin.Context) {
	if err := h.personSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handlePersonError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *PersonHandler) handlePersonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPersonNotFound):
		response.NotFound(c, 14001, "person not found")
	case errors.Is(err, service.ErrPersonMatriculeExists):
		response.Conflict(c, 14002, "a person with this matricule already exists")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14003, "person was modified by someone else, reload and retry")
	case errors.Is(err, service.ErrEstablishmentNotFound):
		response.NotFound(c, 13001, "establishment not found")
	default:
		response.InternalError(c)
	}
}
