package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cantine/internal/api/middleware"
	"cantine/internal/dto"
	"cantine/internal/service"
	"cantine/internal/sheet"
	"cantine/pkg/response"
)

// ImportHandler spreadsheet uploads
type ImportHandler struct {
	importSvc service.ImportService
	maxBytes  int64
}

// NewImportHandler creates an ImportHandler. Uploads larger than maxBytes are
// rejected with 413.
func NewImportHandler(importSvc service.ImportService, maxBytes int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxBytes: maxBytes}
}

// Import maps an uploaded spreadsheet into meal plans or people.
// POST /api/v1/plans/import (multipart: file, kind, establishment_id)
func (h *ImportHandler) Import(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			tooLarge(c)
			return
		}
		response.BadRequest(c, 16001, "file is required")
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		tooLarge(c)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 16001, "file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, 16002, "could not read the uploaded file")
		return
	}

	result, err := h.importSvc.Import(c.Request.Context(), p, &service.ImportRequest{
		Kind:            c.PostForm("kind"),
		Filename:        fh.Filename,
		Data:            data,
		EstablishmentID: c.PostForm("establishment_id"),
	})
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, result)
}

// ListJobs returns past imports, newest first.
// GET /api/v1/plans/imports
func (h *ImportHandler) ListJobs(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	jobs, total, err := h.importSvc.ListJobs(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, jobs, total, req.GetPage(), req.GetPageSize())
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportEmptyFile):
		response.BadRequest(c, 16003, "uploaded file is empty")
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 16004, err.Error())
	case errors.Is(err, service.ErrImportUnknownKind):
		response.BadRequest(c, 16005, err.Error())
	case errors.Is(err, service.ErrImportTooManyRows):
		response.Error(c, http.StatusRequestEntityTooLarge, 16006, err.Error())
	case errors.Is(err, service.ErrImportEstablishmentNeeded):
		response.BadRequest(c, 16007, err.Error())
	case errors.Is(err, service.ErrImportEstablishmentGone):
		response.NotFound(c, 13001, "establishment not found")
	case errors.Is(err, sheet.ErrNoPlanColumns),
		errors.Is(err, sheet.ErrNoIdentifierColumn),
		errors.Is(err, sheet.ErrNoPeopleHeader):
		response.BadRequest(c, 16008, err.Error())
	default:
		response.InternalError(c)
	}
}

func tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
}
