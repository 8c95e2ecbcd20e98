package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/service"
	"cantine/pkg/realtime"
	"cantine/pkg/response"
)

const livePingInterval = 25 * time.Second

// ScanHandler meal redemption endpoints
type ScanHandler struct {
	scanSvc  service.ScanService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewScanHandler creates a ScanHandler. Live sockets are accepted from the
// same origins as CORS.
func NewScanHandler(scanSvc service.ScanService, hub *realtime.Hub, allowOrigins []string, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		scanSvc: scanSvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowOrigins),
		},
		logger: logger,
	}
}

// Scan checks, and optionally records, a meal redemption.
// POST /api/v1/scan
func (h *ScanHandler) Scan(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "matricule is required")
		return
	}

	result, err := h.scanSvc.Scan(c.Request.Context(), p, &req)
	if err != nil {
		h.handleScanError(c, err)
		return
	}
	response.OK(c, result)
}

// ListConsumptions
// GET /api/v1/consumptions
func (h *ScanHandler) ListConsumptions(c *gin.Context) {
	var req dto.ConsumptionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query")
		return
	}

	list, total, err := h.scanSvc.ListConsumptions(c.Request.Context(), &req)
	if err != nil {
		h.handleScanError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Live streams scan events over a websocket. Admins see every
// establishment, other roles only their own.
// GET /api/v1/scan/live
func (h *ScanHandler) Live(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	topic := p.EstablishmentID
	if p.Role == model.RoleAdmin {
		topic = ""
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &realtime.Client{Topic: topic, Conn: conn}
	h.hub.Register(client)
	h.logger.Info("live scan subscriber",
		zap.String("user_id", p.UserID),
		zap.String("topic", topic))

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(livePingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := client.Ping(); err != nil {
					h.hub.Unregister(client)
					return
				}
			}
		}
	}()

	// incoming frames are ignored; the loop ends when the socket closes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.hub.Unregister(client)
}

func (h *ScanHandler) handleScanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScanMissingMatricule):
		response.BadRequest(c, 17001, "matricule is required")
	case errors.Is(err, service.ErrScanInvalidMeal):
		response.BadRequest(c, 17002, err.Error())
	case errors.Is(err, service.ErrScanInvalidDate):
		response.BadRequest(c, 17003, err.Error())
	case errors.Is(err, service.ErrMealPlanInvalidRange):
		response.BadRequest(c, 15005, err.Error())
	default:
		response.InternalError(c)
	}
}

func originChecker(allowOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
