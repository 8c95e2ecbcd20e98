package handler

import (
	"go.uber.org/zap"

	"cantine/config"
	"cantine/internal/service"
	"cantine/pkg/realtime"
)

// Handler aggregates every handler.
type Handler struct {
	Auth          *AuthHandler
	User          *UserHandler
	Establishment *EstablishmentHandler
	Person        *PersonHandler
	MealPlan      *MealPlanHandler
	Export        *ExportHandler
	Import        *ImportHandler
	Scan          *ScanHandler
	Health        *HealthHandler
}

// NewHandler wires handlers to their services.
func NewHandler(cfg *config.Config, svc *service.Service, hub *realtime.Hub, pinger Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:          NewAuthHandler(svc.Auth, &cfg.Server),
		User:          NewUserHandler(svc.User),
		Establishment: NewEstablishmentHandler(svc.Establishment),
		Person:        NewPersonHandler(svc.Person),
		MealPlan:      NewMealPlanHandler(svc.MealPlan),
		Export:        NewExportHandler(svc.Export),
		Import:        NewImportHandler(svc.Import, int64(cfg.Server.BodyLimitMB)<<20),
		Scan:          NewScanHandler(svc.Scan, hub, cfg.Server.CORS.AllowOrigins, logger),
		Health:        NewHealthHandler(pinger),
	}
}
