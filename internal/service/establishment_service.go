package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
)

// ── establishment errors ──

var (
	ErrEstablishmentNotFound   = errors.New("establishment not found")
	ErrEstablishmentNameExists = errors.New("an establishment with this name already exists")
	ErrEstablishmentInUse      = errors.New("establishment still has people attached")
)

// EstablishmentService establishment administration
type EstablishmentService interface {
	Create(ctx context.Context, req *dto.EstablishmentRequest, callerID string) (*dto.EstablishmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.EstablishmentResponse, error)
	List(ctx context.Context) ([]dto.EstablishmentResponse, error)
	Update(ctx context.Context, id string, req *dto.EstablishmentRequest, callerID string) (*dto.EstablishmentResponse, error)
	Delete(ctx context.Context, id string) error
}

type establishmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEstablishmentService creates an EstablishmentService.
func NewEstablishmentService(repo *repository.Repository, logger *zap.Logger) EstablishmentService {
	return &establishmentService{repo: repo, logger: logger}
}

func (s *establishmentService) Create(ctx context.Context, req *dto.EstablishmentRequest, callerID string) (*dto.EstablishmentResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	est := &model.Establishment{
		Name:      name,
		BaseModel: model.BaseModel{CreatedBy: optionalID(callerID)},
	}
	if err := s.repo.Establishment.Create(ctx, est); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEstablishmentNameExists
		}
		s.logger.Error("create establishment failed", zap.Error(err))
		return nil, err
	}
	return toEstablishmentResponse(est), nil
}

func (s *establishmentService) GetByID(ctx context.Context, id string) (*dto.EstablishmentResponse, error) {
	est, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEstablishmentResponse(est), nil
}

func (s *establishmentService) List(ctx context.Context) ([]dto.EstablishmentResponse, error) {
	ests, err := s.repo.Establishment.List(ctx)
	if err != nil {
		s.logger.Error("list establishments failed", zap.Error(err))
		return nil, err
	}
	result := make([]dto.EstablishmentResponse, 0, len(ests))
	for i := range ests {
		result = append(result, *toEstablishmentResponse(&ests[i]))
	}
	return result, nil
}

func (s *establishmentService) Update(ctx context.Context, id string, req *dto.EstablishmentRequest, callerID string) (*dto.EstablishmentResponse, error) {
	est, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	est.Name = name
	est.UpdatedBy = optionalID(callerID)
	if err := s.repo.Establishment.Update(ctx, est); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEstablishmentNameExists
		}
		s.logger.Error("update establishment failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toEstablishmentResponse(est), nil
}

func (s *establishmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.Establishment.CountPersons(ctx, id)
	if err != nil {
		s.logger.Error("count persons failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrEstablishmentInUse
	}
	if err := s.repo.Establishment.Delete(ctx, id); err != nil {
		s.logger.Error("delete establishment failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *establishmentService) load(ctx context.Context, id string) (*model.Establishment, error) {
	est, err := s.repo.Establishment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEstablishmentNotFound
		}
		s.logger.Error("load establishment failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return est, nil
}

func (s *establishmentService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Establishment.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("load establishment failed", zap.Error(err))
		return err
	}
	if existing.EstablishmentID != selfID {
		return ErrEstablishmentNameExists
	}
	return nil
}

func toEstablishmentResponse(e *model.Establishment) *dto.EstablishmentResponse {
	return &dto.EstablishmentResponse{ID: e.EstablishmentID, Name: e.Name}
}
