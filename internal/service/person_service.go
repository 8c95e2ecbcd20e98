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
	pkgerrors "cantine/pkg/errors"
)

// ── person errors ──

var (
	ErrPersonNotFound        = errors.New("person not found")
	ErrPersonMatriculeExists = errors.New("a person with this matricule already exists")
)

// PersonService person administration
type PersonService interface {
	Create(ctx context.Context, req *dto.PersonRequest, callerID string) (*dto.PersonResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PersonResponse, error)
	List(ctx context.Context, req *dto.PersonListRequest) ([]dto.PersonResponse, int64, error)
	// Update requires req.Version to match the stored version.
	Update(ctx context.Context, id string, req *dto.PersonRequest, callerID string) (*dto.PersonResponse, error)
	Delete(ctx context.Context, id string) error
}

type personService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPersonService creates a PersonService.
func NewPersonService(repo *repository.Repository, logger *zap.Logger) PersonService {
	return &personService{repo: repo, logger: logger}
}

func (s *personService) Create(ctx context.Context, req *dto.PersonRequest, callerID string) (*dto.PersonResponse, error) {
	if err := s.checkEstablishment(ctx, req.EstablishmentID); err != nil {
		return nil, err
	}
	matricule := strings.TrimSpace(req.Matricule)
	if _, err := s.repo.Person.GetByMatricule(ctx, matricule); err == nil {
		return nil, ErrPersonMatriculeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &model.Person{
		Matricule:       matricule,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		EstablishmentID: req.EstablishmentID,
		Type:            model.PersonType(req.Type),
		StudentYear:     req.StudentYear,
	}
	p.CreatedBy = optionalID(callerID)
	if err := s.repo.Person.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPersonMatriculeExists
		}
		s.logger.Error("create person failed", zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, p.PersonID)
}

func (s *personService) GetByID(ctx context.Context, id string) (*dto.PersonResponse, error) {
	p, err := s.repo.Person.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("load person failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toPersonResponse(p), nil
}

func (s *personService) List(ctx context.Context, req *dto.PersonListRequest) ([]dto.PersonResponse, int64, error) {
	persons, total, err := s.repo.Person.List(ctx, repository.PersonFilter{
		EstablishmentID: req.EstablishmentID,
		Type:            model.PersonType(req.Type),
		Search:          strings.TrimSpace(req.Search),
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list persons failed", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.PersonResponse, 0, len(persons))
	for i := range persons {
		result = append(result, *toPersonResponse(&persons[i]))
	}
	return result, total, nil
}

func (s *personService) Update(ctx context.Context, id string, req *dto.PersonRequest, callerID string) (*dto.PersonResponse, error) {
	p, err := s.repo.Person.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	if req.Version != 0 && req.Version != p.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}
	if req.EstablishmentID != p.EstablishmentID {
		if err := s.checkEstablishment(ctx, req.EstablishmentID); err != nil {
			return nil, err
		}
	}
	matricule := strings.TrimSpace(req.Matricule)
	if matricule != p.Matricule {
		if _, err := s.repo.Person.GetByMatricule(ctx, matricule); err == nil {
			return nil, ErrPersonMatriculeExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	p.Matricule = matricule
	p.Name = strings.TrimSpace(req.Name)
	p.Email = strings.ToLower(strings.TrimSpace(req.Email))
	p.EstablishmentID = req.EstablishmentID
	p.Type = model.PersonType(req.Type)
	p.StudentYear = req.StudentYear
	p.UpdatedBy = optionalID(callerID)
	p.Establishment = nil

	if err := s.repo.Person.Update(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPersonMatriculeExists
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("update person failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *personService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Person.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPersonNotFound
		}
		return err
	}
	if err := s.repo.Person.Delete(ctx, id); err != nil {
		s.logger.Error("delete person failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *personService) checkEstablishment(ctx context.Context, id string) error {
	if _, err := s.repo.Establishment.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEstablishmentNotFound
		}
		return err
	}
	return nil
}

func toPersonResponse(p *model.Person) *dto.PersonResponse {
	resp := &dto.PersonResponse{
		ID:          p.PersonID,
		Matricule:   p.Matricule,
		Name:        p.Name,
		Email:       p.Email,
		Type:        string(p.Type),
		StudentYear: p.StudentYear,
		Version:     p.Version,
	}
	if p.Establishment != nil {
		resp.Establishment = toEstablishmentResponse(p.Establishment)
	}
	return resp
}
