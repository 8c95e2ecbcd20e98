package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
)

// ── scan errors ──

var (
	ErrScanMissingMatricule = errors.New("matricule is required")
	ErrScanInvalidMeal      = errors.New("meal must be PETIT_DEJEUNER, DEJEUNER or DINER")
	ErrScanInvalidDate      = errors.New("date must be formatted as YYYY-MM-DD")
)

// Scan outcomes.
const (
	ScanNotFound        = "not_found"
	ScanNotPlanned      = "not_planned"
	ScanAlreadyConsumed = "already_consumed"
	ScanConsumed        = "consumed"
	ScanOK              = "ok"
)

// ScanEvent is what live subscribers receive for each scan.
type ScanEvent struct {
	Type string `json:"type"`
	dto.ScanResponse
	ScannedBy string `json:"scannedBy,omitempty"`
	At        string `json:"at"`
}

// ScanService meal redemption
type ScanService interface {
	// Scan checks whether the scanned person may eat the slot and, with
	// Consume set, records the redemption at most once.
	Scan(ctx context.Context, p Principal, req *dto.ScanRequest) (*dto.ScanResponse, error)
	ListConsumptions(ctx context.Context, req *dto.ConsumptionListRequest) ([]dto.ConsumptionResponse, int64, error)
}

type scanService struct {
	repo      *repository.Repository
	clock     *clock
	publisher Publisher
	logger    *zap.Logger
}

// NewScanService creates a ScanService. publisher may be nil.
func NewScanService(repo *repository.Repository, clock *clock, publisher Publisher, logger *zap.Logger) ScanService {
	return &scanService{repo: repo, clock: clock, publisher: publisher, logger: logger}
}

// InferMeal picks the slot served at local time t.
func (c *clock) InferMeal(t time.Time) model.Meal {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < c.breakfastUntil:
		return model.MealBreakfast
	case minutes < c.lunchUntil:
		return model.MealLunch
	default:
		return model.MealDinner
	}
}

// ────────────────────── Scan ──────────────────────

func (s *scanService) Scan(ctx context.Context, p Principal, req *dto.ScanRequest) (*dto.ScanResponse, error) {
	matricule := strings.TrimSpace(req.Matricule)
	if matricule == "" {
		return nil, ErrScanMissingMatricule
	}

	now := s.clock.Now()
	meal := s.clock.InferMeal(now)
	if req.Meal != "" {
		m, ok := model.ParseMeal(req.Meal)
		if !ok {
			return nil, ErrScanInvalidMeal
		}
		meal = m
	}
	day := s.clock.Today()
	if req.Date != "" {
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(req.Date))
		if err != nil {
			return nil, ErrScanInvalidDate
		}
		day = d
	}

	resp := &dto.ScanResponse{
		Matricule: matricule,
		Meal:      string(meal),
		Date:      day.Format(model.DateLayout),
	}

	person, err := s.repo.Person.GetByMatricule(ctx, matricule)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("load person failed", zap.String("matricule", matricule), zap.Error(err))
			return nil, err
		}
		resp.Status = ScanNotFound
		s.publish(p, "", resp)
		return resp, nil
	}
	resp.Name = person.Name

	planned, err := s.repo.MealPlan.IsPlanned(ctx, person.PersonID, day, meal)
	if err != nil {
		s.logger.Error("check meal plan failed", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}
	if !planned {
		resp.Status = ScanNotPlanned
		s.publish(p, person.EstablishmentID, resp)
		return resp, nil
	}

	existing, err := s.repo.MealConsumption.Get(ctx, person.PersonID, day, meal)
	switch {
	case err == nil:
		resp.Status = ScanAlreadyConsumed
		resp.ConsumedAt = formatInstant(existing.ConsumedAt)
		s.publish(p, person.EstablishmentID, resp)
		return resp, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("load consumption failed", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}

	if !req.Consume {
		resp.Status = ScanOK
		s.publish(p, person.EstablishmentID, resp)
		return resp, nil
	}

	consumption := &model.MealConsumption{
		PersonID:   person.PersonID,
		Date:       day,
		Meal:       meal,
		ConsumedAt: now.UTC(),
		ScannedBy:  optionalID(p.UserID),
	}
	if err := s.repo.MealConsumption.Create(ctx, consumption); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("record consumption failed", zap.String("person_id", person.PersonID), zap.Error(err))
			return nil, err
		}
		// a concurrent scan won the race; report its row
		winner, getErr := s.repo.MealConsumption.Get(ctx, person.PersonID, day, meal)
		if getErr != nil {
			s.logger.Error("reload consumption failed", zap.String("person_id", person.PersonID), zap.Error(getErr))
			return nil, getErr
		}
		resp.Status = ScanAlreadyConsumed
		resp.ConsumedAt = formatInstant(winner.ConsumedAt)
		s.publish(p, person.EstablishmentID, resp)
		return resp, nil
	}

	resp.Status = ScanConsumed
	resp.ConsumedAt = formatInstant(consumption.ConsumedAt)
	s.publish(p, person.EstablishmentID, resp)
	return resp, nil
}

func (s *scanService) publish(p Principal, establishmentID string, resp *dto.ScanResponse) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(establishmentID, ScanEvent{
		Type:         "scan",
		ScanResponse: *resp,
		ScannedBy:    p.Username,
		At:           s.clock.Now().Format(time.RFC3339),
	})
}

// ────────────────────── ListConsumptions ──────────────────────

func (s *scanService) ListConsumptions(ctx context.Context, req *dto.ConsumptionListRequest) ([]dto.ConsumptionResponse, int64, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, 0, err
	}
	meal, _ := model.ParseMeal(req.Meal)

	items, total, err := s.repo.MealConsumption.List(ctx, repository.ConsumptionFilter{
		EstablishmentID: req.EstablishmentID,
		PersonID:        req.PersonID,
		Meal:            meal,
		From:            from,
		To:              to,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list consumptions failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ConsumptionResponse, 0, len(items))
	for _, c := range items {
		r := dto.ConsumptionResponse{
			ID:         c.MealConsumptionID,
			PersonID:   c.PersonID,
			Date:       model.DateOnly(c.Date).Format(model.DateLayout),
			Meal:       string(c.Meal),
			ConsumedAt: c.ConsumedAt.UTC().Format(time.RFC3339),
			ScannedBy:  c.ScannedBy,
		}
		if c.Person != nil {
			r.Matricule = c.Person.Matricule
			r.Name = c.Person.Name
		}
		result = append(result, r)
	}
	return result, total, nil
}

func formatInstant(t time.Time) *string {
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
