package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cantine/config"
	"cantine/internal/repository"
	"cantine/pkg/jwt"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID          string
	Username        string // matricule for students and staff
	Role            string
	EstablishmentID string
}

// TokenBlacklist revokes tokens before they expire.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Archiver keeps a copy of uploaded files and returns the storage key.
type Archiver interface {
	Store(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// Publisher fans scan outcomes out to live subscribers.
type Publisher interface {
	Publish(topic string, payload any)
}

// Deps are the optional collaborators of the services. Nil members disable
// the matching feature.
type Deps struct {
	Blacklist TokenBlacklist
	Archive   Archiver
	Publisher Publisher
	Now       func() time.Time
}

// Service aggregates every service.
type Service struct {
	Auth          AuthService
	User          UserService
	Establishment EstablishmentService
	Person        PersonService
	MealPlan      MealPlanService
	Export        ExportService
	Import        ImportService
	Scan          ScanService
}

// NewService wires the services.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	clock := newClock(&cfg.MealPlan, deps.Now)

	return &Service{
		Auth:          NewAuthService(cfg, repo, jwtMgr, deps.Blacklist, logger),
		User:          NewUserService(repo, logger),
		Establishment: NewEstablishmentService(repo, logger),
		Person:        NewPersonService(repo, logger),
		MealPlan:      NewMealPlanService(repo, clock, logger),
		Export:        NewExportService(repo, clock, logger),
		Import:        NewImportService(&cfg.Import, repo, deps.Archive, logger),
		Scan:          NewScanService(repo, clock, deps.Publisher, logger),
	}
}

// clock reads the current instant in the cafeteria's timezone.
type clock struct {
	now func() time.Time
	loc *time.Location
	// minutes since midnight
	breakfastUntil, lunchUntil int
}

func newClock(cfg *config.MealPlanConfig, now func() time.Time) *clock {
	b, l, err := cfg.Cutoffs()
	if err != nil {
		b, l = 10*60, 15*60
	}
	return &clock{now: now, loc: cfg.Location(), breakfastUntil: b, lunchUntil: l}
}

// Now is the current instant in the cafeteria's timezone.
func (c *clock) Now() time.Time { return c.now().In(c.loc) }

// Today is the local calendar day as a UTC-midnight date.
func (c *clock) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
