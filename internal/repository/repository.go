package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cantine/internal/model"
)

// Repository aggregates every repository.
type Repository struct {
	db              *gorm.DB
	Establishment   EstablishmentRepository
	Person          PersonRepository
	MealPlan        MealPlanRepository
	MealConsumption MealConsumptionRepository
	User            UserRepository
	ImportJob       ImportJobRepository
}

// NewRepository builds the aggregate on one connection pool.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		Establishment:   NewEstablishmentRepo(db),
		Person:          NewPersonRepo(db),
		MealPlan:        NewMealPlanRepo(db),
		MealConsumption: NewMealConsumptionRepo(db),
		User:            NewUserRepo(db),
		ImportJob:       NewImportJobRepo(db),
	}
}

// Ping checks database connectivity for the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DayMealCount is one row of a per-day, per-meal aggregate.
type DayMealCount struct {
	Date  time.Time
	Meal  model.Meal
	Count int64
}

// sqlDate formats a day for DATE column comparisons.
func sqlDate(t time.Time) string {
	return t.Format(model.DateLayout)
}
