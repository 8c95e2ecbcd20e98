package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cantine/internal/model"
)

// MealPlanFilter narrows plan listings. Zero fields are ignored.
type MealPlanFilter struct {
	EstablishmentID string
	PersonID        string
	Meal            model.Meal
	From, To        time.Time
}

// MealPlanRepository meal plan data access
type MealPlanRepository interface {
	ListPlanned(ctx context.Context, personID string, from, to time.Time) ([]model.MealPlan, error)
	IsPlanned(ctx context.Context, personID string, date time.Time, meal model.Meal) (bool, error)
	// ReplaceRange deletes the person's plans in [from, to] and inserts
	// plans, in one transaction serialised per person.
	ReplaceRange(ctx context.Context, personID string, from, to time.Time, plans []model.MealPlan) error
	// Upsert marks (person, date, meal) planned, reporting whether a row was inserted.
	Upsert(ctx context.Context, personID string, date time.Time, meal model.Meal, actorID *string) (created bool, err error)
	List(ctx context.Context, filter MealPlanFilter, offset, limit int) ([]model.MealPlan, int64, error)
	ListWithPersons(ctx context.Context, filter MealPlanFilter) ([]model.MealPlan, error)
	CountByDay(ctx context.Context, establishmentID string, from, to time.Time) ([]DayMealCount, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type mealPlanRepo struct {
	db *gorm.DB
}

// NewMealPlanRepo creates a MealPlanRepository.
func NewMealPlanRepo(db *gorm.DB) MealPlanRepository {
	return &mealPlanRepo{db: db}
}

func (r *mealPlanRepo) ListPlanned(ctx context.Context, personID string, from, to time.Time) ([]model.MealPlan, error) {
	var plans []model.MealPlan
	err := r.db.WithContext(ctx).
		Where("person_id = ? AND planned = ? AND date >= ? AND date <= ?", personID, true, sqlDate(from), sqlDate(to)).
		Order("date ASC, meal ASC").
		Find(&plans).Error
	return plans, err
}

func (r *mealPlanRepo) IsPlanned(ctx context.Context, personID string, date time.Time, meal model.Meal) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MealPlan{}).
		Where("person_id = ? AND date = ? AND meal = ? AND planned = ?", personID, sqlDate(date), meal, true).
		Count(&count).Error
	return count > 0, err
}

func (r *mealPlanRepo) ReplaceRange(ctx context.Context, personID string, from, to time.Time, plans []model.MealPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// concurrent saves for the same person queue here; last one wins
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", personID).Error; err != nil {
			return err
		}
		if err := tx.Where("person_id = ? AND date >= ? AND date <= ?", personID, sqlDate(from), sqlDate(to)).
			Delete(&model.MealPlan{}).Error; err != nil {
			return err
		}
		if len(plans) > 0 {
			if err := tx.Create(&plans).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

const upsertMealPlanSQL = `
INSERT INTO meal_plans (person_id, date, meal, planned, created_by, updated_by)
VALUES (?, ?, ?, TRUE, ?, ?)
ON CONFLICT (person_id, date, meal) DO UPDATE SET
    planned    = TRUE,
    updated_by = EXCLUDED.updated_by,
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

func (r *mealPlanRepo) Upsert(ctx context.Context, personID string, date time.Time, meal model.Meal, actorID *string) (bool, error) {
	var row struct{ Inserted bool }
	err := r.db.WithContext(ctx).
		Raw(upsertMealPlanSQL, personID, sqlDate(date), meal, actorID, actorID).
		Scan(&row).Error
	return row.Inserted, err
}

func (r *mealPlanRepo) filtered(ctx context.Context, filter MealPlanFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.MealPlan{}).Where("meal_plans.planned = ?", true)
	if filter.EstablishmentID != "" {
		db = db.Joins("JOIN persons ON persons.person_id = meal_plans.person_id").
			Where("persons.establishment_id = ?", filter.EstablishmentID)
	}
	if filter.PersonID != "" {
		db = db.Where("meal_plans.person_id = ?", filter.PersonID)
	}
	if filter.Meal != "" {
		db = db.Where("meal_plans.meal = ?", filter.Meal)
	}
	if !filter.From.IsZero() {
		db = db.Where("meal_plans.date >= ?", sqlDate(filter.From))
	}
	if !filter.To.IsZero() {
		db = db.Where("meal_plans.date <= ?", sqlDate(filter.To))
	}
	return db
}

func (r *mealPlanRepo) List(ctx context.Context, filter MealPlanFilter, offset, limit int) ([]model.MealPlan, int64, error) {
	var plans []model.MealPlan
	var total int64

	db := r.filtered(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Person").
		Offset(offset).Limit(limit).
		Order("meal_plans.date ASC, meal_plans.meal ASC").
		Find(&plans).Error; err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

func (r *mealPlanRepo) ListWithPersons(ctx context.Context, filter MealPlanFilter) ([]model.MealPlan, error) {
	var plans []model.MealPlan
	err := r.filtered(ctx, filter).
		Preload("Person").
		Order("meal_plans.date ASC, meal_plans.meal ASC").
		Find(&plans).Error
	return plans, err
}

func (r *mealPlanRepo) CountByDay(ctx context.Context, establishmentID string, from, to time.Time) ([]DayMealCount, error) {
	var rows []DayMealCount
	err := r.filtered(ctx, MealPlanFilter{EstablishmentID: establishmentID, From: from, To: to}).
		Select("meal_plans.date AS date, meal_plans.meal AS meal, COUNT(*) AS count").
		Group("meal_plans.date, meal_plans.meal").
		Order("meal_plans.date ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *mealPlanRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.MealPlan{})
	return result.RowsAffected, result.Error
}
