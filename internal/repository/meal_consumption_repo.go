package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cantine/internal/model"
)

// ConsumptionFilter narrows consumption listings. Zero fields are ignored.
type ConsumptionFilter struct {
	EstablishmentID string
	PersonID        string
	Meal            model.Meal
	From, To        time.Time
}

// MealConsumptionRepository redemption data access. Rows are never updated.
type MealConsumptionRepository interface {
	// Create fails with gorm.ErrDuplicatedKey when the slot was already redeemed.
	Create(ctx context.Context, c *model.MealConsumption) error
	Get(ctx context.Context, personID string, date time.Time, meal model.Meal) (*model.MealConsumption, error)
	List(ctx context.Context, filter ConsumptionFilter, offset, limit int) ([]model.MealConsumption, int64, error)
	CountByDay(ctx context.Context, establishmentID string, from, to time.Time) ([]DayMealCount, error)
}

type mealConsumptionRepo struct {
	db *gorm.DB
}

// NewMealConsumptionRepo creates a MealConsumptionRepository.
func NewMealConsumptionRepo(db *gorm.DB) MealConsumptionRepository {
	return &mealConsumptionRepo{db: db}
}

func (r *mealConsumptionRepo) Create(ctx context.Context, c *model.MealConsumption) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *mealConsumptionRepo) Get(ctx context.Context, personID string, date time.Time, meal model.Meal) (*model.MealConsumption, error) {
	var c model.MealConsumption
	err := r.db.WithContext(ctx).
		Where("person_id = ? AND date = ? AND meal = ?", personID, sqlDate(date), meal).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mealConsumptionRepo) filtered(ctx context.Context, filter ConsumptionFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.MealConsumption{})
	if filter.EstablishmentID != "" {
		db = db.Joins("JOIN persons ON persons.person_id = meal_consumptions.person_id").
			Where("persons.establishment_id = ?", filter.EstablishmentID)
	}
	if filter.PersonID != "" {
		db = db.Where("meal_consumptions.person_id = ?", filter.PersonID)
	}
	if filter.Meal != "" {
		db = db.Where("meal_consumptions.meal = ?", filter.Meal)
	}
	if !filter.From.IsZero() {
		db = db.Where("meal_consumptions.date >= ?", sqlDate(filter.From))
	}
	if !filter.To.IsZero() {
		db = db.Where("meal_consumptions.date <= ?", sqlDate(filter.To))
	}
	return db
}

func (r *mealConsumptionRepo) List(ctx context.Context, filter ConsumptionFilter, offset, limit int) ([]model.MealConsumption, int64, error) {
	var items []model.MealConsumption
	var total int64

	db := r.filtered(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Person").
		Offset(offset).Limit(limit).
		Order("meal_consumptions.consumed_at DESC").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *mealConsumptionRepo) CountByDay(ctx context.Context, establishmentID string, from, to time.Time) ([]DayMealCount, error) {
	var rows []DayMealCount
	err := r.filtered(ctx, ConsumptionFilter{EstablishmentID: establishmentID, From: from, To: to}).
		Select("meal_consumptions.date AS date, meal_consumptions.meal AS meal, COUNT(*) AS count").
		Group("meal_consumptions.date, meal_consumptions.meal").
		Order("meal_consumptions.date ASC").
		Scan(&rows).Error
	return rows, err
}
