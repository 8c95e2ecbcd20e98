package model

import "time"

// MealConsumption a redeemed meal — table meal_consumptions
// Append-only; (person_id, date, meal) is unique.
type MealConsumption struct {
	MealConsumptionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                        json:"meal_consumption_id"`
	PersonID          string    `gorm:"type:uuid;not null;uniqueIndex:uq_meal_consumptions_person_date_meal" json:"person_id"`
	Date              time.Time `gorm:"type:date;not null;uniqueIndex:uq_meal_consumptions_person_date_meal" json:"date"`
	Meal              Meal      `gorm:"type:varchar(20);not null;uniqueIndex:uq_meal_consumptions_person_date_meal" json:"meal"`
	ConsumedAt        time.Time `gorm:"not null"                                                              json:"consumed_at"`
	ScannedBy         *string   `gorm:"type:uuid"                                                             json:"scanned_by,omitempty"`

	Person *Person `gorm:"foreignKey:PersonID;references:PersonID" json:"person,omitempty"`
}

// TableName table name
func (MealConsumption) TableName() string { return "meal_consumptions" }
