package model

import "time"

// MealPlan entitlement to one meal slot on one day — table meal_plans
// (person_id, date, meal) is unique.
type MealPlan struct {
	MealPlanID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                 json:"meal_plan_id"`
	PersonID   string    `gorm:"type:uuid;not null;uniqueIndex:uq_meal_plans_person_date_meal" json:"person_id"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:uq_meal_plans_person_date_meal" json:"date"`
	Meal       Meal      `gorm:"type:varchar(20);not null;uniqueIndex:uq_meal_plans_person_date_meal" json:"meal"`
	Planned    bool      `gorm:"not null;default:true"                                         json:"planned"`
	BaseModel

	Person *Person `gorm:"foreignKey:PersonID;references:PersonID" json:"person,omitempty"`
}

// TableName table name
func (MealPlan) TableName() string { return "meal_plans" }
