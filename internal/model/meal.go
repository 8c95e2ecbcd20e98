package model

import "strings"

// Meal is one of the three daily meal slots.
type Meal string

const (
	MealBreakfast Meal = "PETIT_DEJEUNER"
	MealLunch     Meal = "DEJEUNER"
	MealDinner    Meal = "DINER"
)

// Meals lists the slots in serving order.
var Meals = []Meal{MealBreakfast, MealLunch, MealDinner}

// ParseMeal accepts the canonical French names and their English aliases,
// case-insensitively.
func ParseMeal(s string) (Meal, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PETIT_DEJEUNER", "BREAKFAST":
		return MealBreakfast, true
	case "DEJEUNER", "LUNCH":
		return MealLunch, true
	case "DINER", "DINNER":
		return MealDinner, true
	}
	return "", false
}

// Label returns the French display label.
func (m Meal) Label() string {
	switch m {
	case MealBreakfast:
		return "Petit-déjeuner"
	case MealLunch:
		return "Déjeuner"
	case MealDinner:
		return "Dîner"
	}
	return string(m)
}
