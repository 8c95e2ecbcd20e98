package sheet

import (
	"strings"

	"cantine/internal/model"
)

// Folded synonyms per meal slot.
var mealSynonyms = map[string]model.Meal{
	"petitdejeuner": model.MealBreakfast,
	"petitdej":      model.MealBreakfast,
	"ptitdej":       model.MealBreakfast,
	"pdj":           model.MealBreakfast,
	"breakfast":     model.MealBreakfast,
	"matin":         model.MealBreakfast,

	"dejeuner": model.MealLunch,
	"dej":      model.MealLunch,
	"lunch":    model.MealLunch,
	"midi":     model.MealLunch,

	"diner":  model.MealDinner,
	"dinner": model.MealDinner,
	"souper": model.MealDinner,
	"soir":   model.MealDinner,
}

var truthy = map[string]bool{
	"1": true, "true": true, "x": true, "vrai": true,
	"oui": true, "yes": true, "y": true, "✓": true,
}

// MatchMeal recognises a meal label in French or English, ignoring case,
// accents, spaces and punctuation.
func MatchMeal(label string) (model.Meal, bool) {
	m, ok := mealSynonyms[Fold(label)]
	return m, ok
}

// IsChecked reports whether a plan cell marks the meal as taken.
func IsChecked(c Cell) bool {
	switch c.Kind {
	case KindBool:
		return c.Bool
	case KindNumber:
		return c.Number == 1
	case KindText:
		return truthy[strings.ToLower(strings.TrimSpace(c.Text))]
	}
	return false
}
