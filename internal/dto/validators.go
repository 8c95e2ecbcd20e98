package dto

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"cantine/internal/model"
)

// RegisterValidators adds the custom binding tags used by the request DTOs.
//
//	meal: PETIT_DEJEUNER, DEJEUNER or DINER (and their accepted aliases)
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("meal", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseMeal(fl.Field().String())
		return ok
	})
}
