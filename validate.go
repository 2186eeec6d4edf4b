package regs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	structs       *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).IsValid()
		})
		structs = v
	})
	return structs
}

// validateStruct runs tag validation on s and reports the first failure as
// a *ValidationError.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "params", Message: err.Error()}
	}

	fe := fieldErrs[0]
	ve := &ValidationError{Field: fe.Field()}
	switch fe.Tag() {
	case "required":
		ve.Message = "required"
		if fe.Field() == "Title" {
			ve.Err = ErrEmptyTitle
		}
		if fe.Field() == "Category" {
			ve.Err = ErrInvalidCategory
		}
	case "category":
		ve.Message = fmt.Sprintf("unknown category %q", fe.Value())
		ve.Err = ErrInvalidCategory
	case "max":
		ve.Message = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "url":
		ve.Message = "must be a valid URL"
	case "oneof":
		ve.Message = fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte", "min":
		ve.Message = fmt.Sprintf("must be at least %s", fe.Param())
	default:
		ve.Message = "invalid value"
	}
	return ve
}
