package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (a *authService) validate(s any) error {
	err := a.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return customErrors.NewInvalidArgument(err.Error())
	}

	fields := make([]customErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, customErrors.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return customErrors.NewValidation(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "email" {
			return "Email is required"
		}
		return fe.Field() + " is required"
	case "email":
		return "Email should be a valid email"
	case "min":
		return fe.Field() + " length should be at least " + fe.Param() + " chars"
	case "max":
		return fe.Field() + " length should be at most " + fe.Param() + " chars"
	default:
		return fe.Field() + " is invalid"
	}
}
