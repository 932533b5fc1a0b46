package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/diet-tracker/internal/auth"
	"github.com/spec-kit/diet-tracker/internal/domain"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

// Validator wraps the go-playground validator with the request rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers custom tags and reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return auth.IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		switch domain.Gender(fl.Field().String()) {
		case domain.GenderMale, domain.GenderFemale, domain.GenderUndefined:
			return true
		}
		return false
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates a request and converts failures into VALIDATION_FAILED
// with one message per field.
func (v *Validator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, toJSONName(fe.Param()))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "password":
		return "password must contain at least 8 characters with uppercase, lowercase, number and one of @$!%*?&"
	case "gender":
		return "gender must be one of male, female, undefined"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// toJSONName turns a Go field name such as NewPassword into new_password.
func toJSONName(goName string) string {
	var b strings.Builder
	for i, r := range goName {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
