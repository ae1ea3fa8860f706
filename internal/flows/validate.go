package flows

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"buildmycv-backend/internal/shared/server/respond"
)

// NewValidator returns a validator that reports JSON field names and knows
// the "whole" tag for integral numbers.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return true
		default:
			return false
		}
	})
	return v
}

// FieldIssues flattens validator errors to field/issue pairs.
func FieldIssues(err error) []respond.FieldIssue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	issues := make([]respond.FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, respond.FieldIssue{Field: fe.Field(), Issue: describe(fe)})
	}
	return issues
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "whole":
		return "must be a whole number"
	case "datauri":
		return "must be a base64 data URI"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
