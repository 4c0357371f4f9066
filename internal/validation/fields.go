package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"clinicsched/backend/internal/domain"
)

var fields = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report columns, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("bun"), ",")
		if name == "" || name == "-" || strings.HasPrefix(name, "rel:") || strings.HasPrefix(name, "table:") {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		c, ok := fl.Field().Interface().(domain.Clock)
		return ok && c.Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// Fields checks the struct tags of a domain model and returns an InvalidField rejection for
// the first failing field.
func Fields(model any) error {
	err := fields.Struct(model)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return InvalidField("", err.Error())
	}
	fe := verrs[0]
	return InvalidField(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "clock":
		return "must be a valid time of day"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
