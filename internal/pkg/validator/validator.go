package validator

import (
	"reflect"
	"strings"

	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("srid", func(fl validator.FieldLevel) bool {
		return geo.SupportedSRID(int(fl.Field().Int()))
	})
}

// Validate - validates a struct using its `validate` tags
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator - access to the shared validator for custom configuration
func GetValidator() *validator.Validate {
	return validate
}

// FieldMessages flattens validator errors into field -> messages. Errors of
// any other type yield nil.
func FieldMessages(err error) map[string][]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return "Must be at least " + fe.Param() + "."
	case "max":
		return "Must be at most " + fe.Param() + "."
	case "srid":
		return "Unsupported SRID."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	}
	return "Invalid value."
}
