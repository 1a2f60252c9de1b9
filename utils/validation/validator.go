package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sahilchouksey/learnhub-api/model"
)

// PasswordMinLength is the minimum password length
const PasswordMinLength = 8

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
// and knows the "role" tag
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a field -> message map
func FormatValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return out
	}
	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = "Invalid email format"
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "gte", "gt":
			out[field] = fmt.Sprintf("%s must be greater than %s%s", field, orEqual(e.Tag()), e.Param())
		case "lte", "lt":
			out[field] = fmt.Sprintf("%s must be less than %s%s", field, orEqual(e.Tag()), e.Param())
		case "oneof", "role":
			out[field] = fmt.Sprintf("%s has an unsupported value", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}

func orEqual(tag string) string {
	if strings.HasSuffix(tag, "e") {
		return "or equal to "
	}
	return ""
}

// ValidatePassword checks if a password meets minimum requirements
func ValidatePassword(password string) (bool, []string) {
	problems := []string{}

	if len(password) < PasswordMinLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters", PasswordMinLength))
	}

	hasLetter := strings.IndexFunc(password, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
	if !hasLetter {
		problems = append(problems, "Password must contain at least one letter")
	}

	return len(problems) == 0, problems
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
