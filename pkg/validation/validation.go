// Package validation checks request payloads with go-playground/validator and
// converts failures into VALIDATION apperr values keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

const (
	ReservedUsername = "me"
	MinScore         = 1
	MaxScore         = 10
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		if i := strings.IndexByte(name, ','); i >= 0 {
			name = name[:i]
		}
		if name == "-" {
			return fld.Name
		}
		return name
	})

	// Both rules operate on the raw value; callers lowercase before storing.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return usernamePattern.MatchString(s) && !IsReservedUsername(s)
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate checks s and returns a VALIDATION error with per-field details.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return formatError(err)
	}
	return nil
}

func IsReservedUsername(s string) bool {
	return strings.EqualFold(s, ReservedUsername)
}

// Normalize lowercases and trims an identity field for storage and comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckScore reports whether score lies in [MinScore, MaxScore], naming the
// violated bound.
func CheckScore(score int) error {
	switch {
	case score < MinScore:
		return apperr.ValidationWithDetails(
			fmt.Sprintf("score must be at least %d", MinScore),
			map[string]string{"score": "too low"},
		)
	case score > MaxScore:
		return apperr.ValidationWithDetails(
			fmt.Sprintf("score must be at most %d", MaxScore),
			map[string]string{"score": "too high"},
		)
	}
	return nil
}

func formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperr.Wrap(err, apperr.CodeValidation, "validation failed")
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}
	return apperr.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "username":
		if IsReservedUsername(fmt.Sprint(e.Value())) {
			return fmt.Sprintf("%q cannot be used as a username", ReservedUsername)
		}
		return "may contain only letters, digits and @/./+/-/_"
	case "slug":
		return "may contain only latin letters, digits, - and _"
	case "role":
		return fmt.Sprintf("must be one of: %s, %s, %s", models.RoleUser, models.RoleModerator, models.RoleAdmin)
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
