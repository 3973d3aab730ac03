// Package validation checks request and entity structs against their
// `validate` tags and turns the first problem into a user-facing message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages match what clients send
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(specCatalog, models.Spec{})
}

// specCatalog rejects make/model pairs outside the catalogue.
func specCatalog(sl validator.StructLevel) {
	s := sl.Current().Interface().(models.Spec)
	if s.Make == "" || s.Model == "" {
		return
	}
	if !models.KnownModel(s.Make, s.Model) {
		sl.ReportError(s.Make, "make", "Make", "catalog", "")
	}
}

// Struct validates v and returns an apperr validation failure describing the
// first problem, or nil.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	var missing []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("Missing fields: " + strings.Join(missing, ", "))
	}
	return apperr.Validation(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "make", "model":
		return "Please select a valid make and model."
	case "color":
		return "Please select a valid color."
	case "fuel":
		return "Please select a valid fuel type."
	case "transmission":
		return "Please select a valid transmission."
	case "body_style":
		return "Please select a valid body style."
	case "year":
		return fmt.Sprintf("Year must be between %d and %d.", models.MinYear, models.MaxYear)
	case "reliability", "accuracy", "communication", "product":
		return "All ratings must be between 1 and 5."
	case "confirm_password":
		return "Passwords do not match."
	case "password":
		if fe.Tag() == "max" {
			return "Password must be at most 72 characters."
		}
		return "Password must be at least 8 characters."
	case "email":
		return "Please enter a valid email address."
	}

	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return "invalid " + fe.Field()
}
