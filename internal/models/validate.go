package models

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/taskboard/backend/internal/apperr"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// usernames are alphanumeric plus underscore
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks a request struct against its validation tags and remaps
// failures to VALIDATION_ERROR with the offending field named.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		f := fieldErrs[0]
		return apperr.Wrap(apperr.CodeValidation,
			fmt.Sprintf("invalid value for %q (failed %q constraint)", f.Field(), f.Tag()), err)
	}
	return apperr.Wrap(apperr.CodeValidation, "invalid request", err)
}
