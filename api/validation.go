package api

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the sign-in form before any request is made.
func (c Credentials) Validate() error {
	return firstViolation(validate.Struct(c))
}

// Validate checks the sign-up form before any request is made.
func (r Registration) Validate() error {
	return firstViolation(validate.Struct(r))
}

// firstViolation converts the first failed rule into a message the form can
// show next to the field.
func firstViolation(err error) error {
	if err == nil {
		return nil
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok || len(violations) == 0 {
		return err
	}

	v := violations[0]
	return &ValidationError{Field: v.Field(), Message: messageFor(v)}
}

func messageFor(v validator.FieldError) string {
	switch v.Field() {
	case "Email":
		if v.Tag() == "required" {
			return "email is required"
		}
		return "enter a valid email address"
	case "Password":
		switch v.Tag() {
		case "required":
			return "password is required"
		case "min":
			return "password must be at least 8 characters"
		case "max":
			return "password must be at most 100 characters"
		}
	case "ConfirmPassword":
		if v.Tag() == "required" {
			return "confirm your password"
		}
		return "passwords do not match"
	case "FullName":
		return "name must be at most 100 characters"
	}
	return "invalid " + v.Field()
}
