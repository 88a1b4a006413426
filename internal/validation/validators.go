package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

const (
	// MinPasswordLength is the minimum password length accepted at signup
	MinPasswordLength = 6
	// MaxTitleLength is the maximum length for todo titles and descriptions
	MaxTitleLength = 10000
)

var (
	// ErrTitleRequired is returned when a todo title is blank after trimming
	ErrTitleRequired = errors.New("title is required")
	// ErrPasswordMismatch is returned when the signup confirmation differs
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordLength is returned when the signup password is too short
	ErrPasswordLength = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrInvalidEmail is returned when the email is not well-formed
	ErrInvalidEmail = errors.New("a valid email address is required")
)

func init() {
	Validate = validator.New()

	// notblank is used on fields that must carry visible text
	if err := Validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
}

// validateNotBlank rejects strings that are empty after trimming whitespace
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Struct validates a payload against its struct tags and flattens the first failure
func Struct(v any) error {
	if err := Validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return fmt.Errorf("field %s failed %s validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// todoForm mirrors the create/edit dialog fields
type todoForm struct {
	Title string `validate:"notblank,max=10000"`
}

// ValidateTodoForm validates a todo form before it reaches the controller
func ValidateTodoForm(title string) error {
	if err := Validate.Struct(todoForm{Title: title}); err != nil {
		return ErrTitleRequired
	}
	return nil
}

// ValidateSignupForm validates the signup form: email, password length and confirmation
func ValidateSignupForm(email, password, confirm string) error {
	if err := Validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return ErrInvalidEmail
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
