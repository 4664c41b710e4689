package auth

import (
	"strings"

	"github.com/desertthunder/cinex/internal/shared"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ValidationError is a local input failure raised before contacting the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// NormalizeUsername trims the username and replaces each inner whitespace run with an underscore.
func NormalizeUsername(username string) string {
	return strings.Join(strings.Fields(username), "_")
}

// ValidateRegistration checks registration input in order: completeness, confirmation, length.
func ValidateRegistration(username, email, password, confirm string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" || confirm == "" {
		return &ValidationError{Message: "please fill in all fields"}
	}
	if password != confirm {
		return &ValidationError{Field: "password2", Message: "passwords do not match"}
	}
	if len([]rune(password)) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters long"}
	}
	return nil
}

func validateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &ValidationError{Message: "please fill in all fields"}
	}
	return nil
}
