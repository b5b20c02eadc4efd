package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateTenantHandle validates the opaque widget handle.
func ValidateTenantHandle(handle string) error {
	if len(handle) == 0 {
		return errors.New("tenant handle cannot be empty")
	}
	if len(handle) > 64 {
		return errors.New("tenant handle exceeds maximum length")
	}
	for _, r := range handle {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return errors.New("tenant handle contains invalid characters")
		}
	}
	return nil
}

// ValidateUserInput validates a conversational utterance.
func ValidateUserInput(input string) error {
	if len(input) == 0 {
		return errors.New("user input cannot be empty")
	}
	if len(input) > 8192 {
		return errors.New("user input exceeds maximum length")
	}
	if !utf8.ValidString(input) {
		return errors.New("user input must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates an optional client session identifier.
func ValidateSessionID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > 128 {
		return errors.New("session ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("session ID must be valid UTF-8")
	}
	return nil
}
