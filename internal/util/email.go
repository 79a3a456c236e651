package util

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail trims surrounding whitespace and keeps the address as typed
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// CanonicalEmail is the comparison form of an address
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email is a syntactically valid address
func IsValidEmail(email string) bool {
	if len(email) > 320 {
		return false
	}
	return validate.Var(email, "required,email") == nil
}

// EmailsEqual compares two addresses case-insensitively
func EmailsEqual(a, b string) bool {
	return CanonicalEmail(a) == CanonicalEmail(b)
}
