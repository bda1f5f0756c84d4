// Package uuid generates and checks the random identifiers used for photo
// records and sessions.
package uuid

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Canonical lowercase v4 form: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx, y in [89ab].
var v4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// New generates a new UUID v4 string.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether s is a canonical lowercase UUID v4.
func IsValid(s string) bool {
	return v4Pattern.MatchString(s)
}

// Validate returns an error if s is not a canonical UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
