package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordRunes = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

var ErrWeakPassword = errors.New("password is too common, please choose a stronger one")

// Fragments seen in leaked password lists, plus local favourites.
var weakFragments = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
	"aadhaar", "india123", "resquick",
}

// ValidatePassword checks a citizen password before it is hashed.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return fmt.Errorf("password must be at least %d characters", minPasswordRunes)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	}

	lower := strings.ToLower(password)
	weak := slices.ContainsFunc(weakFragments, func(f string) bool {
		return strings.Contains(lower, f)
	})
	first, _ := utf8.DecodeRuneInString(password)
	if weak || strings.Count(password, string(first)) == utf8.RuneCountInString(password) {
		return ErrWeakPassword
	}

	return nil
}
