package validation

import (
	"errors"
	"strings"
)

// ValidateNationalID checks the 12-digit Aadhaar number used as the citizen login id.
func ValidateNationalID(id string) error {
	id = strings.TrimSpace(id)

	if id == "" {
		return errors.New("aadhaar number is required")
	}

	if len(id) != 12 || !digitsOnly(id) {
		return errors.New("aadhaar number must be 12 digits")
	}

	return nil
}

// ValidateMobile checks a 10-digit Indian mobile number, optionally prefixed with +91.
func ValidateMobile(mobile string) error {
	mobile = strings.TrimPrefix(strings.TrimSpace(mobile), "+91")

	if mobile == "" {
		return errors.New("mobile number is required")
	}

	if len(mobile) != 10 || !digitsOnly(mobile) {
		return errors.New("mobile number must be 10 digits")
	}

	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
