package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateName validates an applicant or account name
func ValidateName(name string) error {
	return ValidateText("name", name, 100)
}

// ValidateText requires a non-blank value of at most max characters.
func ValidateText(field, value string, max int) error {
	trimmed := strings.TrimSpace(value)

	if trimmed == "" {
		return fmt.Errorf("%s is required", field)
	}

	if len([]rune(trimmed)) > max {
		return fmt.Errorf("%s is too long (max %d characters)", field, max)
	}

	return nil
}

// ValidateCoordinate accepts an empty value or a decimal degree within limit.
func ValidateCoordinate(value string, limit float64) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	var f float64
	if _, err := fmt.Sscanf(value, "%g", &f); err != nil {
		return errors.New("coordinate must be a decimal number")
	}
	if f < -limit || f > limit {
		return fmt.Errorf("coordinate must be between -%g and %g", limit, limit)
	}

	return nil
}
