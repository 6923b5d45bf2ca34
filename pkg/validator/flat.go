package validator

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidFlatNumber indicates a flat number is not of the form A101
var ErrInvalidFlatNumber = errors.New("flat number must be a block letter followed by floor and unit, e.g. A101")

var flatRegex = regexp.MustCompile(`^[A-Z][1-9]\d{2}$`)

// NormalizeFlatNumber trims and upper-cases a flat number and checks its shape.
// Whether the flat exists is decided by the flat registry, not here.
func NormalizeFlatNumber(flat string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(flat))
	if !flatRegex.MatchString(normalized) {
		return "", ErrInvalidFlatNumber
	}
	return normalized, nil
}
