package model

import (
	"errors"
	"strings"
)

// ErrInvalidSensitivity is returned when a sensitivity string is not one of
// light, medium, or deep.
var ErrInvalidSensitivity = errors.New("invalid sensitivity: must be light, medium, or deep")

// Sensitivity selects how aggressively a scan flags content and whether
// verification consults external sources.
//
//   - SensitivityLight flags only outright-false claims.
//   - SensitivityMedium also flags biased or manipulative language.
//   - SensitivityDeep behaves like medium and additionally fetches
//     supporting or refuting sources during verification.
type Sensitivity string

const (
	// SensitivityLight is the least aggressive scan tier.
	SensitivityLight Sensitivity = "light"
	// SensitivityMedium flags bias and manipulation in addition to falsehoods.
	SensitivityMedium Sensitivity = "medium"
	// SensitivityDeep is the most thorough tier; verification at this tier
	// issues an external search for corroborating sources.
	SensitivityDeep Sensitivity = "deep"
)

// ParseSensitivity converts a user-supplied string into a Sensitivity.
// Matching is case-insensitive. An empty string defaults to light, which
// mirrors the original scan slider's default position.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "light":
		return SensitivityLight, nil
	case "medium":
		return SensitivityMedium, nil
	case "deep":
		return SensitivityDeep, nil
	default:
		return "", ErrInvalidSensitivity
	}
}

// String returns the tier name.
func (s Sensitivity) String() string {
	return string(s)
}

// FlagsBias reports whether this tier flags biased or manipulative
// language in addition to outright-false claims.
func (s Sensitivity) FlagsBias() bool {
	return s == SensitivityMedium || s == SensitivityDeep
}

// SearchesSources reports whether verification at this tier consults an
// external search API for supporting or refuting sources.
func (s Sensitivity) SearchesSources() bool {
	return s == SensitivityDeep
}
