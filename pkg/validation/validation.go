package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput is the sentinel every validator wraps, so callers
	// can classify failures without matching message text.
	ErrInvalidInput = errors.New("invalid input")

	// Group and resource IDs: alphanumeric with ./:_- separators, 2-128 chars
	targetIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:/-]{1,127}$`)

	// Profile names: lowercase alphanumeric with hyphens/underscores, 1-64 chars
	profileNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateTargetID checks a scaling group or resource identifier as it
// appears in CLI flags, API paths, and config targets.
func ValidateTargetID(id string) error {
	id = SanitizeString(id)

	if id == "" {
		return fmt.Errorf("%w: target id cannot be empty", ErrInvalidInput)
	}
	if len(id) > 128 {
		return fmt.Errorf("%w: target id must not exceed 128 characters", ErrInvalidInput)
	}
	if !targetIDRegex.MatchString(id) {
		return fmt.Errorf("%w: target id must start with an alphanumeric and contain only letters, numbers, and ._:/- separators", ErrInvalidInput)
	}

	return nil
}

// ValidateProfileName checks a configuration profile name.
func ValidateProfileName(name string) error {
	name = SanitizeString(name)

	if name == "" {
		return fmt.Errorf("%w: profile name cannot be empty", ErrInvalidInput)
	}
	if !profileNameRegex.MatchString(name) {
		return fmt.Errorf("%w: profile name must be lowercase alphanumeric with hyphens or underscores", ErrInvalidInput)
	}

	return nil
}

// ValidateUsername checks an API username.
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", ErrInvalidInput)
	}
	if len(username) > 50 {
		return fmt.Errorf("%w: username must not exceed 50 characters", ErrInvalidInput)
	}

	return nil
}
