package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var agencyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateAgencyID validates agency ID format
func ValidateAgencyID(agency string) error {
	if agency == "" {
		return fmt.Errorf("agency ID cannot be empty")
	}
	if !agencyPattern.MatchString(agency) {
		return fmt.Errorf("invalid agency ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateDays clamps the look-ahead window of due-unit queries.
func ValidateDays(days int) int {
	if days <= 0 {
		return 30 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC).
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn is ParseDate with plain dates taken as midnight in loc.
// RFC 3339 input carries its own offset and is returned in UTC.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date cannot be empty")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or RFC 3339)", s)
	}
	return t.UTC(), nil
}

// ValidateRange rejects inverted or excessively long windows.
func ValidateRange(start, end time.Time, max time.Duration) error {
	if end.Before(start) {
		return fmt.Errorf("end date is before start date")
	}
	if max > 0 && end.Sub(start) > max {
		return fmt.Errorf("date range exceeds %d days", int(max.Hours()/24))
	}
	return nil
}
