// utils/normalize.go
package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ukMobileRegex   = regexp.MustCompile(`^07\d{9}$`)
	ukLandlineRegex = regexp.MustCompile(`^0[12]\d{8,9}$`)
	ukE164Regex     = regexp.MustCompile(`^\+44\d{10,11}$`)
	nonDigitRegex   = regexp.MustCompile(`\D`)
)

// ParseUKDate parses DD/MM/YYYY into a UTC midnight time. Anything that
// is not exactly three numeric slash-separated parts, or that names a
// calendar date which does not exist (31/02/2011), returns nil.
func ParseUKDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}

	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 {
		return nil
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31/02 becomes 03/03), so a
	// round-trip mismatch means the calendar date never existed.
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return nil
	}
	return &d
}

// ParseMoney parses a monetary field, treating empty or unparseable
// values as zero. Never returns an error.
func ParseMoney(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, "£")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// NormalizePhone converts UK phone numbers to E.164. Rules are tried in
// order against the raw input first, then against a digits-only copy.
// Returns "" when no rule classifies the number.
func NormalizePhone(raw string) string {
	p := strings.TrimSpace(raw)
	if out := classifyUKPhone(p); out != "" {
		return out
	}
	if ukE164Regex.MatchString(p) {
		return p
	}

	stripped := nonDigitRegex.ReplaceAllString(p, "")
	return classifyUKPhone(stripped)
}

func classifyUKPhone(p string) string {
	if ukMobileRegex.MatchString(p) || ukLandlineRegex.MatchString(p) {
		return "+44" + p[1:]
	}
	return ""
}

// LowerTrim lower-cases and trims a value, used for email comparisons.
func LowerTrim(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeRegistration upper-cases and strips all whitespace from a
// vehicle registration. This is the join key between documents and
// vehicles, so every comparison must go through it.
func NormalizeRegistration(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
