package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Named format validators referenced by format rules. Values reaching these
// are already trimmed and known to be non-empty.
var formatValidators = map[string]func(string) bool{
	"email":      validEmail,
	"phone":      validPhone,
	"ssn_masked": validMaskedSSN,
	"monetary":   validMonetary,
	"date":       validDate,
}

func KnownFormat(name string) bool {
	_, ok := formatValidators[name]
	return ok
}

var (
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	maskedSSNPattern = regexp.MustCompile(`^(?:\*{3}|X{3}|x{3})-?(?:\*{2}|X{2}|x{2})-?\d{4}$`)
	monetaryPattern  = regexp.MustCompile(`^\$?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?$|^\$?\d+(?:\.\d{1,2})?$`)
	nonDigitPattern  = regexp.MustCompile(`[^\d]`)
)

func validEmail(value string) bool {
	return emailPattern.MatchString(value)
}

func validPhone(value string) bool {
	digits := nonDigitPattern.ReplaceAllString(value, "")
	return len(digits) >= 10 && len(digits) <= 11
}

// validMaskedSSN accepts redacted SSNs only (e.g. ***-**-1234); storing the
// full number is itself a compliance problem.
func validMaskedSSN(value string) bool {
	return maskedSSNPattern.MatchString(value)
}

func validMonetary(value string) bool {
	return monetaryPattern.MatchString(strings.TrimSpace(value))
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func validDate(value string) bool {
	_, ok := parseDate(value)
	return ok
}

func parseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// parseAmount reads a numeric or monetary value, tolerating a currency
// symbol and thousands separators.
func parseAmount(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
