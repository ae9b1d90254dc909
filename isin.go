package ptfs

import (
	"fmt"
	"regexp"
	"strings"
)

// isinRegex checks for the basic structure: 2 letters, 9 alphanumeric, 1 digit.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ISIN is an International Securities Identification Number (ISO 6166).
//
// An ISIN is 12 characters long: a 2 letters country prefix, 9 alphanumeric
// characters, and a trailing check digit computed with a variation of the
// Luhn algorithm over the letter-expanded code.
//
// Values of this type are meant to be created by [ParseISIN], or to be
// validated by [ValidateISIN] before use.
type ISIN string

// ParseISIN returns s as an ISIN, or an error if s is not a valid ISIN.
func ParseISIN(s string) (ISIN, error) {
	if err := ValidateISIN(s); err != nil {
		return "", fmt.Errorf("invalid ISIN %q: %w", s, err)
	}
	return ISIN(s), nil
}

// String implements the fmt.Stringer interface.
func (i ISIN) String() string { return string(i) }

// Country returns the 2 letters country prefix.
func (i ISIN) Country() string {
	if len(i) < 2 {
		return ""
	}
	return string(i[:2])
}

// IsValidISIN reports whether isin is a valid ISIN. It never panics.
func IsValidISIN(isin string) bool { return ValidateISIN(isin) == nil }

// ValidateISIN checks if a string is a validly formatted ISIN.
// It returns nil if valid, or a descriptive error if invalid.
func ValidateISIN(isin string) error {
	// 1. Length validation
	if len(isin) != 12 {
		return fmt.Errorf("invalid length: must be 12 characters, got %d", len(isin))
	}

	// 2. Country prefix
	for _, c := range isin[:2] {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("invalid country prefix %q: must be 2 uppercase letters", isin[:2])
		}
	}

	// 3. Format validation
	if !isinRegex.MatchString(isin) {
		return fmt.Errorf("invalid format: must be 2 uppercase letters, 9 alphanumeric chars, and 1 digit")
	}

	// 4. Validate the check digit
	expected := isinCheckDigit(isin[:11])
	actual := int(isin[11] - '0')
	if expected != actual {
		return fmt.Errorf("invalid check digit: expected %d, got %d", expected, actual)
	}
	return nil
}

// isinCheckDigit computes the check digit of the first 11 characters of an ISIN.
// body must only contain [A-Z0-9].
func isinCheckDigit(body string) int {
	// Convert letters to numbers: A=10, B=11, ..., Z=35.
	var digits strings.Builder
	for _, c := range body {
		if c >= 'A' && c <= 'Z' {
			fmt.Fprintf(&digits, "%d", c-'A'+10)
		} else {
			digits.WriteRune(c)
		}
	}

	// Luhn, from the rightmost digit: positions 0, 2, 4... are doubled.
	sum := 0
	numeral := digits.String()
	for i := 0; i < len(numeral); i++ {
		d := int(numeral[len(numeral)-1-i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}
