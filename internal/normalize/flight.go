package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	flightShape = regexp.MustCompile(`^[A-Z0-9]{2}\d{3,4}$`)
	shortFlight = regexp.MustCompile(`^([A-Z0-9]{2})(\d{1,2})$`)
)

// FlightNumber canonicalizes a flight number: whitespace removed, uppercased,
// and a one- or two-digit numeric suffix zero-padded to three digits
// ("ci 73" -> "CI073"). Absent input yields "". The result is not validated;
// see ValidFlightNumber.
func FlightNumber(v any) string {
	s := strings.ToUpper(StripSpace(text(v)))
	if m := shortFlight.FindStringSubmatch(s); m != nil {
		s = m[1] + strings.Repeat("0", 3-len(m[2])) + m[2]
	}
	return s
}

// ValidFlightNumber reports whether s has the canonical shape: two
// alphanumeric characters followed by three or four digits.
func ValidFlightNumber(s string) bool {
	return flightShape.MatchString(s)
}

// StripSpace removes every whitespace rune from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
