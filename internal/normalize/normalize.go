// Package normalize converts single raw supplier field values into canonical
// representations. Every function is total: unparsable input yields an empty
// or absent result, never an error, so a malformed upstream value degrades
// one field rather than the run.
//
// Inputs are folded to half-width before matching, so full-width digits and
// Latin letters ("ＣＩ７３", "２５公斤") parse like their ASCII forms.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/width"

	"fareetl/pkg/records"
)

var (
	leadingLetters = regexp.MustCompile(`^[A-Za-z]+`)
	bareHHMM       = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	anyHHMM        = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	durationParts  = regexp.MustCompile(`(?:(\d+)\s*days\s*)?(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	allDigits      = regexp.MustCompile(`^\d+$`)
	firstNumber    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	numberNoise    = regexp.MustCompile(`[\d\s.]+`)
)

// Layouts tried, in order, before falling back to substring matching or
// fuzzy parsing.
var (
	timeLayouts = []string{"2006-01-02 15:04:05", "2006/01/02 15:04", "2006-01-02 15:04"}
	dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02", "2006/01/02 15:04", "2006/01/02"}
)

// Luggage units.
const (
	UnitPiece    = "件"
	UnitKilogram = "公斤"
)

// text renders v as trimmed, half-width text.
func text(v any) string {
	return strings.TrimSpace(width.Fold.String(records.Text(v)))
}

// AirlineCode returns the uppercased leading alphabetic run of a flight
// number ("CI073" -> "CI"), or "" when v is not a non-empty string or has no
// leading letters.
func AirlineCode(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return ""
	}
	return strings.ToUpper(leadingLetters.FindString(s))
}

// TimeHHMM normalizes a time-bearing value to zero-padded 24-hour "HH:MM".
// Full datetimes are tried first, then a bare "H:MM", then any "H:MM"
// substring. It returns "" when nothing matches.
func TimeHHMM(v any) string {
	s := text(v)
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	if m := bareHHMM.FindStringSubmatch(s); m != nil {
		return padHHMM(m[1], m[2])
	}
	if m := anyHHMM.FindStringSubmatch(s); m != nil {
		return padHHMM(m[1], m[2])
	}
	return ""
}

func padHHMM(h, m string) string {
	if len(h) == 1 {
		h = "0" + h
	}
	return h + ":" + m
}

// DateYMD normalizes a date or datetime value to "YYYY/MM/DD". Fixed layouts
// are tried in order before a fuzzy parse; "" is returned on total failure.
func DateYMD(v any) string {
	s := text(v)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006/01/02")
		}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.Format("2006/01/02")
	}
	return ""
}

// DurationMinutes converts a duration value into whole minutes. It accepts
// "<N> days HH:MM[:SS]" and "HH:MM[:SS]" (seconds >= 30 round the minute up),
// a digits-only string taken as minutes, or a number truncated to int. ok is
// false when nothing parses.
func DurationMinutes(v any) (minutes int, ok bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return truncate(float64(n))
	case float64:
		return truncate(n)
	case time.Duration:
		return DurationMinutes(formatClock(n))
	}

	s := text(v)
	if s == "" {
		return 0, false
	}
	if m := durationParts.FindStringSubmatch(s); m != nil {
		days := atoi(m[1])
		total := days*24*60 + atoi(m[2])*60 + atoi(m[3])
		if atoi(m[4]) >= 30 {
			total++
		}
		return total, true
	}
	if allDigits.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

func truncate(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// formatClock renders d like "0 days 02:05:00".
func formatClock(d time.Duration) string {
	sec := int64(d / time.Second)
	days := sec / 86400
	sec %= 86400
	return strconv.FormatInt(days, 10) + " days " +
		pad2(sec/3600) + ":" + pad2(sec%3600/60) + ":" + pad2(sec%60)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// SplitLuggage parses a luggage allowance such as "1件" or "25 公斤" into a
// quantity and a unit. The quantity is the first numeric run; the unit is
// UnitPiece or UnitKilogram (kg in any case), or "" when the remaining text
// names neither. ok is false when no number is present.
func SplitLuggage(v any) (qty float64, unit string, ok bool) {
	s := text(v)
	if s == "" {
		return 0, "", false
	}
	rest := numberNoise.ReplaceAllString(s, "")
	switch {
	case strings.Contains(rest, UnitPiece):
		unit = UnitPiece
	case strings.Contains(rest, UnitKilogram), strings.Contains(strings.ToLower(rest), "kg"):
		unit = UnitKilogram
	}
	num := firstNumber.FindString(s)
	if num == "" {
		return 0, unit, false
	}
	qty, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, unit, false
	}
	return qty, unit, true
}

// CompactLuggage renders a parsed luggage allowance as "{qty}{unit}", with
// whole quantities printed without a decimal point ("1件", "25公斤", "1.5公斤").
// It returns "" when ok is false.
func CompactLuggage(qty float64, unit string, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(qty, 'f', -1, 64) + unit
}
