package unify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fareetl/internal/fare"
	"fareetl/pkg/records"
)

// placeholders are textual renderings of "missing" that count as empty in a
// join key, compared case-insensitively.
var placeholders = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "<na>": {}, "null": {}, "nat": {},
}

var (
	spaceRun      = regexp.MustCompile(`[\s\p{Z}]+`)
	leadingYear   = regexp.MustCompile(`^\s*\d{4}\s*/`)
	trailingYear  = regexp.MustCompile(`/\s*\d{4}\s*$`)
	shortMonthDay = regexp.MustCompile(`^\s*(\d{1,2})\s*/\s*(\d{1,2})\s*$`)
)

type keyKind int

const (
	kindText keyKind = iota
	kindCompact
	kindDate
)

// keyColumn is one component of the composite join key.
type keyColumn struct {
	name string
	kind keyKind
}

// keyColumns is the 14-column join key: 12 leg-identity columns, then the
// two dates.
var keyColumns = func() []keyColumn {
	var cols []keyColumn
	for _, c := range fare.LegIdentityColumns() {
		cols = append(cols, keyColumn{c, kindCompact})
	}
	for _, c := range fare.DateColumns() {
		cols = append(cols, keyColumn{c, kindDate})
	}
	return cols
}()

// NormalizeKeyValue renders one join-key cell in comparable form. Flight
// numbers and cabin classes lose all whitespace; dates become MM/DD when they
// can be read as such and are otherwise left partially normalized.
func NormalizeKeyValue(column string, v any) string {
	kind := kindText
	for _, k := range keyColumns {
		if k.name == column {
			kind = k.kind
			break
		}
	}
	return normalizeKey(kind, v)
}

func normalizeKey(kind keyKind, v any) string {
	s := records.Text(v)
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if _, ok := placeholders[strings.ToLower(s)]; ok {
		return ""
	}
	s = strings.ToUpper(s)
	switch kind {
	case kindCompact:
		s = spaceRun.ReplaceAllString(s, "")
	case kindDate:
		s = monthDayKey(s)
	}
	return s
}

func monthDayKey(s string) string {
	s = strings.NewReplacer(".", "/", "-", "/").Replace(s)
	s = strings.TrimSpace(s)
	s = leadingYear.ReplaceAllString(s, "")
	s = trailingYear.ReplaceAllString(s, "")
	if m := shortMonthDay.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		s = fmt.Sprintf("%02d/%02d", month, day)
	}
	if t, err := time.Parse("01/02", s); err == nil {
		return t.Format("01/02")
	}
	return s
}

// joinKey is the normalized composite key of r, plus the normalized values
// in keyColumns order.
func joinKey(r records.Record) (string, []string) {
	vals := make([]string, len(keyColumns))
	for i, k := range keyColumns {
		vals[i] = normalizeKey(k.kind, r[k.name])
	}
	return strings.Join(vals, "\x1f"), vals
}
