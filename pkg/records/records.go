// Package records defines the row shape passed between pipeline stages.
//
// A Record is an open-ended set of named fields. Warehouse extracts, cleaned
// supplier tables, and the flattened output rows all use it, so stages can
// add, rename, or drop columns without a schema migration in Go code.
package records

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Record is a single row keyed by column name. A missing key and a nil value
// both mean "absent".
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether column exists in r (even when its value is nil).
func (r Record) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Rename moves every column named in m to its new name. Columns not present
// in r are skipped; columns not named in m are left untouched.
func (r Record) Rename(m map[string]string) {
	for from, to := range m {
		v, ok := r[from]
		if !ok || from == to {
			continue
		}
		delete(r, from)
		r[to] = v
	}
}

// IsAbsent reports whether v is nil or a float NaN.
func IsAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// IsBlank reports whether v is absent or a string containing only whitespace.
func IsBlank(v any) bool {
	if IsAbsent(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Text renders v as a string. Absent values render as "". Times render in
// "2006-01-02 15:04:05" so that date/time normalizers see an ISO-like layout.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return fmt.Sprint(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
