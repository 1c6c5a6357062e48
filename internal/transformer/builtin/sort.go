package builtin

import (
	"math"
	"sort"
	"strconv"
	"time"

	"fareetl/pkg/records"
)

// SortByCreation orders records by Column, newest first. The sort is stable;
// records whose timestamp cannot be read sort last.
type SortByCreation struct {
	Column string
}

func (s SortByCreation) Apply(in []records.Record) []records.Record {
	keys := make([]float64, len(in))
	for i, r := range in {
		keys[i] = epoch(r[s.Column])
	}
	idx := make([]int, len(in))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if math.IsNaN(kb) {
			return !math.IsNaN(ka)
		}
		return ka > kb
	})
	out := make([]records.Record, len(in))
	for i, j := range idx {
		out[i] = in[j]
	}
	return out
}

// epoch reads a creation timestamp as seconds since the epoch, or NaN.
func epoch(v any) float64 {
	switch t := v.(type) {
	case time.Time:
		return float64(t.UnixNano()) / float64(time.Second)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return float64(ts.UnixNano()) / float64(time.Second)
			}
		}
	}
	return math.NaN()
}
