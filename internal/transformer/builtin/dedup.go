// Package builtin contains record-level transformers applied to the unified
// fare table before it is loaded.
//
// DeDup collapses duplicate records by a key and chooses a winner according
// to a policy:
//
//   - "keep-first"   : keep the earliest occurrence in the batch
//   - "keep-last"    : keep the latest occurrence in the batch (default)
//   - "most-complete": keep the record that has the most non-empty fields;
//     ties break by "keep-last"
//
// The key is either an explicit column list (Keys) or every column except
// those listed in Except. The latter is how re-ingested itineraries are
// collapsed: rows that differ only in creation time are duplicates. Run it
// after SortByCreation so "keep-first" keeps the newest row.
package builtin

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"fareetl/pkg/records"
)

// DeDup implements a configurable, in-memory de-duplication policy.
type DeDup struct {
	// Keys are the field names that form the business key. A record missing
	// any of them passes through untouched.
	Keys []string

	// Except, used when Keys is empty, keys on every column of the record
	// other than these.
	Except []string

	// Policy selects the winner among duplicates: "keep-first", "keep-last",
	// or "most-complete" (default is "keep-last").
	Policy string

	// PreferFields add weight in "most-complete" selection when non-empty.
	PreferFields []string
}

// Apply returns a new slice holding the winning record of each key, in the
// winners' original order, followed by pass-through records.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || (len(d.Keys) == 0 && len(d.Except) == 0) {
		return in
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}

	type slot struct {
		rec   records.Record
		index int
		score int
	}

	prefer := make(map[string]struct{}, len(d.PreferFields))
	for _, f := range d.PreferFields {
		prefer[f] = struct{}{}
	}

	scoreOf := func(r records.Record) int {
		score, bonus := 0, 0
		for k, v := range r {
			if records.IsBlank(v) {
				continue
			}
			score++
			if _, ok := prefer[k]; ok {
				bonus++
			}
		}
		return score*10 + bonus
	}

	winners := make(map[xxh3.Uint128]slot, len(in))
	keyed := make([]bool, len(in))
	var buf []byte
	for i, r := range in {
		var key xxh3.Uint128
		var ok bool
		buf, key, ok = d.fingerprint(buf[:0], r)
		if !ok {
			continue
		}
		keyed[i] = true
		switch policy {
		case "keep-first":
			if _, exists := winners[key]; !exists {
				winners[key] = slot{rec: r, index: i}
			}
		case "most-complete":
			s := slot{rec: r, index: i, score: scoreOf(r)}
			if prev, exists := winners[key]; !exists || s.score >= prev.score {
				winners[key] = s
			}
		default:
			winners[key] = slot{rec: r, index: i}
		}
	}

	picked := make([]slot, 0, len(winners))
	for _, s := range winners {
		picked = append(picked, s)
	}
	sort.Slice(picked, func(a, b int) bool { return picked[a].index < picked[b].index })

	out := make([]records.Record, 0, len(picked))
	for _, s := range picked {
		out = append(out, s.rec)
	}
	for i, r := range in {
		if !keyed[i] {
			out = append(out, r)
		}
	}
	return out
}

// fingerprint hashes the key columns of r. Values are type-tagged so that
// absent, "" and 0 never collide.
func (d DeDup) fingerprint(buf []byte, r records.Record) ([]byte, xxh3.Uint128, bool) {
	cols := d.Keys
	if len(cols) == 0 {
		cols = make([]string, 0, len(r))
		for k := range r {
			if !contains(d.Except, k) {
				cols = append(cols, k)
			}
		}
		sort.Strings(cols)
	}
	for _, c := range cols {
		v, ok := r[c]
		if !ok && len(d.Keys) > 0 {
			return buf, xxh3.Uint128{}, false
		}
		buf = append(buf, c...)
		buf = append(buf, 0x1f)
		buf = appendValue(buf, v)
		buf = append(buf, 0x1e)
	}
	return buf, xxh3.Hash128(buf), true
}

func appendValue(buf []byte, v any) []byte {
	if records.IsAbsent(v) {
		return append(buf, 'n')
	}
	switch t := v.(type) {
	case string:
		buf = append(buf, 's')
		return append(buf, t...)
	case int:
		return binary.BigEndian.AppendUint64(append(buf, 'i'), uint64(t))
	case int64:
		return binary.BigEndian.AppendUint64(append(buf, 'i'), uint64(t))
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return binary.BigEndian.AppendUint64(append(buf, 'i'), uint64(int64(t)))
		}
		return binary.BigEndian.AppendUint64(append(buf, 'f'), math.Float64bits(t))
	case bool:
		if t {
			return append(buf, 'b', 1)
		}
		return append(buf, 'b', 0)
	}
	buf = append(buf, 'x')
	return append(buf, records.Text(v)...)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
