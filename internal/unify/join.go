package unify

import (
	"fareetl/internal/fare"
	"fareetl/pkg/records"
)

// Tables holds one cleaned table per supplier.
type Tables map[fare.Supplier][]records.Record

// joined is one primary row after the left join: the primary row with its
// key columns replaced by their normalized values, and the quotes of every
// secondary supplier that matched.
type joined struct {
	row    records.Record
	quotes map[fare.Supplier]fare.Quote
}

// JoinStats counts primary rows and matches per secondary supplier.
type JoinStats struct {
	Primary int
	Matched map[fare.Supplier]int
}

// quoteIndex maps a normalized join key to the first secondary row with
// that key.
type quoteIndex map[string]fare.Quote

func buildIndex(s fare.Supplier, rows []records.Record) quoteIndex {
	idx := make(quoteIndex, len(rows))
	price, tax := s.PriceColumn(), s.TaxColumn()
	for _, r := range rows {
		key, _ := joinKey(r)
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = fare.Quote{Price: r[price], Tax: r[tax]}
	}
	return idx
}

// join left-joins every secondary table onto the primary table by the
// normalized 14-column key. Each primary row yields exactly one joined row.
// Only the secondaries' namespaced price and tax are taken; everything else
// comes from the primary row.
func join(t Tables) ([]joined, JoinStats) {
	primary := t[fare.Primary]
	stats := JoinStats{Primary: len(primary), Matched: make(map[fare.Supplier]int)}

	indexes := make(map[fare.Supplier]quoteIndex, len(fare.Secondaries))
	for _, s := range fare.Secondaries {
		indexes[s] = buildIndex(s, t[s])
	}

	out := make([]joined, 0, len(primary))
	for _, r := range primary {
		row := r.Clone()
		key, vals := joinKey(row)
		for i, k := range keyColumns {
			row[k.name] = vals[i]
		}
		j := joined{row: row, quotes: make(map[fare.Supplier]fare.Quote)}
		for _, s := range fare.Secondaries {
			if q, ok := indexes[s][key]; ok {
				j.quotes[s] = q
				stats.Matched[s]++
			}
		}
		out = append(out, j)
	}
	return out, stats
}
