// Package unify joins the six cleaned supplier tables into the unified fare
// table.
//
// The primary supplier's rows anchor a left join on a normalized 14-column
// key (flight number and cabin class for three legs in each direction, plus
// the outbound and return dates as MM/DD). Secondary suppliers contribute
// only their namespaced price and tax. Rows that no secondary supplier
// corroborates with a tax value are dropped.
package unify

import (
	"time"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/internal/transformer"
	"fareetl/internal/transformer/builtin"
	"fareetl/pkg/records"
)

// Stats summarizes one Unify call.
type Stats struct {
	JoinStats
	NoTax  int
	Output int
}

// Unifier runs the join and output shaping.
type Unifier struct {
	Log logger.Logger
}

// Unify produces output rows in destination column order. Tables may omit
// suppliers; a missing table matches nothing.
func (u Unifier) Unify(t Tables) ([]records.Record, Stats) {
	log := u.Log
	if log == nil {
		log = logger.Default()
	}
	start := time.Now()

	rows, js := join(t)
	stats := Stats{JoinStats: js}

	unified := make([]fare.UnifiedRecord, 0, len(rows))
	for _, j := range rows {
		unified = append(unified, reconcile(j))
	}
	kept := removeNoTax(unified)
	stats.NoTax = len(unified) - len(kept)

	out := make([]records.Record, 0, len(kept))
	for i := range kept {
		out = append(out, kept[i].Record())
	}
	out = transformer.Chain{builtin.BlankToNull{}}.Apply(out)
	stats.Output = len(out)

	kv := []any{"primary", stats.Primary, "no_tax", stats.NoTax, "output", stats.Output, "elapsed", time.Since(start)}
	for _, s := range fare.Secondaries {
		kv = append(kv, string(s), stats.Matched[s])
	}
	log.Info("unified supplier tables", kv...)
	return out, stats
}

// removeNoTax keeps rows where at least one secondary supplier has a tax.
func removeNoTax(in []fare.UnifiedRecord) []fare.UnifiedRecord {
	out := in[:0]
	for _, u := range in {
		for _, s := range fare.Secondaries {
			if q, ok := u.Quotes[s]; ok && !records.IsAbsent(q.Tax) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}
