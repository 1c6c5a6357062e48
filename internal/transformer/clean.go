package transformer

import (
	"strings"
	"time"

	"fareetl/internal/fare"
	"fareetl/internal/normalize"
	"fareetl/pkg/records"
)

// Cleaner runs the generic cleaning routine for any Profile.
type Cleaner struct {
	// Sink receives dropped rows; nil discards them.
	Sink DiagnosticSink
	// Now stamps backfilled creation times; nil means time.Now.
	Now func() time.Time
}

// Clean maps raw supplier rows onto the intermediate vocabulary. The input is
// not modified; surviving rows are fresh copies in input order.
//
// Steps, in order: overseas filter, rename, leg derivation (combined split or
// flight-number canonicalization), invalid-row drop, date reduction to MM/DD,
// cabin and luggage compaction, backfill.
func (c Cleaner) Clean(p Profile, in []records.Record) []records.Record {
	sink := c.Sink
	if sink == nil {
		sink = discardSink{}
	}

	rows := make([]records.Record, 0, len(in))
	index := make([]int, 0, len(in))
	for i, raw := range in {
		r := raw.Clone()
		r.Rename(p.Rename)
		if !p.Overseas.keep(r) {
			continue
		}
		rows = append(rows, r)
		index = append(index, i)
	}

	if p.SplitCombinedLegs {
		splitCombinedLegs(p.Legs, rows)
	}

	if p.CanonicalizeFlights {
		kept := rows[:0]
		for n, r := range rows {
			if bad, ok := canonicalizeFlights(p.Legs, r); !ok {
				sink.InvalidRow(p.Supplier, index[n], bad)
				continue
			}
			kept = append(kept, r)
		}
		rows = kept
	}

	if p.DatesFromDepartureTime {
		for _, r := range rows {
			datesFromDeparture(r)
		}
	} else {
		for _, r := range rows {
			for _, col := range fare.DateColumns() {
				if v, ok := r[col]; ok {
					r[col] = monthDay(v)
				}
			}
		}
	}

	if p.CompactCabinAndLuggage {
		compactCabin(p.Legs, rows)
		compactLuggage(p.Legs, rows)
	}

	if p.Backfill {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		stamp := float64(now().UnixNano()) / float64(time.Second)
		for _, r := range rows {
			backfill(r, stamp)
		}
	}
	return rows
}

// Bind returns c.Clean(p, ·) as a Transformer.
func (c Cleaner) Bind(p Profile) Transformer {
	return Func(func(in []records.Record) []records.Record { return c.Clean(p, in) })
}

func (f OverseasFilter) keep(r records.Record) bool {
	switch f {
	case OverseasExcluded:
		return !truthy(r[fare.ColOverseasSupplier])
	case OverseasOnly:
		return truthy(r[fare.ColOverseasSupplier])
	}
	return true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "1", "yes":
			return true
		}
	case int64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// splitCombinedLegs replaces each "<flight> <cabin>" column with separate
// flight-number and cabin-class columns. A combined column that is absent
// in every row yields absent legs.
func splitCombinedLegs(legs int, rows []records.Record) {
	for _, d := range fare.Directions {
		for i := 1; i <= legs; i++ {
			combined := fare.LegColumn(d, fare.FieldFlightAndCabin, i)
			flightCol := fare.LegColumn(d, fare.FieldFlightNumber, i)
			cabinCol := fare.LegColumn(d, fare.FieldCabinClass, i)
			if !anyPresent(rows, combined) {
				for _, r := range rows {
					if r.Has(combined) {
						r[flightCol], r[cabinCol] = nil, nil
						delete(r, combined)
					}
				}
				continue
			}
			for _, r := range rows {
				v, ok := r[combined]
				if !ok {
					continue
				}
				delete(r, combined)
				if records.IsAbsent(v) {
					r[flightCol], r[cabinCol] = nil, nil
					continue
				}
				flight, cabin, found := strings.Cut(records.Text(v), " ")
				r[flightCol] = strings.TrimSpace(flight)
				if found {
					r[cabinCol] = cabin
				} else {
					r[cabinCol] = nil
				}
			}
		}
	}
}

// canonicalizeFlights rewrites every flight-number column present in r to
// canonical form. It reports false, with the row's non-empty flight values,
// when any non-empty value does not have the canonical shape.
func canonicalizeFlights(legs int, r records.Record) (map[string]string, bool) {
	valid := true
	for _, d := range fare.Directions {
		for i := 1; i <= legs; i++ {
			col := fare.LegColumn(d, fare.FieldFlightNumber, i)
			v, ok := r[col]
			if !ok {
				continue
			}
			s := normalize.FlightNumber(v)
			r[col] = s
			if s != "" && !normalize.ValidFlightNumber(s) {
				valid = false
			}
		}
	}
	if valid {
		return nil, true
	}
	bad := make(map[string]string)
	for _, d := range fare.Directions {
		for i := 1; i <= legs; i++ {
			col := fare.LegColumn(d, fare.FieldFlightNumber, i)
			if s, ok := r[col].(string); ok && s != "" {
				bad[col] = s
			}
		}
	}
	return bad, false
}

// monthDay reduces an ISO-like date to MM/DD: runes 5..10 with '-' as '/'.
func monthDay(v any) any {
	if records.IsAbsent(v) {
		return nil
	}
	s := []rune(records.Text(v))
	if len(s) <= 5 {
		return ""
	}
	end := min(len(s), 10)
	return strings.ReplaceAll(string(s[5:end]), "-", "/")
}

// datesFromDeparture derives each direction's MM/DD date and year from leg 1
// departure time.
func datesFromDeparture(r records.Record) {
	targets := [...]struct{ date, year string }{
		fare.Outbound: {fare.ColOutboundDate, fare.ColOutboundYear},
		fare.Return:   {fare.ColReturnDate, fare.ColReturnYear},
	}
	for _, d := range fare.Directions {
		v, ok := r[fare.LegColumn(d, fare.FieldDepartureTime, 1)]
		if !ok {
			continue
		}
		t := targets[d]
		ymd := normalize.DateYMD(v)
		if len(ymd) < 10 {
			r[t.date], r[t.year] = "", nil
			continue
		}
		r[t.year] = ymd[:4]
		r[t.date] = ymd[5:10]
	}
}

func compactCabin(legs int, rows []records.Record) {
	for _, d := range fare.Directions {
		for i := 1; i <= legs; i++ {
			col := fare.LegColumn(d, fare.FieldCabinClass, i)
			for _, r := range rows {
				if s, ok := r[col].(string); ok {
					r[col] = normalize.StripSpace(s)
				}
			}
		}
	}
}

// compactLuggage rewrites luggage as "{qty}{unit}" or "". A column absent in
// every row is left alone.
func compactLuggage(legs int, rows []records.Record) {
	for _, d := range fare.Directions {
		for i := 1; i <= legs; i++ {
			col := fare.LegColumn(d, fare.FieldLuggage, i)
			if !anyPresent(rows, col) {
				continue
			}
			for _, r := range rows {
				if r.Has(col) {
					r[col] = normalize.CompactLuggage(normalize.SplitLuggage(r[col]))
				}
			}
		}
	}
}

func backfill(r records.Record, stamp float64) {
	for _, col := range fare.JoinKeyColumns() {
		if !r.Has(col) {
			r[col] = nil
		}
	}
	if !r.Has(fare.ColCreationTime) {
		r[fare.ColCreationTime] = stamp
	}
	if !r.Has(fare.ColKP) {
		r[fare.ColKP] = ""
	}
}

func anyPresent(rows []records.Record, col string) bool {
	for _, r := range rows {
		if v, ok := r[col]; ok && !records.IsAbsent(v) {
			return true
		}
	}
	return false
}
