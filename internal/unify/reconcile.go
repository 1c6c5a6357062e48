package unify

import (
	"math"
	"math/big"
	"strings"

	"fareetl/internal/fare"
	"fareetl/internal/normalize"
	"fareetl/pkg/records"
)

// reconcile shapes one joined row into the output record.
func reconcile(j joined) fare.UnifiedRecord {
	r := j.row
	u := fare.UnifiedRecord{
		OutboundDate: withYear(r[fare.ColOutboundYear], r[fare.ColOutboundDate]),
		ReturnDate:   withYear(r[fare.ColReturnYear], r[fare.ColReturnDate]),

		GDSType:           r[fare.ColGDSType],
		TicketPrice:       r[fare.ColTicketPrice],
		TicketPriceMarkup: r[fare.ColTicketPriceMarkup],
		Tax:               r[fare.ColTax],
		TaxMarkup:         r[fare.ColTaxMarkup],
		FinalPrice:        r[fare.ColFinalPrice],

		NetOrGross:     r[fare.ColNetOrGross],
		TicketRuleType: r[fare.ColTicketRuleType],
		KP:             r[fare.ColKP],
		Discount:       r[fare.ColDiscount],
		ActivityFee:    r[fare.ColActivityFee],
		CreationTime:   r[fare.ColCreationTime],

		Quotes: make(map[fare.Supplier]fare.Quote, len(j.quotes)),
	}

	for _, d := range fare.Directions {
		legs := &u.Legs[d]
		for i := range legs {
			legs[i] = reconcileLeg(r, d, i+1)
		}
	}
	u.OutboundTransfers = transfers(&u.Legs[fare.Outbound])
	u.ReturnTransfers = transfers(&u.Legs[fare.Return])

	for s, q := range j.quotes {
		u.Quotes[s] = fare.Quote{Price: wholeNumber(q.Price), Tax: wholeNumber(q.Tax)}
	}
	return u
}

func reconcileLeg(r records.Record, d fare.Direction, i int) fare.Leg {
	col := func(f fare.LegField) any { return r[fare.LegColumn(d, f, i)] }

	leg := fare.Leg{
		FlightNumber:     records.Text(col(fare.FieldFlightNumber)),
		CabinClass:       records.Text(col(fare.FieldCabinClass)),
		DepartureAirport: firstToken(col(fare.FieldDepartureAirport)),
		ArrivalAirport:   firstToken(col(fare.FieldArrivalAirport)),
		DepartureTime:    normalize.TimeHHMM(col(fare.FieldDepartureTime)),
		ArrivalTime:      normalize.TimeHHMM(col(fare.FieldArrivalTime)),
		Aircraft:         col(fare.FieldAircraft),
	}
	leg.Airline = normalize.AirlineCode(leg.FlightNumber)
	if m, ok := normalize.DurationMinutes(col(fare.FieldDuration)); ok {
		leg.DurationMinutes = &m
	}
	if qty, unit, ok := normalize.SplitLuggage(col(fare.FieldLuggage)); ok {
		leg.LuggageValue = &qty
		leg.LuggageUnit = unit
	}
	return leg
}

// transfers is the number of connections in one direction: legs with a
// non-blank flight number, minus one, never below zero.
func transfers(legs *[fare.LegsPerDirection]fare.Leg) int {
	n := 0
	for _, l := range legs {
		if strings.TrimSpace(l.FlightNumber) != "" {
			n++
		}
	}
	return max(n-1, 0)
}

// firstToken returns the first whitespace-delimited token, e.g. the airport
// code of "TPE 桃園國際機場".
func firstToken(v any) string {
	fields := strings.Fields(records.Text(v))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// withYear reattaches a tracked year to an MM/DD date. The result is absent
// when either part is missing.
func withYear(year, monthDay any) any {
	y := strings.TrimSpace(records.Text(year))
	md := strings.TrimSpace(records.Text(monthDay))
	if y == "" || md == "" {
		return nil
	}
	return y + "/" + md
}

// wholeNumber truncates finite numbers to int64. Non-finite numbers and
// non-numeric values pass through unchanged.
func wholeNumber(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return t
		}
		return int64(t)
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return t
		}
		return int64(f)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case *big.Rat:
		if t == nil {
			return nil
		}
		f, _ := t.Float64()
		return int64(f)
	}
	return v
}
