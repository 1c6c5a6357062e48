package fare

import (
	"fmt"

	"fareetl/pkg/records"
)

// Leg is one flight segment of a unified itinerary. Empty strings and nil
// pointers mean the attribute is absent.
type Leg struct {
	FlightNumber     string
	CabinClass       string
	Airline          string
	DepartureAirport string
	ArrivalAirport   string
	DepartureTime    string // HH:MM
	ArrivalTime      string // HH:MM
	Aircraft         any
	DurationMinutes  *int
	LuggageValue     *float64
	LuggageUnit      string
}

// Quote is one supplier's independent price and tax for an itinerary.
type Quote struct {
	Price any
	Tax   any
}

// UnifiedRecord is one output row: the primary supplier's itinerary with the
// secondary suppliers' quotes attached.
type UnifiedRecord struct {
	Legs [2][LegsPerDirection]Leg // indexed by Direction

	OutboundDate any // YYYY/MM/DD
	ReturnDate   any

	OutboundTransfers int
	ReturnTransfers   int

	GDSType           any
	TicketPrice       any
	TicketPriceMarkup any
	Tax               any
	TaxMarkup         any
	FinalPrice        any

	Quotes map[Supplier]Quote

	NetOrGross     any
	TicketRuleType any
	KP             any
	Discount       any
	ActivityFee    any
	CreationTime   any
}

// Output column names that are referenced outside this package.
const (
	OutGDSType             = "gds_type"
	OutCreationTime        = "creation_time"
	OutDepartureFlightNum1 = "departure_flight_number_1"
	OutReturnFlightNum1    = "return_flight_number_1"
)

func outName(d Direction) string {
	if d == Return {
		return "return"
	}
	return "departure"
}

// visit emits every output column in destination-table order.
func (u *UnifiedRecord) visit(emit func(column string, v any)) {
	legCol := func(d Direction, name string, i int) string {
		return fmt.Sprintf("%s_%s_%d", outName(d), name, i)
	}
	eachLeg := func(fn func(i int)) {
		for i := 1; i <= LegsPerDirection; i++ {
			fn(i)
		}
	}
	out, ret := &u.Legs[Outbound], &u.Legs[Return]

	eachLeg(func(i int) {
		emit(legCol(Outbound, "airline", i), out[i-1].Airline)
		emit(legCol(Return, "airline", i), ret[i-1].Airline)
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "airport", i), out[i-1].DepartureAirport)
		emit(legCol(Outbound, "arrival_airport", i), out[i-1].ArrivalAirport)
		emit(legCol(Return, "airport", i), ret[i-1].DepartureAirport)
		emit(legCol(Return, "arrival_airport", i), ret[i-1].ArrivalAirport)
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "flight_time", i), out[i-1].DepartureTime)
		emit(legCol(Outbound, "arrival_flight_time", i), out[i-1].ArrivalTime)
		emit(legCol(Return, "flight_time", i), ret[i-1].DepartureTime)
		emit(legCol(Return, "arrival_flight_time", i), ret[i-1].ArrivalTime)
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "aircraft_type", i), out[i-1].Aircraft)
		emit(legCol(Return, "aircraft_type", i), ret[i-1].Aircraft)
	})
	eachLeg(func(i int) {
		for _, d := range Directions {
			leg := &u.Legs[d][i-1]
			emit(legCol(d, "luggage_value", i), floatOrNil(leg.LuggageValue))
			emit(legCol(d, "luggage_unit", i), leg.LuggageUnit)
		}
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "flight_duration", i), intOrNil(out[i-1].DurationMinutes))
		emit(legCol(Return, "flight_duration", i), intOrNil(ret[i-1].DurationMinutes))
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "flight_number", i), out[i-1].FlightNumber)
		emit(legCol(Return, "flight_number", i), ret[i-1].FlightNumber)
	})
	eachLeg(func(i int) {
		emit(legCol(Outbound, "cabin_class", i), out[i-1].CabinClass)
		emit(legCol(Return, "cabin_class", i), ret[i-1].CabinClass)
	})

	emit("departure_transfer_count", u.OutboundTransfers)
	emit("return_transfer_count", u.ReturnTransfers)
	emit(OutGDSType, u.GDSType)
	emit("ticket_price", u.TicketPrice)
	emit("ticket_price_markup_percentage", u.TicketPriceMarkup)
	emit("tax", u.Tax)
	emit("tax_markup_percentage", u.TaxMarkup)
	emit("final_price", u.FinalPrice)
	emit("departure_date", u.OutboundDate)
	emit("return_date", u.ReturnDate)
	emit(OutCreationTime, u.CreationTime)

	for _, s := range quoteOrder {
		q := u.Quotes[s]
		emit(s.PriceColumn(), q.Price)
		emit(s.TaxColumn(), q.Tax)
	}

	emit("net_price_or_ticket_price", u.NetOrGross)
	emit("ticket_rule_type", u.TicketRuleType)
	emit("kp", u.KP)
	emit("discount", u.Discount)
	emit("activity_fee_adjustment", u.ActivityFee)
}

// Record flattens u into an output row keyed by destination column name.
func (u *UnifiedRecord) Record() records.Record {
	rec := make(records.Record, len(outputColumns))
	u.visit(func(column string, v any) { rec[column] = v })
	return rec
}

var outputColumns = func() []string {
	var cols []string
	(&UnifiedRecord{}).visit(func(column string, _ any) { cols = append(cols, column) })
	return cols
}()

// OutputColumns returns the destination table's column names in order.
func OutputColumns() []string {
	return append([]string(nil), outputColumns...)
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
