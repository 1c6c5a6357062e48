// Package fare holds the domain vocabulary shared by the transformers, the
// unifier, and the loader: itinerary directions, per-leg column names of the
// intermediate (cleaned) tables, the supplier registry, and the unified
// output record.
package fare

import "fmt"

// LegsPerDirection is the fixed number of flight legs tracked per direction.
const LegsPerDirection = 3

// Direction is one half of a round trip.
type Direction int

const (
	Outbound Direction = iota
	Return
)

// Directions lists both directions in output order.
var Directions = [...]Direction{Outbound, Return}

func (d Direction) String() string {
	if d == Return {
		return "return"
	}
	return "outbound"
}

// prefix is the short column prefix used by the intermediate tables.
func (d Direction) prefix() string {
	if d == Return {
		return "ret"
	}
	return "out"
}

// LegField names one per-leg attribute in the intermediate tables.
type LegField string

const (
	FieldFlightNumber     LegField = "flight_number"
	FieldCabinClass       LegField = "cabin_class"
	FieldDepartureAirport LegField = "departure_airport"
	FieldArrivalAirport   LegField = "arrival_airport"
	FieldDepartureTime    LegField = "departure_time"
	FieldArrivalTime      LegField = "arrival_time"
	FieldAircraft         LegField = "aircraft"
	FieldDuration         LegField = "duration"
	FieldLuggage          LegField = "luggage"

	// FieldFlightAndCabin holds "<flight number> <cabin class>" in one value
	// for suppliers that do not split them.
	FieldFlightAndCabin LegField = "flight_and_cabin"
)

// LegColumn returns the intermediate column name for field of leg i (1-based)
// in direction d, e.g. LegColumn(Outbound, FieldFlightNumber, 1) ==
// "out_flight_number_1".
func LegColumn(d Direction, field LegField, i int) string {
	return fmt.Sprintf("%s_%s_%d", d.prefix(), field, i)
}

// Non-leg intermediate columns.
const (
	ColOutboundDate = "outbound_date"
	ColReturnDate   = "return_date"
	ColOutboundYear = "outbound_year"
	ColReturnYear   = "return_year"

	ColTicketPrice       = "ticket_price"
	ColTicketPriceMarkup = "ticket_price_markup"
	ColTax               = "tax"
	ColTaxMarkup         = "tax_markup"
	ColFinalPrice        = "final_price"
	ColNetOrGross        = "net_or_gross"
	ColTicketRuleType    = "ticket_rule_type"
	ColGDSType           = "gds_type"
	ColKP                = "kp"
	ColDiscount          = "discount"
	ColActivityFee       = "activity_fee"
	ColCreationTime      = "creation_time"
	ColOverseasSupplier  = "overseas_supplier"
)

// FlightNumberColumns lists the six flight-number columns (outbound 1-3, then
// return 1-3).
func FlightNumberColumns() []string {
	return legColumns(FieldFlightNumber)
}

// CabinClassColumns lists the six cabin-class columns (outbound 1-3, then
// return 1-3).
func CabinClassColumns() []string {
	return legColumns(FieldCabinClass)
}

func legColumns(field LegField) []string {
	out := make([]string, 0, 2*LegsPerDirection)
	for _, d := range Directions {
		for i := 1; i <= LegsPerDirection; i++ {
			out = append(out, LegColumn(d, field, i))
		}
	}
	return out
}

// LegIdentityColumns lists the 12 leg-identity join columns: for each
// direction and leg, flight number and cabin class.
func LegIdentityColumns() []string {
	out := make([]string, 0, 4*LegsPerDirection)
	for _, d := range Directions {
		for i := 1; i <= LegsPerDirection; i++ {
			out = append(out, LegColumn(d, FieldFlightNumber, i), LegColumn(d, FieldCabinClass, i))
		}
	}
	return out
}

// DateColumns lists the two join date columns.
func DateColumns() []string {
	return []string{ColOutboundDate, ColReturnDate}
}

// JoinKeyColumns lists the full 14-column composite join key.
func JoinKeyColumns() []string {
	return append(LegIdentityColumns(), DateColumns()...)
}
