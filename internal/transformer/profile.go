package transformer

import (
	"fmt"

	"fareetl/internal/fare"
)

// OverseasFilter selects rows by the supplier's overseas-supplier flag.
type OverseasFilter int

const (
	// OverseasAny keeps every row.
	OverseasAny OverseasFilter = iota
	// OverseasExcluded keeps rows whose flag is false or absent.
	OverseasExcluded
	// OverseasOnly keeps rows whose flag is true.
	OverseasOnly
)

// Profile describes how one supplier's raw schema maps onto the intermediate
// vocabulary, plus the handful of supplier quirks the cleaning routine honors.
type Profile struct {
	Supplier fare.Supplier

	// Rename maps raw column names to intermediate ones. Unmapped columns
	// pass through unchanged.
	Rename map[string]string

	// Legs is the number of legs per direction the supplier reports.
	Legs int

	// SplitCombinedLegs derives flight number and cabin class from a single
	// "<flight> <cabin>" column per leg.
	SplitCombinedLegs bool

	// CanonicalizeFlights pads flight numbers and drops rows whose flight
	// numbers cannot be canonicalized.
	CanonicalizeFlights bool

	// DatesFromDepartureTime derives the outbound/return dates (and years)
	// from leg 1's departure times rather than from dedicated date columns.
	DatesFromDepartureTime bool

	// CompactCabinAndLuggage strips whitespace from cabin classes and
	// rewrites luggage as "{qty}{unit}".
	CompactCabinAndLuggage bool

	// Backfill guarantees the join key, creation time, and KP columns exist.
	Backfill bool

	Overseas OverseasFilter
}

// legRename adds leg-indexed renames for every leg and direction. Each
// pattern must contain one %d verb for the leg number; an empty pattern is
// skipped.
func legRename(m map[string]string, legs int, field fare.LegField, outbound, ret string) {
	for i := 1; i <= legs; i++ {
		if outbound != "" {
			m[fmt.Sprintf(outbound, i)] = fare.LegColumn(fare.Outbound, field, i)
		}
		if ret != "" {
			m[fmt.Sprintf(ret, i)] = fare.LegColumn(fare.Return, field, i)
		}
	}
}

// ColaProfile is the primary supplier's profile.
func ColaProfile() Profile {
	m := map[string]string{
		"基礎票價":     fare.ColTicketPrice,
		"票價加價成數":   fare.ColTicketPriceMarkup,
		"稅金":       fare.ColTax,
		"稅金加價成數":   fare.ColTaxMarkup,
		"總售價":      fare.ColFinalPrice,
		"票型":       fare.ColNetOrGross,
		"公式類型":     fare.ColTicketRuleType,
		"GDS Type": fare.ColGDSType,
		"折讓百分比":    fare.ColKP,
		"折扣":       fare.ColDiscount,
		"固定金額":     fare.ColActivityFee,
		"建立時間":     fare.ColCreationTime,
	}
	legs := fare.LegsPerDirection
	legRename(m, legs, fare.FieldFlightNumber, "去程航班編號%d", "回程航班編號%d")
	legRename(m, legs, fare.FieldCabinClass, "去程艙等與艙等編碼%d", "回程艙等與艙等編碼%d")
	legRename(m, legs, fare.FieldFlightAndCabin, "去程航班號%d", "回程航班號%d")
	legRename(m, legs, fare.FieldDepartureTime, "去程起飛時間%d", "回程起飛時間%d")
	legRename(m, legs, fare.FieldArrivalTime, "去程降落時間%d", "回程降落時間%d")
	legRename(m, legs, fare.FieldDepartureAirport, "去程起飛機場%d", "回程起飛機場%d")
	legRename(m, legs, fare.FieldArrivalAirport, "去程降落機場%d", "回程降落機場%d")
	legRename(m, legs, fare.FieldAircraft, "去程飛機公司及型號%d", "回程飛機公司及型號%d")
	legRename(m, legs, fare.FieldDuration, "去程飛行時間%d", "回程飛行時間%d")
	legRename(m, legs, fare.FieldLuggage, "去程行李%d", "回程行李%d")

	return Profile{
		Supplier:               fare.Cola,
		Rename:                 m,
		Legs:                   legs,
		SplitCombinedLegs:      true,
		DatesFromDepartureTime: true,
		CompactCabinAndLuggage: true,
		Backfill:               true,
	}
}

// secondaryProfile builds the shared profile of the five secondary
// suppliers, which differ only in where their price and tax land.
func secondaryProfile(s fare.Supplier, overseas OverseasFilter) Profile {
	m := map[string]string{
		"去程日期":  fare.ColOutboundDate,
		"回程日期":  fare.ColReturnDate,
		"票面價格":  s.PriceColumn(),
		"稅金":    s.TaxColumn(),
		"海外供應商": fare.ColOverseasSupplier,
	}
	legs := fare.LegsPerDirection
	legRename(m, legs, fare.FieldFlightNumber, "去程航班編號%d", "回程航班編號%d")
	legRename(m, legs, fare.FieldCabinClass, "去程艙等%d", "回程艙等%d")

	return Profile{
		Supplier:            s,
		Rename:              m,
		Legs:                legs,
		CanonicalizeFlights: true,
		Overseas:            overseas,
	}
}

func SetProfile() Profile      { return secondaryProfile(fare.Set, OverseasAny) }
func LionProfile() Profile     { return secondaryProfile(fare.Lion, OverseasAny) }
func EztravelProfile() Profile { return secondaryProfile(fare.Eztravel, OverseasExcluded) }
func RichProfile() Profile     { return secondaryProfile(fare.Rich, OverseasAny) }

func ForeignSupplierEztravelProfile() Profile {
	return secondaryProfile(fare.ForeignSupplierEztravel, OverseasOnly)
}

// ProfileFor returns the profile registered for s.
func ProfileFor(s fare.Supplier) (Profile, error) {
	switch s {
	case fare.Cola:
		return ColaProfile(), nil
	case fare.Set:
		return SetProfile(), nil
	case fare.Lion:
		return LionProfile(), nil
	case fare.Eztravel:
		return EztravelProfile(), nil
	case fare.ForeignSupplierEztravel:
		return ForeignSupplierEztravelProfile(), nil
	case fare.Rich:
		return RichProfile(), nil
	}
	return Profile{}, fmt.Errorf("no transformer profile for supplier %q", s)
}
