package fare

// Supplier identifies a travel-supplier data source.
type Supplier string

const (
	Cola                    Supplier = "cola"
	Set                     Supplier = "settour"
	Lion                    Supplier = "lion"
	Eztravel                Supplier = "eztravel"
	ForeignSupplierEztravel Supplier = "foreign_supplier_eztravel"
	Rich                    Supplier = "rich"
	// Ezfly has columns in the destination table but no extract feeds it.
	Ezfly Supplier = "ezfly"
)

// Primary is the supplier whose rows anchor the left join.
const Primary = Cola

// Secondaries lists the five corroborating suppliers in join order.
var Secondaries = [...]Supplier{Set, Lion, Eztravel, ForeignSupplierEztravel, Rich}

// PriceColumn returns the supplier-namespaced price column. The primary
// supplier's price lives in ColTicketPrice.
func (s Supplier) PriceColumn() string {
	switch s {
	case Set:
		return "settour_air_tickets_price"
	case Lion:
		return "lion_air_tickets_price"
	case Eztravel:
		return "eztravel_ticket_air_tickets_price"
	case ForeignSupplierEztravel:
		return "foreign_supplier_eztraval_ticket_air_tickets_price"
	case Rich:
		return "rich_mond_air_tickets_price"
	case Ezfly:
		return "ezfly_ticket_price"
	}
	return ColTicketPrice
}

// TaxColumn returns the supplier-namespaced tax column. The primary
// supplier's tax lives in ColTax.
func (s Supplier) TaxColumn() string {
	switch s {
	case Set:
		return "settour_tax"
	case Lion:
		return "lion_tax"
	case Eztravel:
		return "eztravel_tax"
	case ForeignSupplierEztravel:
		return "foreign_supplier_eztraval_tax"
	case Rich:
		return "rich_mond_tax"
	case Ezfly:
		return "ezfly_tax"
	}
	return ColTax
}

// quoteOrder is the order in which supplier quote columns appear in the
// output table.
var quoteOrder = [...]Supplier{Ezfly, Eztravel, ForeignSupplierEztravel, Lion, Set, Rich}
