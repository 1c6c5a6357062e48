package extract

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"fareetl/internal/fare"
)

// Source describes where one supplier's quotes live in the warehouse.
type Source struct {
	Supplier fare.Supplier
	Table    string

	// NotNull is the price column a row must have to be extracted.
	NotNull string
	// Created is the epoch-seconds column compared to the lookback cutoff.
	Created string
	// CastCreated wraps Created in CAST(... AS INT64).
	CastCreated bool
	// Overseas, when non-nil, filters on the overseas-supplier flag.
	Overseas *bool
}

func flag(b bool) *bool { return &b }

// Sources lists the extracted suppliers in pipeline order.
var Sources = []Source{
	{Supplier: fare.Cola, Table: "New_cola_air_tickets_price", NotNull: "總售價", Created: "建立時間"},
	{Supplier: fare.Set, Table: "New_settour_air_tickets_price", NotNull: "票面價格", Created: "crawl_time", CastCreated: true},
	{Supplier: fare.Lion, Table: "New_Lion_air_tickets_price", NotNull: "票面價格", Created: "crawl_time", CastCreated: true},
	{Supplier: fare.Eztravel, Table: "New_Eztravel_air_tickets_price", NotNull: "票面價格", Created: "crawl_time", CastCreated: true, Overseas: flag(false)},
	{Supplier: fare.ForeignSupplierEztravel, Table: "New_Eztravel_air_tickets_price", NotNull: "票面價格", Created: "crawl_time", CastCreated: true, Overseas: flag(true)},
	{Supplier: fare.Rich, Table: "New_richmond_air_tickets_price", NotNull: "票面價格", Created: "crawl_time", CastCreated: true},
}

// SourceFor returns the registered source of s.
func SourceFor(s fare.Supplier) (Source, error) {
	for _, src := range Sources {
		if src.Supplier == s {
			return src, nil
		}
	}
	return Source{}, fmt.Errorf("no warehouse source for supplier %q", s)
}

// Query builds the extraction SELECT against project.dataset for rows created
// after since (epoch seconds). Arguments use positional "?" parameters.
func (s Source) Query(project, dataset string, since int64) (string, []any, error) {
	created := quote(s.Created)
	if s.CastCreated {
		created = fmt.Sprintf("CAST(%s AS INT64)", s.Created)
	}
	b := squirrel.Select("*").Distinct().
		From(fmt.Sprintf("`%s.%s.%s`", project, dataset, s.Table)).
		Where(squirrel.NotEq{quote(s.NotNull): nil}).
		Where(squirrel.Gt{created: since})
	if s.Overseas != nil {
		b = b.Where(squirrel.Eq{quote("海外供應商"): *s.Overseas})
	}
	return b.ToSql()
}

func quote(col string) string { return "`" + col + "`" }
