package extract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"fareetl/pkg/records"
)

// Querier runs a warehouse query and returns its rows.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]records.Record, error)
}

// BigQuery is a Querier backed by a BigQuery client.
type BigQuery struct {
	client *bigquery.Client
}

// NewBigQuery opens a client for project using application default
// credentials.
func NewBigQuery(ctx context.Context, project string) (*BigQuery, error) {
	c, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQuery{client: c}, nil
}

func (b *BigQuery) Close() error { return b.client.Close() }

func (b *BigQuery) Query(ctx context.Context, sql string, args ...any) ([]records.Record, error) {
	q := b.client.Query(sql)
	for _, a := range args {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Value: a})
	}
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]records.Record, 0, it.TotalRows)
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(records.Record, len(row))
		for k, v := range row {
			rec[k] = value(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// value maps warehouse types onto the ones the normalizers understand.
func value(v bigquery.Value) any {
	switch t := v.(type) {
	case *big.Rat:
		if t == nil {
			return nil
		}
		f, _ := t.Float64()
		return f
	case civil.Date:
		return t.String()
	case civil.DateTime:
		return t.Date.String() + " " + t.Time.String()
	case civil.Time:
		return t.String()
	}
	return v
}
