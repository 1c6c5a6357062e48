package storage

import (
	"context"

	"fareetl/pkg/records"
)

// LoadResult summarizes one Replace call.
type LoadResult struct {
	Backup   string // backup table taken before the table was emptied
	Filtered int    // rows dropped for a missing GDS type
	Inserted int64
	Verified int64 // rows found by the post-insert lookup
}

// Repository replaces the contents of the destination table.
type Repository interface {
	Replace(ctx context.Context, recs []records.Record) (LoadResult, error)
	Close()
}
