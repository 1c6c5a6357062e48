// Package pipeline runs one fare ETL pass: extract the six supplier tables,
// clean each, unify them, drop re-ingested duplicates, and replace the
// destination table.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/internal/metrics"
	"fareetl/internal/storage"
	"fareetl/internal/transformer"
	"fareetl/internal/transformer/builtin"
	"fareetl/internal/unify"
	"fareetl/pkg/records"
)

// Extractor returns a supplier's raw rows.
type Extractor interface {
	Extract(ctx context.Context, s fare.Supplier) ([]records.Record, error)
}

// Suppliers lists the extracted suppliers in run order.
func Suppliers() []fare.Supplier {
	return append([]fare.Supplier{fare.Primary}, fare.Secondaries[:]...)
}

// Runner wires the stages together.
type Runner struct {
	Job     string
	Extract Extractor
	Repo    storage.Repository
	Log     logger.Logger

	// Concurrency caps concurrent extractions; values below 1 mean one at
	// a time.
	Concurrency int

	// Now stamps backfilled creation times; nil means time.Now.
	Now func() time.Time
}

// Summary reports row counts of a run.
type Summary struct {
	Extracted  map[fare.Supplier]int
	Invalid    map[fare.Supplier]int
	Cleaned    map[fare.Supplier]int
	Unify      unify.Stats
	Duplicates int
	Load       storage.LoadResult
}

// Run executes every stage in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	log := r.Log
	if log == nil {
		log = logger.Default()
	}
	log = log.With("job", r.Job)

	sum := Summary{
		Extracted: make(map[fare.Supplier]int),
		Invalid:   make(map[fare.Supplier]int),
		Cleaned:   make(map[fare.Supplier]int),
	}
	start := time.Now()

	var raw unify.Tables
	err := r.stage("extract", func() error {
		var err error
		raw, err = r.extractAll(ctx)
		return err
	})
	for s, rows := range raw {
		sum.Extracted[s] = len(rows)
		metrics.RecordSupplierRows(r.Job, string(s), "extracted", int64(len(rows)))
	}
	if err != nil {
		return sum, fmt.Errorf("extract: %w", err)
	}

	cleaned := make(unify.Tables)
	err = r.stage("transform", func() error {
		logSink := transformer.LogSink{Log: log}
		cleaner := transformer.Cleaner{
			Now: r.Now,
			Sink: transformer.SinkFunc(func(s fare.Supplier, i int, offending map[string]string) {
				sum.Invalid[s]++
				logSink.InvalidRow(s, i, offending)
			}),
		}
		for _, s := range Suppliers() {
			p, err := transformer.ProfileFor(s)
			if err != nil {
				return err
			}
			cleaned[s] = cleaner.Clean(p, raw[s])
			sum.Cleaned[s] = len(cleaned[s])
			metrics.RecordSupplierRows(r.Job, string(s), "invalid_dropped", int64(sum.Invalid[s]))
			metrics.RecordSupplierRows(r.Job, string(s), "cleaned", int64(len(cleaned[s])))
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("transform: %w", err)
	}

	var unified []records.Record
	_ = r.stage("unify", func() error {
		unified, sum.Unify = unify.Unifier{Log: log}.Unify(cleaned)
		for s, n := range sum.Unify.Matched {
			metrics.RecordSupplierRows(r.Job, string(s), "matched", int64(n))
		}
		metrics.RecordRows(r.Job, "no_tax_dropped", int64(sum.Unify.NoTax))
		metrics.RecordRows(r.Job, "unified", int64(sum.Unify.Output))
		return nil
	})

	var final []records.Record
	_ = r.stage("dedupe", func() error {
		final = Dedupe().Apply(unified)
		sum.Duplicates = len(unified) - len(final)
		metrics.RecordRows(r.Job, "duplicates_dropped", int64(sum.Duplicates))
		log.Info("dropped duplicate itineraries", "rows", sum.Duplicates, "remaining", len(final))
		return nil
	})

	err = r.stage("load", func() error {
		var err error
		sum.Load, err = r.Repo.Replace(ctx, final)
		metrics.RecordRows(r.Job, "gds_filtered", int64(sum.Load.Filtered))
		metrics.RecordRows(r.Job, "inserted", sum.Load.Inserted)
		return err
	})
	if err != nil {
		return sum, fmt.Errorf("load: %w", err)
	}

	log.Info("pipeline finished",
		"extracted", total(sum.Extracted),
		"unified", sum.Unify.Output,
		"inserted", sum.Load.Inserted,
		"backup", sum.Load.Backup,
		"elapsed", time.Since(start).Truncate(time.Millisecond))
	return sum, nil
}

// extractAll queries every supplier, at most r.Concurrency at a time. The
// first failure cancels the remaining queries.
func (r *Runner) extractAll(ctx context.Context) (unify.Tables, error) {
	suppliers := Suppliers()
	results := make([][]records.Record, len(suppliers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))
	for i, s := range suppliers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := r.Extract.Extract(gctx, s)
			if err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := make(unify.Tables, len(suppliers))
	for i, s := range suppliers {
		raw[s] = results[i]
	}
	return raw, nil
}

// Dedupe orders rows newest first and keeps the first of each group of rows
// that agree on every column except creation_time.
func Dedupe() transformer.Chain {
	return transformer.Chain{
		builtin.SortByCreation{Column: fare.OutCreationTime},
		builtin.DeDup{Except: []string{fare.OutCreationTime}, Policy: "keep-first"},
	}
}

func (r *Runner) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStage(r.Job, name, err, time.Since(start))
	return err
}

func total(m map[fare.Supplier]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
