// Package extract pulls each supplier's recent quotes out of the warehouse.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/pkg/records"
)

// Extractor runs the per-supplier extraction queries.
type Extractor struct {
	Querier  Querier
	Project  string
	Dataset  string
	Lookback time.Duration

	// Attempts bounds retries of transient failures; 0 means one try.
	Attempts uint64
	Backoff  time.Duration

	Now func() time.Time
	Log logger.Logger
}

// Since returns the cutoff in epoch seconds.
func (e *Extractor) Since() int64 {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().Add(-e.Lookback).Unix()
}

// Extract returns the raw rows of supplier s created within the lookback.
func (e *Extractor) Extract(ctx context.Context, s fare.Supplier) ([]records.Record, error) {
	src, err := SourceFor(s)
	if err != nil {
		return nil, err
	}
	sql, args, err := src.Query(e.Project, e.Dataset, e.Since())
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", s, err)
	}

	log := e.Log
	if log == nil {
		log = logger.Default()
	}
	backoff := e.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var rows []records.Record
	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(e.Attempts, retry.NewExponential(backoff)), func(ctx context.Context) error {
		attempt++
		var qerr error
		rows, qerr = e.Querier.Query(ctx, sql, args...)
		if qerr != nil {
			if Transient(qerr) {
				log.Warn("transient warehouse error", "supplier", s, "attempt", attempt, "err", qerr)
				return retry.RetryableError(qerr)
			}
			return qerr
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", s, err)
	}
	log.Info("extracted", "supplier", s, "rows", len(rows))
	return rows, nil
}

// Transient reports whether err is a retryable warehouse error.
func Transient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
