package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/internal/storage"
	"fareetl/pkg/records"
)

type fakeExtractor struct {
	tables map[fare.Supplier][]records.Record
	fail   fare.Supplier

	mu    sync.Mutex
	calls []fare.Supplier
}

func (f *fakeExtractor) Extract(_ context.Context, s fare.Supplier) ([]records.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	if s == f.fail {
		return nil, errors.New("warehouse unavailable")
	}
	return f.tables[s], nil
}

type fakeRepo struct {
	got []records.Record
	err error
}

func (f *fakeRepo) Replace(_ context.Context, recs []records.Record) (storage.LoadResult, error) {
	f.got = recs
	if f.err != nil {
		return storage.LoadResult{}, f.err
	}
	return storage.LoadResult{Backup: "backup_t_20251105_120000", Inserted: int64(len(recs))}, nil
}

func (f *fakeRepo) Close() {}

func cola(created float64) records.Record {
	return records.Record{
		"去程航班編號1":    "CI073",
		"去程艙等與艙等編碼1": "Y",
		"回程航班編號1":    "CI072",
		"回程艙等與艙等編碼1": "Y",
		"去程起飛時間1":    "2025-11-05 19:20:00",
		"回程起飛時間1":    "2025-11-12 08:00:00",
		"總售價":        11000,
		"稅金":         1000,
		"GDS Type":   "1A",
		"建立時間":       created,
	}
}

func secondary(flight string) records.Record {
	return records.Record{
		"去程航班編號1": flight,
		"去程艙等1":   "Y",
		"回程航班編號1": "CI72",
		"回程艙等1":   "Y",
		"去程日期":    "2025-11-05",
		"回程日期":    "2025-11-12",
		"票面價格":    8800.0,
		"稅金":      1100.0,
	}
}

func newRunner(ex Extractor, repo storage.Repository) *Runner {
	return &Runner{
		Job:     "test",
		Extract: ex,
		Repo:    repo,
		Log:     logger.Discard(),
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
}

/*
TestRun_EndToEnd feeds the same itinerary twice from the primary supplier
(an earlier and a later crawl), one matching secondary quote, and one
secondary row with an unusable flight number. The load receives a single
row carrying the later creation time.
*/
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{tables: map[fare.Supplier][]records.Record{
		fare.Cola: {cola(100), cola(200)},
		fare.Set:  {secondary("ci 73")},
		fare.Lion: {secondary("XYZ12")},
	}}
	repo := &fakeRepo{}

	sum, err := newRunner(ex, repo).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Suppliers(), ex.calls)
	assert.Equal(t, 2, sum.Extracted[fare.Cola])
	assert.Equal(t, 1, sum.Invalid[fare.Lion])
	assert.Equal(t, 0, sum.Cleaned[fare.Lion])
	assert.Equal(t, 2, sum.Unify.Output)
	assert.Equal(t, 1, sum.Duplicates)

	require.Len(t, repo.got, 1)
	row := repo.got[0]
	assert.Equal(t, 200.0, row[fare.OutCreationTime])
	assert.Equal(t, "CI073", row[fare.OutDepartureFlightNum1])
	assert.Equal(t, int64(1100), row[fare.Set.TaxColumn()])
	assert.Nil(t, row[fare.Lion.TaxColumn()])
	assert.Equal(t, int64(1), sum.Load.Inserted)
}

func TestRun_ExtractFailureStops(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{fail: fare.Lion}
	repo := &fakeRepo{}

	_, err := newRunner(ex, repo).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract")
	assert.Equal(t, []fare.Supplier{fare.Cola, fare.Set, fare.Lion}, ex.calls)
	assert.Nil(t, repo.got, "load must not run after a failed extract")
}

func TestRun_ConcurrentExtract(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{tables: map[fare.Supplier][]records.Record{
		fare.Cola: {cola(100)},
		fare.Set:  {secondary("CI073")},
	}}
	repo := &fakeRepo{}
	r := newRunner(ex, repo)
	r.Concurrency = 4

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, Suppliers(), ex.calls)
	assert.Equal(t, 1, sum.Extracted[fare.Set])
	assert.Len(t, repo.got, 1)
}

func TestRun_LoadFailureWrapped(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("restore failed")
	ex := &fakeExtractor{tables: map[fare.Supplier][]records.Record{
		fare.Cola: {cola(100)},
		fare.Rich: {secondary("CI073")},
	}}
	repo := &fakeRepo{err: loadErr}

	_, err := newRunner(ex, repo).Run(context.Background())
	assert.ErrorIs(t, err, loadErr)
	assert.Len(t, repo.got, 1)
}

func TestDedupe_KeepsNewest(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{"a": "x", fare.OutCreationTime: 100.0},
		{"a": "x", fare.OutCreationTime: 300.0},
		{"a": "y", fare.OutCreationTime: 200.0},
	}
	out := Dedupe().Apply(in)
	require.Len(t, out, 2)
	assert.Equal(t, 300.0, out[0][fare.OutCreationTime])
	assert.Equal(t, "y", out[1]["a"])
}
