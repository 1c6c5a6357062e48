// Package postgres replaces the contents of the destination table in Cloud
// SQL for PostgreSQL: backup, retention cleanup, truncate, bulk load via COPY,
// and restore-from-latest-backup when any of those steps fails.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/internal/storage"
	"fareetl/pkg/records"
)

// DBInterface is the subset of pgxpool.Pool the loader needs.
type DBInterface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is satisfied by both DBInterface and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config holds loader settings.
type Config struct {
	Table            string   // schema-qualified destination, e.g. "domanda.flight_ticket_price_compare"
	Columns          []string // destination columns in COPY order
	BatchSize        int
	BackupRetention  int
	StatementTimeout time.Duration
	LockKey          string
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Table:            "domanda.flight_ticket_price_compare",
		Columns:          fare.OutputColumns(),
		BatchSize:        5000,
		BackupRetention:  3,
		StatementTimeout: 5 * time.Minute,
		LockKey:          "backup_lock",
	}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Loader implements storage.Repository against one destination table.
type Loader struct {
	db     DBInterface
	cfg    Config
	log    logger.Logger
	now    func() time.Time
	closer func()

	schema, name string
}

var _ storage.Repository = (*Loader)(nil)

// NewLoader wraps an existing pool (or test double).
func NewLoader(db DBInterface, cfg Config, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BackupRetention <= 0 {
		cfg.BackupRetention = DefaultConfig().BackupRetention
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = fare.OutputColumns()
	}
	schema, name := splitTable(cfg.Table)
	return &Loader{
		db:     db,
		cfg:    cfg,
		log:    log.With("table", cfg.Table),
		now:    time.Now,
		schema: schema,
		name:   name,
	}
}

// Open connects to dsn and returns a Loader owning the pool.
func Open(ctx context.Context, dsn string, cfg Config, log logger.Logger) (*Loader, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	l := NewLoader(pool, cfg, log)
	l.closer = pool.Close
	return l, nil
}

// Close releases the pool if the Loader opened it.
func (l *Loader) Close() {
	if l.closer != nil {
		l.closer()
	}
}

// Replace backs up the destination table, empties it, and loads recs. If
// the backup, truncate, or load fails, the latest backup is restored and a
// *ReplaceError is returned.
func (l *Loader) Replace(ctx context.Context, recs []records.Record) (storage.LoadResult, error) {
	var res storage.LoadResult
	if len(recs) == 0 {
		return res, ErrEmptyInput
	}

	backup, err := l.Backup(ctx)
	if err != nil {
		if errors.Is(err, ErrBackupLocked) {
			return res, err
		}
		return res, l.recover(ctx, fmt.Errorf("backup: %w", err))
	}
	res.Backup = backup

	if err := l.CleanupBackups(ctx); err != nil {
		l.log.Warn("backup cleanup failed", "err", err)
	}
	if err := l.Truncate(ctx); err != nil {
		return res, l.recover(ctx, fmt.Errorf("truncate: %w", err))
	}

	lr, err := l.Load(ctx, recs)
	res.Filtered, res.Inserted, res.Verified = lr.Filtered, lr.Inserted, lr.Verified
	if err != nil {
		return res, l.recover(ctx, fmt.Errorf("load: %w", err))
	}
	return res, nil
}

func (l *Loader) recover(ctx context.Context, cause error) error {
	l.log.Error("replace failed, restoring latest backup", "err", cause)
	rerr := &ReplaceError{Err: cause}
	backup, err := l.Restore(context.WithoutCancel(ctx))
	rerr.Backup = backup
	if err != nil {
		rerr.RestoreErr = err
		l.log.Error("restore failed", "backup", backup, "err", err)
		return rerr
	}
	rerr.Restored = true
	return rerr
}

// Backup copies the destination table into backup_{table}_{YYYYMMDD_HHMMSS}
// in the same schema and returns the backup's name. Creation happens under
// a session advisory lock keyed by cfg.LockKey.
func (l *Loader) Backup(ctx context.Context) (string, error) {
	backup := fmt.Sprintf("%s%s", l.backupPrefix(), l.now().Format("20060102_150405"))

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	fail := func(step string, err error) (string, error) {
		_ = tx.Rollback(ctx)
		if _, uerr := l.db.Exec(ctx, "SELECT pg_advisory_unlock_all()"); uerr != nil {
			l.log.Warn("advisory unlock failed", "err", uerr)
		}
		return "", fmt.Errorf("%s: %w", step, err)
	}

	if l.cfg.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", l.cfg.StatementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fail("statement timeout", err)
		}
	}

	var locked bool
	if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", l.cfg.LockKey).Scan(&locked); err != nil {
		return fail("advisory lock", err)
	}
	if !locked {
		_ = tx.Rollback(ctx)
		return "", ErrBackupLocked
	}

	create := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", l.ident(backup), l.table())
	if _, err := tx.Exec(ctx, create); err != nil {
		return fail("create backup", err)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_unlock_all()"); err != nil {
		return fail("advisory unlock", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}
	l.log.Info("backup created", "backup", backup)
	return backup, nil
}

// CleanupBackups drops every backup beyond the newest cfg.BackupRetention.
func (l *Loader) CleanupBackups(ctx context.Context) error {
	backups, err := l.listBackups(ctx, l.db)
	if err != nil {
		return err
	}
	if len(backups) <= l.cfg.BackupRetention {
		return nil
	}
	for _, b := range backups[l.cfg.BackupRetention:] {
		if _, err := l.db.Exec(ctx, "DROP TABLE IF EXISTS "+l.ident(b)); err != nil {
			return fmt.Errorf("drop %s: %w", b, err)
		}
		l.log.Info("dropped old backup", "backup", b)
	}
	return nil
}

// Truncate empties the destination table.
func (l *Loader) Truncate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, "TRUNCATE TABLE "+l.table()); err != nil {
		return err
	}
	l.log.Info("table truncated")
	return nil
}

// Load inserts recs in one transaction, skipping rows without a GDS type,
// then looks the first inserted row back up.
func (l *Loader) Load(ctx context.Context, recs []records.Record) (storage.LoadResult, error) {
	var res storage.LoadResult
	kept := make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if records.IsAbsent(r[fare.OutGDSType]) {
			res.Filtered++
			continue
		}
		kept = append(kept, r)
	}
	if res.Filtered > 0 {
		l.log.Info("filtered rows without gds_type", "rows", res.Filtered)
	}
	if len(kept) == 0 {
		return res, ErrEmptyInput
	}

	rows := make([][]any, len(kept))
	for i, r := range kept {
		row := make([]any, len(l.cfg.Columns))
		for j, c := range l.cfg.Columns {
			row[j] = dbValue(r[c])
		}
		rows[i] = row
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	ident := pgx.Identifier{l.schema, l.name}
	copyFn := func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
		return tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(batch))
	}
	res.Inserted, err = storage.LoadBatches(ctx, l.cfg.Columns, rows, l.cfg.BatchSize, copyFn, l.log)
	if err != nil {
		_ = tx.Rollback(ctx)
		return res, err
	}
	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	l.log.Info("rows inserted", "rows", res.Inserted)

	res.Verified = l.verify(ctx, kept[0])
	return res, nil
}

// verify counts rows matching first's flight numbers and creation time.
// A failed or empty lookup is logged, not returned.
func (l *Loader) verify(ctx context.Context, first records.Record) int64 {
	q, args, err := psql.Select("COUNT(*)").From(l.table()).Where(squirrel.And{
		squirrel.Eq{fare.OutDepartureFlightNum1: dbValue(first[fare.OutDepartureFlightNum1])},
		squirrel.Eq{fare.OutReturnFlightNum1: dbValue(first[fare.OutReturnFlightNum1])},
		squirrel.Eq{fare.OutCreationTime: dbValue(first[fare.OutCreationTime])},
	}).ToSql()
	if err != nil {
		l.log.Warn("verification query", "err", err)
		return 0
	}
	var n int64
	if err := l.db.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		l.log.Warn("verification failed", "err", err)
		return 0
	}
	if n == 0 {
		l.log.Warn("verification found no rows for the first record")
		return 0
	}
	l.log.Info("verification ok", "rows", n)
	return n
}

// Restore replaces the destination table's contents with the latest backup
// and checks that both hold the same number of rows. It returns the backup
// used.
func (l *Loader) Restore(ctx context.Context) (string, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	backups, err := l.listBackups(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return "", err
	}
	if len(backups) == 0 {
		_ = tx.Rollback(ctx)
		return "", ErrNoBackup
	}
	backup := backups[0]
	fail := func(err error) (string, error) {
		_ = tx.Rollback(ctx)
		return backup, err
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+l.table()); err != nil {
		return fail(fmt.Errorf("truncate: %w", err))
	}
	insert := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", l.table(), l.ident(backup))
	if _, err := tx.Exec(ctx, insert); err != nil {
		return fail(fmt.Errorf("copy from backup: %w", err))
	}

	restored, err := count(ctx, tx, l.table())
	if err != nil {
		return fail(err)
	}
	expected, err := count(ctx, tx, l.ident(backup))
	if err != nil {
		return fail(err)
	}
	if restored != expected {
		return fail(fmt.Errorf("%w: table has %d rows, %s has %d", ErrRestoreMismatch, restored, backup, expected))
	}
	if err := tx.Commit(ctx); err != nil {
		return backup, fmt.Errorf("commit: %w", err)
	}
	l.log.Warn("restored from backup", "backup", backup, "rows", restored)
	return backup, nil
}

// listBackups returns this table's backups, newest first.
func (l *Loader) listBackups(ctx context.Context, q querier) ([]string, error) {
	sql, args, err := psql.Select("table_name").
		From("information_schema.tables").
		Where(squirrel.Eq{"table_schema": l.schema}).
		Where(squirrel.Like{"table_name": likeEscape(l.backupPrefix()) + "%"}).
		OrderBy("table_name DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return out, nil
}

func count(ctx context.Context, q querier, table string) (int64, error) {
	sql, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (l *Loader) backupPrefix() string { return "backup_" + l.name + "_" }

func (l *Loader) table() string { return pgIdent(l.schema) + "." + pgIdent(l.name) }

func (l *Loader) ident(name string) string { return pgIdent(l.schema) + "." + pgIdent(name) }

// splitTable splits "schema.table"; an unqualified name lands in public.
func splitTable(t string) (schema, name string) {
	if s, n, ok := strings.Cut(t, "."); ok {
		return s, n
	}
	return "public", t
}

// pgIdent quotes a SQL identifier for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`).Replace(s)
}

// dbValue maps absent values to NULL.
func dbValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil
		}
	}
	return v
}
