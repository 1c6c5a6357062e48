package config

// This file adds a lightweight linter for Pipeline values. It performs static
// checks over a loaded Pipeline and returns a list of issues (errors and
// warnings) that callers can surface in the CLI or tests.

import (
	"fmt"
	"net/url"
	"strings"

	"fareetl/internal/logger"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "database.batch_size").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// maxBatchParams is the bound on bind parameters per statement in Postgres.
const maxBatchParams = 65535

// ValidatePipeline lints p without mutating it.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateWarehouse(p.Warehouse)...)
	issues = append(issues, validateDatabase(p.Database, p.Tunnel)...)
	issues = append(issues, validateTunnel(p.Tunnel)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateLog(p.Log)...)
	return issues
}

func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue
	if strings.TrimSpace(w.Project) == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.project", "warehouse project must not be empty"})
	}
	if strings.TrimSpace(w.Dataset) == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.dataset", "warehouse dataset must not be empty"})
	}
	if w.Lookback <= 0 {
		issues = append(issues, Issue{SeverityError, "warehouse.lookback", "lookback must be positive"})
	}
	if w.Concurrency < 1 {
		issues = append(issues, Issue{SeverityError, "warehouse.concurrency", "concurrency must be >= 1"})
	}
	if w.RetryAttempts > 10 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.retry_attempts",
			Message:  fmt.Sprintf("%d retries with exponential backoff may stall the run for a long time", w.RetryAttempts),
		})
	}
	return issues
}

func validateDatabase(d DBConfig, t Tunnel) []Issue {
	var issues []Issue

	if d.DSN == "" {
		if strings.TrimSpace(d.User) == "" {
			issues = append(issues, Issue{SeverityError, "database.user", "user is required when dsn is not set"})
		}
		if strings.TrimSpace(d.Name) == "" {
			issues = append(issues, Issue{SeverityError, "database.name", "database name is required when dsn is not set"})
		}
		if d.Port <= 0 || d.Port > 65535 {
			issues = append(issues, Issue{SeverityError, "database.port", fmt.Sprintf("port %d out of range", d.Port)})
		}
		if t.Enabled && d.Port != t.LocalPort {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "database.port",
				Message:  fmt.Sprintf("tunnel listens on %d but the database port is %d", t.LocalPort, d.Port),
			})
		}
	} else if _, err := url.Parse(d.DSN); err != nil {
		issues = append(issues, Issue{SeverityError, "database.dsn", fmt.Sprintf("invalid dsn: %v", err)})
	}

	if strings.TrimSpace(d.Schema) == "" {
		issues = append(issues, Issue{SeverityError, "database.schema", "schema must not be empty"})
	}
	if strings.TrimSpace(d.Table) == "" {
		issues = append(issues, Issue{SeverityError, "database.table", "table must not be empty"})
	} else if strings.Contains(d.Table, ".") {
		issues = append(issues, Issue{SeverityError, "database.table", "table must be unqualified; set database.schema instead"})
	}

	switch {
	case d.BatchSize <= 0:
		issues = append(issues, Issue{SeverityError, "database.batch_size", "batch_size must be > 0"})
	case d.BatchSize > maxBatchParams:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "database.batch_size",
			Message:  "very large batches hold the load transaction open with little gain",
		})
	}
	if d.BackupRetention < 1 {
		issues = append(issues, Issue{SeverityError, "database.backup_retention", "at least one backup must be retained for restore"})
	}
	if d.StatementTimeout <= 0 {
		issues = append(issues, Issue{SeverityWarning, "database.statement_timeout", "backup creation will run without a statement timeout"})
	}
	if strings.TrimSpace(d.LockKey) == "" {
		issues = append(issues, Issue{SeverityError, "database.lock_key", "lock_key must not be empty"})
	}
	return issues
}

func validateTunnel(t Tunnel) []Issue {
	if !t.Enabled {
		return nil
	}
	var issues []Issue
	for _, f := range []struct{ path, val string }{
		{"tunnel.zone", t.Zone},
		{"tunnel.project", t.Project},
		{"tunnel.instance", t.Instance},
	} {
		if strings.TrimSpace(f.val) == "" {
			issues = append(issues, Issue{SeverityError, f.path, "required when the tunnel is enabled"})
		}
	}
	for _, f := range []struct {
		path string
		port int
	}{
		{"tunnel.remote_port", t.RemotePort},
		{"tunnel.local_port", t.LocalPort},
	} {
		if f.port <= 0 || f.port > 65535 {
			issues = append(issues, Issue{SeverityError, f.path, fmt.Sprintf("port %d out of range", f.port)})
		}
	}
	if t.Ready <= 0 {
		issues = append(issues, Issue{SeverityWarning, "tunnel.ready", "no readiness wait; the first connection may race the tunnel"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"}}
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			return []Issue{{SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address"}}
		}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway, or datadog)", m.Backend),
		}}
	}
	return nil
}

func validateLog(l Log) []Issue {
	if l.Level == "" {
		return nil
	}
	if logger.ParseLevel(l.Level) != logger.LogLevel(l.Level) {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q; falling back to info", l.Level),
		}}
	}
	return nil
}
