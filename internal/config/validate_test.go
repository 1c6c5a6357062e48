package config

import (
	"strings"
	"testing"
	"time"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job: "fareetl",
		Warehouse: Warehouse{
			Project:  "testing-cola-rd",
			Dataset:  "economy",
			Lookback:    12 * time.Hour,
			Concurrency: 3,
		},
		Database: DBConfig{
			Host: "localhost", Port: 5432, User: "flypa", Name: "flypa",
			Schema: "domanda", Table: "flight_ticket_price_compare",
			StatementTimeout: 5 * time.Minute,
			BatchSize:        5000,
			BackupRetention:  3,
			LockKey:          "backup_lock",
		},
		Metrics: Metrics{Backend: "none"},
		Log:     Log{Level: "info"},
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_Findings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job", "must not be empty"},
		{"missing project", func(p *Pipeline) { p.Warehouse.Project = "" }, SeverityError, "warehouse.project", "must not be empty"},
		{"zero lookback", func(p *Pipeline) { p.Warehouse.Lookback = 0 }, SeverityError, "warehouse.lookback", "positive"},
		{"zero concurrency", func(p *Pipeline) { p.Warehouse.Concurrency = 0 }, SeverityError, "warehouse.concurrency", ">= 1"},
		{"many retries", func(p *Pipeline) { p.Warehouse.RetryAttempts = 20 }, SeverityWarning, "warehouse.retry_attempts", "stall"},
		{"missing user", func(p *Pipeline) { p.Database.User = "" }, SeverityError, "database.user", "required"},
		{"qualified table", func(p *Pipeline) { p.Database.Table = "domanda.t" }, SeverityError, "database.table", "unqualified"},
		{"zero batch", func(p *Pipeline) { p.Database.BatchSize = 0 }, SeverityError, "database.batch_size", "> 0"},
		{"no retention", func(p *Pipeline) { p.Database.BackupRetention = 0 }, SeverityError, "database.backup_retention", "restore"},
		{"no timeout", func(p *Pipeline) { p.Database.StatementTimeout = 0 }, SeverityWarning, "database.statement_timeout", "without"},
		{"no lock key", func(p *Pipeline) { p.Database.LockKey = "" }, SeverityError, "database.lock_key", "must not be empty"},
		{"tunnel missing instance", func(p *Pipeline) {
			p.Tunnel = Tunnel{Enabled: true, Zone: "z", Project: "p", RemotePort: 5432, LocalPort: 5432, Ready: time.Second}
		}, SeverityError, "tunnel.instance", "required"},
		{"tunnel port mismatch", func(p *Pipeline) {
			p.Tunnel = Tunnel{Enabled: true, Zone: "z", Project: "p", Instance: "i", RemotePort: 5432, LocalPort: 6543, Ready: time.Second}
		}, SeverityWarning, "database.port", "tunnel listens on 6543"},
		{"pushgateway without url", func(p *Pipeline) { p.Metrics.Backend = "pushgateway" }, SeverityError, "metrics.pushgateway_url", "requires a URL"},
		{"unknown metrics", func(p *Pipeline) { p.Metrics.Backend = "statsd" }, SeverityError, "metrics.backend", "unknown"},
		{"unknown log level", func(p *Pipeline) { p.Log.Level = "loud" }, SeverityWarning, "log.level", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("want %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("warnings alone must not count as errors")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("expected HasErrors to report the error")
	}
	if got := (Issue{SeverityError, "job", "x"}).Error(); got != "error at job: x" {
		t.Fatalf("Issue.Error() = %q", got)
	}
}
