// Package config defines the typed configuration of a fareetl run and loads
// it from defaults, an optional YAML/JSON file, a .env file, the environment,
// and CLI flags (lowest to highest precedence).
//
// Example (YAML, trimmed):
//
//	job: fareetl
//	warehouse:
//	  project: testing-cola-rd
//	  lookback: 12h
//	database:
//	  user: flypa
//	  schema: domanda
//	  table: flight_ticket_price_compare
//	tunnel:
//	  enabled: true
//	  instance: testing-proxyvm
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Pipeline is the top-level configuration of one run.
type Pipeline struct {
	// Job labels metrics and log lines.
	Job string `mapstructure:"job" json:"job"`

	Warehouse Warehouse `mapstructure:"warehouse" json:"warehouse"`
	Database  DBConfig  `mapstructure:"database" json:"database"`
	Tunnel    Tunnel    `mapstructure:"tunnel" json:"tunnel"`
	Metrics   Metrics   `mapstructure:"metrics" json:"metrics"`
	Log       Log       `mapstructure:"log" json:"log"`
}

// Warehouse configures extraction from BigQuery.
type Warehouse struct {
	Project string `mapstructure:"project" json:"project"`
	Dataset string `mapstructure:"dataset" json:"dataset"`

	// Lookback bounds extraction to rows created within this window.
	Lookback time.Duration `mapstructure:"lookback" json:"lookback"`

	RetryAttempts uint64        `mapstructure:"retry_attempts" json:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" json:"retry_backoff"`

	// Concurrency caps the number of supplier tables queried at once.
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
}

// DBConfig configures the destination Postgres database.
type DBConfig struct {
	// DSN, when set, overrides the individual connection fields.
	DSN string `mapstructure:"dsn" json:"dsn"`

	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"-"`
	Name     string `mapstructure:"name" json:"name"`

	Schema string `mapstructure:"schema" json:"schema"`
	Table  string `mapstructure:"table" json:"table"`

	StatementTimeout time.Duration `mapstructure:"statement_timeout" json:"statement_timeout"`
	BatchSize        int           `mapstructure:"batch_size" json:"batch_size"`
	BackupRetention  int           `mapstructure:"backup_retention" json:"backup_retention"`
	LockKey          string        `mapstructure:"lock_key" json:"lock_key"`
}

// QualifiedTable returns "schema.table".
func (d DBConfig) QualifiedTable() string {
	if d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// ConnString returns DSN if set, otherwise a postgres:// URL built from the
// individual fields with search_path set to Schema.
func (d DBConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	if d.Schema != "" {
		q := url.Values{}
		q.Set("search_path", d.Schema)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Tunnel configures the optional IAP tunnel to the database host.
type Tunnel struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	Zone       string `mapstructure:"zone" json:"zone"`
	Project    string `mapstructure:"project" json:"project"`
	Instance   string `mapstructure:"instance" json:"instance"`
	RemotePort int    `mapstructure:"remote_port" json:"remote_port"`
	LocalPort  int    `mapstructure:"local_port" json:"local_port"`

	// Ready bounds how long to wait for the local port to accept connections.
	Ready time.Duration `mapstructure:"ready" json:"ready"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of "none", "pushgateway", "datadog".
	Backend        string `mapstructure:"backend" json:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr" json:"datadog_addr"`
	Namespace      string `mapstructure:"namespace" json:"namespace"`
}

// Log configures the process logger.
type Log struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

func (p Pipeline) String() string {
	return fmt.Sprintf("job=%s project=%s table=%s tunnel=%t metrics=%s",
		p.Job, p.Warehouse.Project, p.Database.QualifiedTable(), p.Tunnel.Enabled, p.Metrics.Backend)
}
