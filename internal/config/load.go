package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// FAREETL_DATABASE_BATCH_SIZE.
const EnvPrefix = "FAREETL"

// legacyEnv maps config keys to the environment names used by earlier
// deployments. They are consulted after the FAREETL_ name.
var legacyEnv = map[string]string{
	"warehouse.project":  "PROJECT_ID",
	"database.schema":    "DATASET_ID",
	"database.table":     "TABLE_NAME",
	"database.user":      "DB_USER",
	"database.password":  "DB_PASS",
	"database.name":      "DB_NAME",
	"tunnel.enabled":     "IS_CLOUD",
	"tunnel.zone":        "IAP_ZONE",
	"tunnel.project":     "IAP_PROJECT",
	"tunnel.instance":    "IAP_INSTANCE",
	"tunnel.remote_port": "IAP_PORT",
	"tunnel.local_port":  "IAP_LOCAL_PORT",
}

// SetDefaults installs the production defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("job", "fareetl")

	v.SetDefault("warehouse.project", "testing-cola-rd")
	v.SetDefault("warehouse.dataset", "economy")
	v.SetDefault("warehouse.lookback", 12*time.Hour)
	v.SetDefault("warehouse.retry_attempts", 3)
	v.SetDefault("warehouse.retry_backoff", 2*time.Second)
	v.SetDefault("warehouse.concurrency", 1)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "flypa")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "flypa")
	v.SetDefault("database.schema", "domanda")
	v.SetDefault("database.table", "flight_ticket_price_compare")
	v.SetDefault("database.statement_timeout", 5*time.Minute)
	v.SetDefault("database.batch_size", 5000)
	v.SetDefault("database.backup_retention", 3)
	v.SetDefault("database.lock_key", "backup_lock")

	v.SetDefault("tunnel.enabled", false)
	v.SetDefault("tunnel.zone", "asia-east1-b")
	v.SetDefault("tunnel.project", "testing-cola-rd")
	v.SetDefault("tunnel.instance", "testing-proxyvm")
	v.SetDefault("tunnel.remote_port", 5432)
	v.SetDefault("tunnel.local_port", 5432)
	v.SetDefault("tunnel.ready", 30*time.Second)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("metrics.namespace", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// LoadDotenv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error unless
// required is true.
func LoadDotenv(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration held by v. Callers set the config file
// (v.SetConfigFile) and bind flags before calling Load.
func Load(v *viper.Viper) (Pipeline, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Pipeline{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("read config: %w", err)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}
