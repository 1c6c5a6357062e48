// Command fareetl extracts supplier fares from BigQuery, unifies them, and
// replaces the comparison table in Cloud SQL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fareetl/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fareetl",
		Short:         "Unify supplier airfare quotes into the price comparison table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML or JSON config file")
	pf.String("env-file", ".env", "dotenv file loaded before the environment is read")
	pf.String("log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.Bool("log-json", false, "emit JSON log lines")
	pf.String("metrics-backend", "", "metrics backend (none, pushgateway, datadog)")

	run := newRunCmd()
	root.AddCommand(run, newValidateCmd())
	root.RunE = run.RunE
	return root
}

// loadConfig resolves the configuration for cmd: .env, config file,
// environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Pipeline, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotenv(envFile, flags.Changed("env-file")); err != nil {
		return config.Pipeline{}, err
	}

	v := viper.New()
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"log.json":        "log-json",
		"metrics.backend": "metrics-backend",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Pipeline{}, err
			}
		}
	}
	return config.Load(v)
}

// reportIssues prints issues and returns an error if any blocks the run.
func reportIssues(p config.Pipeline) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the resolved configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := reportIssues(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", p)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
