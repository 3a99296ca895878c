package main

import (
	"fmt"
	"os"

	"github.com/artpar/envguard/bootstrap"
	"github.com/artpar/envguard/config"
	"github.com/spf13/cobra"
)

// defaultSchemaFile is picked up from the working directory when no schema
// is configured.
const defaultSchemaFile = "env.schema.yaml"

var (
	// Global flags
	cfgFile    string
	envFile    string
	schemaFile string
	logLevel   string
	logFormat  string
	processEnv bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "envguard",
	Short: "Typed, validated dotenv configuration with self-destructing secrets",
	Long: `envguard loads a dotenv file, applies a YAML schema to type-cast and
validate every variable, and supports values that self-destruct after a
deadline.

Quick start:
  envguard check                 # Validate .env against env.schema.yaml
  envguard export --format yaml  # Print the typed configuration
  envguard get PORT              # Print one value

Other:
  envguard watch                 # Reload on file changes
  envguard types                 # List builtin types`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "envguard.yaml", "config file path (optional)")
	flags.StringVarP(&envFile, "env", "e", "", "dotenv file (default .env)")
	flags.StringVarP(&schemaFile, "schema", "s", "", "YAML schema file")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: json or console")
	flags.BoolVar(&processEnv, "process-env", false, "overlay the process environment on the env file")
}

// loadConfig loads the config file (or environment) and applies flag
// overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.Env.File = envFile
	}
	if flags.Changed("schema") {
		cfg.Env.Schema = schemaFile
	}
	if flags.Changed("process-env") {
		cfg.Env.Process = processEnv
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}

	if cfg.Env.Schema == "" {
		if _, err := os.Stat(defaultSchemaFile); err == nil {
			cfg.Env.Schema = defaultSchemaFile
		}
	}
	return cfg, nil
}

// loadApp loads the config and wires the application around it.
func loadApp(cmd *cobra.Command, cfg *config.Config) (*bootstrap.App, error) {
	if cfg == nil {
		var err error
		if cfg, err = loadConfig(cmd); err != nil {
			return nil, err
		}
	}
	return bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: cmd.ErrOrStderr()})
}
