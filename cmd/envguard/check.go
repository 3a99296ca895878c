package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/envguard/adapters/metrics"
	"github.com/artpar/envguard/core/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the env file against the schema",
	Long: `Apply the schema to every declared variable and report each result.

Unlike loading, check does not stop at the first failure: every field is
applied on its own so all problems are listed at once.

Examples:
  envguard check
  envguard check --env .env.production --schema env.schema.yaml
  envguard check --strict   # also flag variables the schema does not declare`,
	RunE: runCheck,
}

var (
	checkStrict  bool
	checkMetrics bool
)

// errCheckFailed is returned when one or more fields fail.
var errCheckFailed = errors.New("check failed")

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "fail on variables not declared in the schema")
	checkCmd.Flags().BoolVar(&checkMetrics, "metrics", false, "print Prometheus metrics after the report")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var opts []schema.Option
	var reg *prometheus.Registry
	if checkMetrics || cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts = metrics.NewWithRegistry(reg).SchemaOptions()
	}

	s, err := cfg.LoadSchema(opts...)
	if err != nil {
		fmt.Fprintf(out, "  %s Schema %s\n", crossMark, cfg.Env.Schema)
		return fmt.Errorf("schema error: %w", err)
	}
	raw, err := cfg.LoadRaw()
	if err != nil {
		fmt.Fprintf(out, "  %s Env file %s\n", crossMark, cfg.Env.File)
		return fmt.Errorf("env error: %w", err)
	}

	fmt.Fprintf(out, "Checking %s", cfg.Env.File)
	if cfg.Env.Schema != "" {
		fmt.Fprintf(out, " against %s", cfg.Env.Schema)
	}
	fmt.Fprint(out, "\n\n")

	failed := 0
	for _, name := range s.Names() {
		d, _ := s.Field(name)
		v, err := s.ApplyFrom(name, raw)
		if err != nil {
			failed++
			fmt.Fprintf(out, "  %s %s: %v\n", crossMark, name, errors.Unwrap(err))
			continue
		}
		if c, ok := v.(interface{ Close() }); ok {
			c.Close()
		}
		fmt.Fprintf(out, "  %s %s (%s)\n", checkMark, name, d.Type)
	}

	var undeclared []string
	for k := range raw {
		if !s.Has(k) {
			undeclared = append(undeclared, k)
		}
	}
	sort.Strings(undeclared)
	for _, k := range undeclared {
		mark := warnMark
		if checkStrict {
			mark = crossMark
			failed++
		}
		fmt.Fprintf(out, "  %s %s: not declared in schema\n", mark, k)
	}

	fmt.Fprintf(out, "\n%d fields, %d undeclared, %d failed\n", s.Len(), len(undeclared), failed)

	if reg != nil {
		fmt.Fprintln(out)
		if err := metrics.WriteText(out, reg); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d problem(s)", errCheckFailed, failed)
	}
	return nil
}
