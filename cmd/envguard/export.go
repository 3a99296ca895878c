package main

import (
	"github.com/artpar/envguard/core/convention"
	"github.com/artpar/envguard/core/formatter"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the typed configuration",
	Long: `Load the env file, apply the schema and print every variable in its
canonical form.

Formats: env (default), yaml, json, table.

Examples:
  envguard export
  envguard export --format json --tree __ --camel
  envguard export --filter 'DB_*' --redact`,
	RunE: runExport,
}

var (
	exportFormat   string
	exportRedact   bool
	exportNoHeader bool
	exportNoHelp   bool
	exportTree     string
	exportCamel    bool
	exportCompact  bool
	exportFilter   string
	exportWidth    int
)

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringVarP(&exportFormat, "format", "f", "", "output format: env, yaml, json, table")
	flags.BoolVar(&exportRedact, "redact", false, "mask self-destructing values")
	flags.BoolVar(&exportNoHeader, "no-header", false, "omit group headers")
	flags.BoolVar(&exportNoHelp, "no-help", false, "omit help comments")
	flags.StringVar(&exportTree, "tree", "", "nest keys on this separator (yaml, json)")
	flags.BoolVar(&exportCamel, "camel", false, "camelCase nested keys (with --tree)")
	flags.BoolVar(&exportCompact, "compact", false, "compact json output")
	flags.StringVar(&exportFilter, "filter", "", "only export keys matching this glob")
	flags.IntVar(&exportWidth, "max-width", 0, "truncate table values (0 = no limit)")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd, nil)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	format := app.Config.Export.Format
	if cmd.Flags().Changed("format") {
		format = exportFormat
	}

	opts := app.Config.FormatOptions()
	opts.Redact = opts.Redact || exportRedact
	opts.NoHeader = exportNoHeader
	opts.NoHelp = exportNoHelp
	opts.Compact = exportCompact
	opts.MaxWidth = exportWidth
	if exportTree != "" {
		opts.TreeSeparator = exportTree
	}
	if exportCamel {
		opts.KeyCase = convention.CamelCase
	}

	env := app.Env()
	entries, err := env.Entries()
	if err != nil {
		return err
	}

	if exportFilter != "" {
		keys, err := env.Filter(exportFilter)
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(keys))
		for _, k := range keys {
			keep[k] = true
		}
		filtered := entries[:0]
		for _, e := range entries {
			if keep[e.Key] {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return formatter.Write(cmd.OutOrStdout(), format, entries, opts)
}
