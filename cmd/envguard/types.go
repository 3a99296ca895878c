package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/artpar/envguard/core/schema"
	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List builtin schema types",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := schema.Default()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tDESCRIPTION")
		for _, name := range r.Names() {
			d, err := r.Normalize(name, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", name, d.Description())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
