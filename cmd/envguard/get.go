package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one variable",
	Long: `Print a single variable in its canonical form after the schema is
applied. With --raw the original string from the env file is printed.

Examples:
  envguard get PORT
  envguard get DATABASE_URL --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var (
	getRaw      bool
	getDescribe bool
)

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVar(&getRaw, "raw", false, "print the original string value")
	getCmd.Flags().BoolVar(&getDescribe, "describe", false, "print the field type and help instead of the value")
}

func runGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	out := cmd.OutOrStdout()

	app, err := loadApp(cmd, nil)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	env := app.Env()

	if getDescribe {
		d, ok := env.Field(key)
		if !ok {
			return fmt.Errorf("%s is not declared in the schema", key)
		}
		fmt.Fprintf(out, "%s: %s\n", key, d.Description())
		if d.Help != "" {
			fmt.Fprintf(out, "  %s\n", d.Help)
		}
		return nil
	}

	if getRaw {
		v, ok := env.Raw()[key]
		if !ok {
			return fmt.Errorf("%s is not set", key)
		}
		fmt.Fprintln(out, v)
		return nil
	}

	v, err := env.GetString(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, v)
	return nil
}
