package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// Format writes one row per entry: key, type, value and description.
func (f *TableFormatter) Format(w io.Writer, entries []Entry, opts FormatOptions) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No variables found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		fmt.Fprintln(tw, "KEY\tTYPE\tVALUE\tDESCRIPTION")
	}

	for _, e := range entries {
		desc := e.Help
		if desc == "" {
			desc = e.Description
		}
		if opts.NoHelp {
			desc = ""
		}
		fmt.Fprintln(tw, strings.Join([]string{
			e.Key,
			f.formatType(e.Type),
			f.formatValue(display(e, opts), opts.MaxWidth),
			desc,
		}, "\t"))
	}

	return tw.Flush()
}

func (f *TableFormatter) formatType(t string) string {
	if t == "" {
		return "-"
	}
	return t
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val string, maxWidth int) string {
	if val == "" {
		return "-"
	}

	val = strings.ReplaceAll(val, "\n", `\n`)

	// Truncate if needed
	if maxWidth > 3 && len(val) > maxWidth {
		val = val[:maxWidth-3] + "..."
	}

	return val
}

func init() {
	if err := Register(NewTableFormatter()); err != nil {
		fmt.Printf("failed to register table formatter: %v\n", err)
	}
}
