package formatter

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// EnvFormatter formats output as dotenv KEY=value lines.
type EnvFormatter struct{}

// NewEnvFormatter creates a new env formatter.
func NewEnvFormatter() *EnvFormatter {
	return &EnvFormatter{}
}

// Name returns the formatter name.
func (f *EnvFormatter) Name() string {
	return "env"
}

// Description returns the formatter description.
func (f *EnvFormatter) Description() string {
	return "dotenv KEY=value output with # HEADER # groups"
}

// Format writes one KEY=value line per entry. Consecutive keys sharing a
// header capture are grouped under a single "# HEADER #" line.
func (f *EnvFormatter) Format(w io.Writer, entries []Entry, opts FormatOptions) error {
	pattern := opts.HeaderPattern
	if pattern == nil {
		pattern = DefaultHeaderPattern
	}

	bw := bufio.NewWriter(w)
	current := ""
	for i, e := range entries {
		if !opts.NoHeader {
			header := ""
			if m := pattern.FindStringSubmatch(e.Key); len(m) > 1 {
				header = m[1]
			}
			if header != current {
				if i > 0 {
					bw.WriteString("\n")
				}
				if header != "" {
					fmt.Fprintf(bw, "# %s #\n", header)
				}
				current = header
			}
		}

		line := e.Key + "=" + quote(display(e, opts))
		if e.Help != "" && !opts.NoHelp {
			line += " # " + strings.ReplaceAll(e.Help, "\n", " ")
		}
		bw.WriteString(line + "\n")
	}
	return bw.Flush()
}

// quote wraps values that a dotenv parser would otherwise alter.
func quote(v string) string {
	if v == "" {
		return ""
	}
	if !strings.ContainsAny(v, " \t\n\r#\"'\\$=`") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "$", `\$`)
	return `"` + r.Replace(v) + `"`
}

func init() {
	if err := Register(NewEnvFormatter()); err != nil {
		fmt.Printf("failed to register env formatter: %v\n", err)
	}
}
