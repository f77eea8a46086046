package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// formatUnitsText formats the changed units of a rewrite as aligned columns.
// Unchanged units are left out; nothing is printed when no unit changed.
func formatUnitsText(w io.Writer, units []CLIUnit) {
	var changed []CLIUnit
	for _, u := range units {
		if u.Changed {
			changed = append(changed, u)
		}
	}
	if len(changed) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tLANGUAGE\tREWRITTEN\tLINES\tSTATUS")
	for _, u := range changed {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			u.Path, u.Language, u.Rewritten, u.Sites, joinInts(u.Lines), unitStatus(u))
	}
	tw.Flush()
}

// unitStatus describes what happened to a changed unit.
func unitStatus(u CLIUnit) string {
	status := "pending"
	if u.Written {
		status = "written"
	}
	if u.Cached {
		status += " (cached)"
	}
	return status
}

// formatDirectivesText formats directive comments as "line mode" rows.
func formatDirectivesText(w io.Writer, dirs []CLIDirective) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tMODE")
	for _, d := range dirs {
		fmt.Fprintf(tw, "%d\t%s\n", d.Line, d.Mode)
	}
	tw.Flush()
}

// formatCachedUnitsText formats cache entries as aligned columns.
func formatCachedUnitsText(w io.Writer, units []CLICachedUnit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tCHANGED\tREWRITTEN\tLAST PROCESSED")
	for _, u := range units {
		fmt.Fprintf(tw, "%s\t%t\t%d/%d\t%s\n", u.Path, u.Changed, u.Rewritten, u.Sites, u.LastProcessed)
	}
	tw.Flush()
}

func joinInts(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIUnit:
		formatUnitsText(w, v)
	case CLIUnit:
		formatUnitsText(w, []CLIUnit{v})
	case []CLIDirective:
		formatDirectivesText(w, v)
	case []CLICachedUnit:
		formatCachedUnitsText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// validColors lists accepted values for --color.
var validColors = []string{"auto", "always", "never"}

// validateColor checks that the --color flag value is recognized.
func validateColor(mode string) error {
	for _, c := range validColors {
		if mode == c {
			return nil
		}
	}
	return fmt.Errorf("invalid color mode %q: must be one of %s", mode, strings.Join(validColors, ", "))
}
