package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/tslop/internal/directive"
)

var directivesCmd = &cobra.Command{
	Use:   "directives <file>",
	Short: "List the //@tsl and //@js directive comments of a unit",
	Args:  cobra.ExactArgs(1),
	RunE:  runDirectives,
}

func runDirectives(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return outputError("directives", fmt.Errorf("reading %s: %w", args[0], err))
	}
	return outputResult(CLIResult{Command: "directives", Results: listDirectives(src)})
}

// listDirectives returns the directive comments of src in line order.
func listDirectives(src []byte) []CLIDirective {
	m := directive.Scan(src)
	out := make([]CLIDirective, 0, len(m))
	for _, line := range m.Lines() {
		out = append(out, CLIDirective{Line: line, Mode: m.Lookup(line).String()})
	}
	return out
}
