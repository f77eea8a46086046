package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jward/tslop"
)

var (
	flagConfig string
	flagDB     string
	flagFormat string
	flagColor  string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// errWouldRewrite is returned by rewrite --check when a unit would change.
var errWouldRewrite = errors.New("units would be rewritten")

func main() {
	log.SetFlags(0)
	log.SetPrefix("tslop: ")
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tslop",
	Short:         "Rewrite operators inside TSL builder callbacks into method chains",
	Long:          "tslop finds Fn(() => ...) callbacks in JavaScript and TypeScript sources and rewrites arithmetic, comparison and logical operators on shader nodes into .add/.sub/.lessThan/... method calls.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return validateColor(flagColor)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .tslop.yaml at the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "cache database path (default: .tslop/cache.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize change logs: auto|always|never")

	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(directivesCmd)
	rootCmd.AddCommand(cacheCmd)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the cache path from the --db flag, the config's
// cache.path, or the default, in that order.
func resolveDBPath(repoRoot, configured string) string {
	path := flagDB
	if path == "" {
		path = configured
	}
	if path == "" {
		return filepath.Join(repoRoot, ".tslop", "cache.db")
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// resolveConfigPath returns the config path from the --config flag or the
// default file at the repo root.
func resolveConfigPath(repoRoot string) string {
	if flagConfig != "" {
		if abs, err := filepath.Abs(flagConfig); err == nil {
			return abs
		}
		return flagConfig
	}
	return filepath.Join(repoRoot, tslop.DefaultConfigFile)
}

// loadConfig locates the repository around startDir and loads its config.
func loadConfig(startDir string) (string, *tslop.Config, error) {
	repoRoot := findRepoRoot(startDir)
	cfg, err := tslop.LoadConfig(resolveConfigPath(repoRoot))
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	return repoRoot, cfg, nil
}

// useColor reports whether output written to f should be colorized.
func useColor(f *os.File) bool {
	switch flagColor {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
