package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/tslop/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the rewrite cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached units",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached unit",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache opens the cache database of the repository around the current
// directory.
func openCache() (*store.Store, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot, cfg, err := loadConfig(cwd)
	if err != nil {
		return nil, "", err
	}
	dbPath := resolveDBPath(repoRoot, cfg.Cache.Path)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("cache not found: %s (run 'tslop rewrite' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, "", err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, "", err
	}
	return s, repoRoot, nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	s, repoRoot, err := openCache()
	if err != nil {
		return outputError("cache list", err)
	}
	defer s.Close()

	units, err := s.Units()
	if err != nil {
		return outputError("cache list", err)
	}
	out := make([]CLICachedUnit, 0, len(units))
	for _, u := range units {
		out = append(out, cachedUnitToCLI(u, relPath(repoRoot, u.Path)))
	}
	return outputResult(CLIResult{Command: "cache list", Results: out})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	s, _, err := openCache()
	if err != nil {
		return outputError("cache clear", err)
	}
	defer s.Close()

	units, err := s.Units()
	if err != nil {
		return outputError("cache clear", err)
	}
	if err := s.Clear(); err != nil {
		return outputError("cache clear", err)
	}
	return outputResult(CLIResult{
		Command: "cache clear",
		Results: fmt.Sprintf("cleared %d cached unit(s)", len(units)),
	})
}

func cachedUnitToCLI(u *store.Unit, path string) CLICachedUnit {
	c := CLICachedUnit{
		Path:      path,
		Hash:      u.Hash,
		Changed:   u.Changed,
		Sites:     u.Sites,
		Rewritten: u.Rewritten,
		Lines:     u.Lines,
	}
	if !u.LastProcessed.IsZero() {
		c.LastProcessed = u.LastProcessed.Format(time.RFC3339)
	}
	return c
}
