package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/tslop"
	"github.com/jward/tslop/internal/report"
	"github.com/jward/tslop/internal/runtime"
)

var (
	flagWrite     bool
	flagDiff      bool
	flagCheck     bool
	flagNoCache   bool
	flagForce     bool
	flagHook      string
	flagSerial    bool
	flagStdinName string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [path...]",
	Short: "Rewrite operators inside builder callbacks",
	Long: "Rewrites every JavaScript and TypeScript unit under the given files or directories (default: the current directory). " +
		"Without --write nothing on disk changes. A single '-' reads one unit from stdin and prints the result to stdout.",
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write rewritten units back to disk")
	rewriteCmd.Flags().BoolVar(&flagDiff, "diff", false, "print unified diffs of the rewrites")
	rewriteCmd.Flags().BoolVar(&flagCheck, "check", false, "exit with status 1 if any unit would be rewritten")
	rewriteCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "do not read or write the rewrite cache")
	rewriteCmd.Flags().BoolVar(&flagForce, "force", false, "clear the rewrite cache before running")
	rewriteCmd.Flags().StringVar(&flagHook, "hook", "", "Risor script run for every rewritten unit (overrides hook.script)")
	rewriteCmd.Flags().BoolVar(&flagSerial, "serial", false, "process units one at a time")
	rewriteCmd.Flags().StringVar(&flagStdinName, "stdin-filename", "stdin.js", "unit id used for '-', selects the grammar")
}

// session holds the engine and observers of one rewrite invocation.
type session struct {
	repoRoot string
	cfg      *tslop.Config
	engine   *tslop.Engine
	summary  *report.Summary
	hook     *report.Hook
}

// newSession loads the configuration around startDir and builds an Engine
// with the observers the flags ask for. cached selects the rewrite cache.
func newSession(startDir string, cached bool) (*session, error) {
	repoRoot, cfg, err := loadConfig(startDir)
	if err != nil {
		return nil, err
	}
	s := &session{repoRoot: repoRoot, cfg: cfg, summary: &report.Summary{}}

	errColor := useColor(os.Stderr)
	opts := []tslop.Option{
		tslop.WithConfig(cfg),
		tslop.WithObserver(s.summary),
	}
	if flagSerial {
		opts = append(opts, tslop.WithParallel(false))
	}
	if cfg.LogsEnabled() && !flagDiff {
		opts = append(opts, tslop.WithObserver(report.NewChangeLog(os.Stderr,
			report.WithColor(errColor), report.WithRoot(repoRoot))))
	}
	if flagDiff && flagFormat == "text" {
		opts = append(opts, tslop.WithObserver(report.NewDiffWriter(os.Stdout,
			report.WithColor(useColor(os.Stdout)), report.WithRoot(repoRoot))))
	}

	script, scriptDir := cfg.Hook.Script, cfg.Hook.Dir
	if flagHook != "" {
		abs, err := filepath.Abs(flagHook)
		if err != nil {
			return nil, fmt.Errorf("resolving hook %q: %w", flagHook, err)
		}
		script, scriptDir = abs, filepath.Dir(abs)
	}
	if script != "" {
		// The hook needs the engine's store, so it is attached once the
		// engine exists.
		opts = append(opts, tslop.WithObserver(tslop.ObserverFunc(func(ctx context.Context, res *tslop.Result) error {
			return s.hook.Observe(ctx, res)
		})))
	}

	if cached && cfg.CacheEnabled() && !flagNoCache {
		dbPath := resolveDBPath(repoRoot, cfg.Cache.Path)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
		opts = append(opts, tslop.WithCache(dbPath))
	}

	engine, err := tslop.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	s.engine = engine

	if script != "" {
		rt := runtime.NewRuntime(scriptDir,
			runtime.WithRuntimeStore(engine.Store()),
			runtime.WithRuntimeRules(engine.Rules()),
			runtime.WithLogOutput(os.Stderr))
		s.hook = report.NewHook(rt, script, os.Stderr,
			report.WithColor(errColor), report.WithRoot(repoRoot))
	}

	if flagForce {
		if err := engine.ClearCache(); err != nil {
			engine.Close()
			return nil, fmt.Errorf("clearing cache for --force: %w", err)
		}
	}
	return s, nil
}

func (s *session) Close() error {
	return s.engine.Close()
}

func runRewrite(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] == "-" {
		return runRewriteStdin(cmd.Context(), cmd.InOrStdin())
	}
	start := time.Now()

	targets, err := resolveTargets(args)
	if err != nil {
		return outputError("rewrite", err)
	}
	s, err := newSession(targetDir(targets[0]), true)
	if err != nil {
		return outputError("rewrite", err)
	}
	defer s.Close()

	paths, err := s.expandTargets(targets)
	if err != nil {
		return outputError("rewrite", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, runErr := s.engine.TransformFiles(ctx, paths)

	units := make([]CLIUnit, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		unit := s.unitToCLI(res)
		if flagWrite && res.Changed {
			if err := writeUnit(res); err != nil {
				log.Printf("warning: %v", err)
			} else {
				unit.Written = true
			}
		}
		units = append(units, unit)
	}

	if err := s.output(units, runErr); err != nil {
		return err
	}
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Processed %d unit(s) in %s\n", len(paths), time.Since(start).Round(time.Millisecond))
	}

	if runErr != nil {
		return runErr
	}
	if flagCheck && !flagWrite && s.summary.Changed > 0 {
		return fmt.Errorf("%w: %d", errWouldRewrite, s.summary.Changed)
	}
	return nil
}

// runRewriteStdin rewrites one unit read from r and prints the result.
func runRewriteStdin(ctx context.Context, r io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return outputError("rewrite", fmt.Errorf("reading stdin: %w", err))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return outputError("rewrite", fmt.Errorf("getting cwd: %w", err))
	}
	s, err := newSession(cwd, false)
	if err != nil {
		return outputError("rewrite", err)
	}
	defer s.Close()

	res, err := s.engine.Transform(ctx, src, flagStdinName)
	if res == nil {
		return outputError("rewrite", err)
	}
	if flagFormat == "text" {
		if _, werr := os.Stdout.Write(res.Code); werr != nil {
			return werr
		}
	} else {
		unit := s.unitToCLI(res)
		unit.Code = string(res.Code)
		if oerr := outputResult(CLIResult{Command: "rewrite", Results: unit}); oerr != nil {
			return oerr
		}
	}
	if err != nil {
		// Observer failures never alter the printed output.
		log.Printf("warning: %v", err)
	}
	if flagCheck && res.Changed {
		return fmt.Errorf("%w: 1", errWouldRewrite)
	}
	return nil
}

// output prints the rewrite outcome. In JSON mode runErr is reported in the
// same envelope.
func (s *session) output(units []CLIUnit, runErr error) error {
	if flagFormat == "text" {
		if !flagDiff {
			formatUnitsText(os.Stdout, units)
		}
		s.summary.Print(os.Stderr, report.WithColor(useColor(os.Stderr)))
		return nil
	}
	sum := CLIRewriteSummary{
		Units:     units,
		Changed:   s.summary.Changed,
		Cached:    s.summary.Cached,
		Skipped:   s.summary.Skipped,
		Sites:     s.summary.Sites,
		Rewritten: s.summary.Rewritten,
	}
	result := CLIResult{Command: "rewrite", Results: sum}
	if runErr != nil {
		result.Error = runErr.Error()
		errorHandled = true
	}
	return outputResult(result)
}

func (s *session) unitToCLI(res *tslop.Result) CLIUnit {
	u := CLIUnit{
		Path:      relPath(s.repoRoot, res.Unit),
		Language:  res.Language,
		Changed:   res.Changed,
		Cached:    res.Cached,
		Skipped:   res.Skipped,
		Sites:     res.Sites,
		Rewritten: res.Rewritten,
		Lines:     res.Lines,
	}
	if flagDiff && res.Changed {
		u.Diff = report.UnifiedDiff(u.Path, string(res.Original), string(res.Code))
	}
	return u
}

// relPath returns path relative to root when it lies inside it.
func relPath(root, path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// target is a file or directory named on the command line.
type target struct {
	path string
	dir  bool
}

// resolveTargets returns the absolute targets named by args, defaulting to
// the current directory.
func resolveTargets(args []string) ([]target, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	targets := make([]target, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}
		targets = append(targets, target{path: abs, dir: info.IsDir()})
	}
	return targets, nil
}

// targetDir is the directory the repository lookup starts from.
func targetDir(t target) string {
	if t.dir {
		return t.path
	}
	return filepath.Dir(t.path)
}

// expandTargets lists the units of directory targets. Files named
// explicitly are kept even when their extension is not handled; the engine
// reports them as skipped.
func (s *session) expandTargets(targets []target) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, t := range targets {
		if !t.dir {
			add(t.path)
			continue
		}
		units, err := s.engine.ListUnits(t.path)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", t.path, err)
		}
		for _, u := range units {
			add(u)
		}
	}
	return paths, nil
}

// writeUnit replaces the unit's file with its rewritten code, keeping the
// file mode.
func writeUnit(res *tslop.Result) error {
	info, err := os.Stat(res.Unit)
	if err != nil {
		return fmt.Errorf("writing %s: %w", res.Unit, err)
	}
	if err := os.WriteFile(res.Unit, res.Code, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", res.Unit, err)
	}
	return nil
}
