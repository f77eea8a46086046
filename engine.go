package tslop

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/tslop/internal/directive"
	"github.com/jward/tslop/internal/parser"
	"github.com/jward/tslop/internal/rewrite"
	"github.com/jward/tslop/internal/store"
)

// rulesHashKey is the metadata key holding the fingerprint of the rules the
// cached units were produced with.
const rulesHashKey = "rules_hash"

// Engine orchestrates the rewrite pipeline: unit discovery, cache lookup,
// parse and rewrite, cache write and observer notification.
type Engine struct {
	rules     *rewrite.Rules
	rulesHash string

	cachePath string
	store     *store.Store // nil when caching is off

	observers  []Observer
	extensions map[string]bool // nil means every supported extension
	exclude    []string

	// useParallel enables the parallel pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig applies a loaded configuration: rules, extensions, exclusions
// and the parallel switch. Cache and hooks are wired by the caller.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		e.rules = cfg.Rules()
		e.useParallel = cfg.ParallelEnabled()
		if len(cfg.Extensions) > 0 {
			WithExtensions(cfg.Extensions...)(e)
		}
		e.exclude = append(e.exclude, cfg.Exclude...)
	}
}

// WithRules sets the rewrite rules. Defaults to rewrite.DefaultRules.
func WithRules(r *rewrite.Rules) Option {
	return func(e *Engine) {
		e.rules = r
	}
}

// WithCache enables the SQLite rewrite cache at dbPath.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.cachePath = dbPath
	}
}

// WithObserver adds an observer notified for every processed unit, in the
// order units were requested.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithParallel controls the parallel pipeline. When true (default),
// TransformFiles parses and rewrites on a worker pool with a single
// goroutine committing to the cache. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithExtensions restricts which file extensions the Engine processes.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			e.extensions[normalizeExt(ext)] = true
		}
	}
}

// WithExclude adds glob patterns for units to leave alone. Patterns match
// the slash-separated path relative to the processed root, the unit id,
// or the base name.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// New creates an Engine. With WithCache the cache database is opened and
// migrated, and cached units produced under different rules are dropped.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = rewrite.DefaultRules()
	}
	e.rulesHash = e.rules.Fingerprint()

	if e.cachePath != "" {
		s, err := store.NewStore(e.cachePath)
		if err != nil {
			return nil, fmt.Errorf("tslop: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("tslop: migrate: %w", err)
		}
		e.store = s
		if e.RulesChanged() {
			if _, err := s.PruneStale(e.rulesHash); err != nil {
				s.Close()
				return nil, fmt.Errorf("tslop: %w", err)
			}
			e.storeRulesHash()
		}
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the cache store, or nil when caching is off.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Rules returns the rules the Engine rewrites with.
func (e *Engine) Rules() *rewrite.Rules {
	return e.rules
}

// RulesChanged reports whether the rules differ from those the cache was
// built with. Always false without a cache.
func (e *Engine) RulesChanged() bool {
	if e.store == nil {
		return false
	}
	stored, err := e.store.GetMetadata(rulesHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.rulesHash
}

// storeRulesHash persists the current rules fingerprint.
func (e *Engine) storeRulesHash() {
	_ = e.store.SetMetadata(rulesHashKey, e.rulesHash)
}

// ClearCache removes every cached unit.
func (e *Engine) ClearCache() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("tslop: %w", err)
	}
	e.storeRulesHash()
	return nil
}

// Transform rewrites one unit held in memory. unitID picks the grammar by
// extension; units with other extensions, or excluded ones, come back
// unchanged with Skipped set. The cache is not consulted. A parse error is
// returned with no result.
func (e *Engine) Transform(ctx context.Context, src []byte, unitID string) (*Result, error) {
	lang, ok := e.languageFor(unitID)
	if !ok || e.excluded(unitID, "") {
		return skippedResult(unitID, src), nil
	}
	res, err := e.rewriteUnit(ctx, unitID, lang, src)
	if err != nil {
		return nil, err
	}
	return res, e.notify(ctx, res)
}

// TransformFile rewrites the file at path, serving it from the cache when
// its content and the rules are unchanged. The file itself is not written.
func (e *Engine) TransformFile(ctx context.Context, path string) (*Result, error) {
	results, err := e.TransformFiles(ctx, []string{path})
	if len(results) == 0 {
		return nil, err
	}
	return results[0], err
}

// TransformFiles rewrites the given files. Results are returned in input
// order, one per path; a path that failed has a nil entry. When
// WithParallel is enabled, uses a worker pool; otherwise falls back to the
// serial path.
//
// For each file:
//  1. Detect language from extension; skip unsupported or excluded files
//  2. Serve unchanged files (same content hash and rules) from the cache
//  3. Parse, scan directives and rewrite
//  4. Record the outcome in the cache
//  5. Notify observers
//
// Errors on individual files are collected and processing continues.
func (e *Engine) TransformFiles(ctx context.Context, paths []string) ([]*Result, error) {
	if e.useParallel && len(paths) > 1 {
		return e.TransformFilesParallel(ctx, paths)
	}
	return e.transformFilesSerial(ctx, paths)
}

func (e *Engine) transformFilesSerial(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	var errs []error
	for i, path := range paths {
		res, err := e.transformFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("transform %s: %w", path, err))
			continue
		}
		results[i] = res
		if err := e.notify(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("transform had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}

func (e *Engine) transformFile(ctx context.Context, path string) (*Result, error) {
	item, done, err := e.prepareFile(path)
	if err != nil || done != nil {
		return done, err
	}
	res, err := e.rewriteUnit(ctx, item.path, item.lang, item.content)
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.UpsertUnit(e.cacheRecord(res, item.hash)); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	return res, nil
}

// workItem holds everything a rewrite worker needs.
type workItem struct {
	index   int
	path    string
	lang    string
	hash    string
	content []byte
}

// prepareFile reads path and checks the cache. It returns a finished result
// when the file is skipped or cached, and a work item otherwise.
func (e *Engine) prepareFile(path string) (workItem, *Result, error) {
	lang, ok := e.languageFor(path)
	if !ok || e.excluded(path, "") {
		return workItem{}, skippedResult(path, nil), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, nil, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	if e.store != nil {
		cached, err := e.store.UnitByPath(path)
		if err != nil {
			return workItem{}, nil, fmt.Errorf("lookup unit: %w", err)
		}
		if cached.Fresh(hash, e.rulesHash) {
			return workItem{}, cachedResult(cached, lang, content), nil
		}
	}
	return workItem{path: path, lang: lang, hash: hash, content: content}, nil, nil
}

// rewriteUnit runs the core pipeline on one unit.
func (e *Engine) rewriteUnit(ctx context.Context, unitID, lang string, src []byte) (*Result, error) {
	unit, err := parser.Parse(ctx, src, lang, e.rules.Builder)
	if err != nil {
		return nil, err
	}
	out := rewrite.Rewrite(unit, directive.Scan(src), e.rules)
	return &Result{
		Unit:        unitID,
		Language:    lang,
		Changed:     out.Changed,
		Code:        out.Code,
		Original:    src,
		Lines:       out.Lines,
		OutputLines: out.OutputLines,
		Sites:       out.Sites,
		Rewritten:   out.Rewritten,
	}, nil
}

func (e *Engine) cacheRecord(res *Result, hash string) *store.Unit {
	u := &store.Unit{
		Path:          res.Unit,
		Hash:          hash,
		RulesHash:     e.rulesHash,
		Changed:       res.Changed,
		Lines:         res.Lines,
		Sites:         res.Sites,
		Rewritten:     res.Rewritten,
		LastProcessed: time.Now(),
	}
	if res.Changed {
		u.Output = res.Code
	}
	return u
}

func cachedResult(u *store.Unit, lang string, content []byte) *Result {
	res := &Result{
		Unit:      u.Path,
		Language:  lang,
		Changed:   u.Changed,
		Code:      content,
		Original:  content,
		Lines:     u.Lines,
		Sites:     u.Sites,
		Rewritten: u.Rewritten,
		Cached:    true,
	}
	if u.Changed {
		res.Code = u.Output
	}
	return res
}

func skippedResult(unitID string, src []byte) *Result {
	return &Result{Unit: unitID, Code: src, Original: src, Skipped: true}
}

// notify passes res to every observer. Observer errors are collected.
func (e *Engine) notify(ctx context.Context, res *Result) error {
	var errs []error
	for _, o := range e.observers {
		if err := o.Observe(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("observer %s: %w", res.Unit, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("observers had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// languageFor returns the language of a unit id when its extension is
// supported and allowed.
func (e *Engine) languageFor(unitID string) (string, bool) {
	if e.extensions != nil && !e.extensions[strings.ToLower(filepath.Ext(unitID))] {
		return "", false
	}
	return parser.LanguageForFile(unitID)
}

// excluded reports whether path matches an exclude pattern. rel is the path
// relative to the processed root, or "" when there is none.
func (e *Engine) excluded(path, rel string) bool {
	base := filepath.Base(path)
	for _, pattern := range e.exclude {
		for _, candidate := range []string{filepath.ToSlash(path), filepath.ToSlash(rel), base} {
			if candidate == "" {
				continue
			}
			if ok, _ := filepath.Match(pattern, candidate); ok {
				return true
			}
		}
		// A pattern naming a directory excludes everything under it.
		dir := strings.TrimSuffix(pattern, "/") + "/"
		if rel != "" && strings.HasPrefix(filepath.ToSlash(rel), dir) {
			return true
		}
	}
	return false
}

// skipDirs are directories never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
}

// TransformDirectory discovers the source units under root and transforms
// them. If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden directories,
// node_modules and dist) if git is unavailable.
func (e *Engine) TransformDirectory(ctx context.Context, root string) ([]*Result, error) {
	paths, err := e.ListUnits(root)
	if err != nil {
		return nil, err
	}
	return e.TransformFiles(ctx, paths)
}

// ListUnits returns the source units under root that the Engine would
// process, in lexical order.
func (e *Engine) ListUnits(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e.accept(filepath.Join(root, line), line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = ""
		}
		if e.accept(path, rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// accept reports whether a discovered file is a unit to process.
func (e *Engine) accept(path, rel string) bool {
	if _, ok := e.languageFor(path); !ok {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDirs[part] {
			return false
		}
	}
	return !e.excluded(path, rel)
}
