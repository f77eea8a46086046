package tslop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/jward/tslop/internal/parser"
	"github.com/jward/tslop/internal/rewrite"
)

// ErrConfigValidation is returned when configuration validation fails.
var ErrConfigValidation = errors.New("configuration validation failed")

// DefaultConfigFile is the config file name looked up at the repository root.
const DefaultConfigFile = ".tslop.yaml"

// Config is the tslop configuration file.
type Config struct {
	// Builder, Promote and Intrinsic override the default "Fn", "float" and
	// "Math" names.
	Builder   string `yaml:"builder"`
	Promote   string `yaml:"promote"`
	Intrinsic string `yaml:"intrinsic"`

	// Extensions restricts which file extensions are processed; empty means
	// every extension the parser supports.
	Extensions []string `yaml:"extensions"`
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the processed root and against base names.
	Exclude []string `yaml:"exclude"`

	// ConditionArgs adds to or replaces entries of the default
	// condition-argument table.
	ConditionArgs map[string][]int `yaml:"condition_args"`
	// Methods and Constructors extend the builder API allow-lists.
	Methods      []string `yaml:"methods"`
	Constructors []string `yaml:"constructors"`

	Logs     *bool       `yaml:"logs"`
	Parallel *bool       `yaml:"parallel"`
	Cache    CacheConfig `yaml:"cache"`
	Hook     HookConfig  `yaml:"hook"`
}

// CacheConfig configures the rewrite cache.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HookConfig names a Risor script run for every changed unit.
type HookConfig struct {
	Script string `yaml:"script"`
	// Dir resolves the script path and its imports; defaults to the
	// directory holding the config file.
	Dir string `yaml:"dir"`
}

// LogsEnabled reports whether the before/after change log is on. Default true.
func (c *Config) LogsEnabled() bool {
	return c.Logs == nil || *c.Logs
}

// ParallelEnabled reports whether the parallel pipeline is on. Default true.
func (c *Config) ParallelEnabled() bool {
	return c.Parallel == nil || *c.Parallel
}

// CacheEnabled reports whether the rewrite cache is on. Default true.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// Rules returns the rewrite rules: the defaults overlaid with the
// configured names, condition arguments and allow-list additions.
func (c *Config) Rules() *rewrite.Rules {
	r := rewrite.DefaultRules()
	if c.Builder != "" {
		r.Builder = c.Builder
	}
	if c.Promote != "" {
		r.Promote = c.Promote
	}
	if c.Intrinsic != "" {
		r.Intrinsic = c.Intrinsic
	}
	for name, positions := range c.ConditionArgs {
		r.ConditionArgs[name] = slices.Clone(positions)
	}
	r.Methods = append(r.Methods, c.Methods...)
	for _, ctor := range c.Constructors {
		if !slices.Contains(r.Constructors, ctor) {
			r.Constructors = append(r.Constructors, ctor)
		}
	}
	return r
}

// Hash fingerprints the rules the config produces. Cached units are only
// reused while it stays the same.
func (c *Config) Hash() string {
	return c.Rules().Fingerprint()
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from configPath. A .env file next to the
// config is loaded first so ${VAR} references in path fields resolve. A
// missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if err := loadEnvFile(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, fmt.Errorf("failed to load environment file: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		expandConfigEnvVars(config)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Strict mode rejects unknown keys.
	var config Config
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandConfigEnvVars(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	if config.Hook.Script != "" && config.Hook.Dir == "" {
		config.Hook.Dir = filepath.Dir(configPath)
	}
	return &config, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// validateConfig validates the configuration for common errors.
func validateConfig(config *Config) error {
	names := map[string]string{
		"builder":   config.Builder,
		"promote":   config.Promote,
		"intrinsic": config.Intrinsic,
	}
	for key, name := range names {
		if name != "" && !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: %s '%s' is not an identifier", ErrConfigValidation, key, name)
		}
	}

	supported := parser.Extensions()
	for _, ext := range config.Extensions {
		if !slices.Contains(supported, normalizeExt(ext)) {
			return fmt.Errorf("%w: unsupported extension '%s': must be one of %s",
				ErrConfigValidation, ext, strings.Join(supported, ", "))
		}
	}

	for _, pattern := range config.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: exclude pattern '%s': %v", ErrConfigValidation, pattern, err)
		}
	}

	for name, positions := range config.ConditionArgs {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: condition_args key '%s' is not an identifier", ErrConfigValidation, name)
		}
		for _, p := range positions {
			if p < 0 {
				return fmt.Errorf("%w: condition_args '%s': negative position %d", ErrConfigValidation, name, p)
			}
		}
	}

	for _, list := range [][]string{config.Methods, config.Constructors} {
		for _, name := range list {
			if !identifierPattern.MatchString(name) {
				return fmt.Errorf("%w: '%s' is not an identifier", ErrConfigValidation, name)
			}
		}
	}
	return nil
}

// normalizeExt lowercases ext and adds the leading dot when missing.
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// loadEnvFile loads a .env file if it exists. Variables already set in the
// environment win.
func loadEnvFile(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// expandConfigEnvVars expands environment variables in path fields.
func expandConfigEnvVars(config *Config) {
	config.Cache.Path = expandEnvVars(config.Cache.Path)
	config.Hook.Script = expandEnvVars(config.Hook.Script)
	config.Hook.Dir = expandEnvVars(config.Hook.Dir)
	for i, pattern := range config.Exclude {
		config.Exclude[i] = expandEnvVars(pattern)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
