package tslop

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tslop/internal/rewrite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), DefaultConfigFile))
	require.NoError(t, err)

	assert.True(t, cfg.LogsEnabled())
	assert.True(t, cfg.ParallelEnabled())
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, rewrite.DefaultRules().Fingerprint(), cfg.Hash())
}

func TestLoadConfig_Full(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
builder: Shader
promote: f32
intrinsic: MathUtils
extensions: [ts, .tsx]
exclude: ["vendor/**", "*.min.js"]
condition_args:
  when: [0]
  mix: [2, 3]
methods: [remap]
constructors: [texture, float]
logs: false
parallel: false
cache:
  enabled: false
  path: tmp/cache.db
hook:
  script: hooks/report.risor
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.LogsEnabled())
	assert.False(t, cfg.ParallelEnabled())
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, "tmp/cache.db", cfg.Cache.Path)
	assert.Equal(t, "hooks/report.risor", cfg.Hook.Script)
	assert.Equal(t, filepath.Dir(path), cfg.Hook.Dir)

	r := cfg.Rules()
	assert.Equal(t, "Shader", r.Builder)
	assert.Equal(t, "f32", r.Promote)
	assert.Equal(t, "MathUtils", r.Intrinsic)
	assert.Equal(t, []int{0}, r.ConditionArgs["when"])
	assert.Equal(t, []int{2, 3}, r.ConditionArgs["mix"])
	assert.Equal(t, []int{0}, r.ConditionArgs["If"])
	assert.Contains(t, r.Methods, "remap")
	assert.Contains(t, r.Constructors, "texture")
	assert.NotEqual(t, rewrite.DefaultRules().Fingerprint(), cfg.Hash())

	count := 0
	for _, c := range r.Constructors {
		if c == "float" {
			count++
		}
	}
	assert.Equal(t, 1, count, "constructors are not duplicated")
}

func TestLoadConfig_RulesDoNotLeakIntoDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "condition_args:\n  If: [1]\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, cfg.Rules().ConditionArgs["If"])
	assert.Equal(t, []int{0}, rewrite.DefaultRules().ConditionArgs["If"])
}

func TestLoadConfig_UnknownKeyRejected(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "builder: Fn\nbuildr: Typo\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"builder not identifier", "builder: my-fn\n", "builder 'my-fn' is not an identifier"},
		{"unsupported extension", "extensions: [css]\n", "unsupported extension 'css'"},
		{"bad exclude pattern", "exclude: ['[']\n", "exclude pattern '['"},
		{"negative position", "condition_args:\n  when: [-1]\n", "negative position -1"},
		{"bad method name", "methods: ['a.b']\n", "'a.b' is not an identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TSLOP_TEST_CACHE", "/var/cache/tslop")
	path := writeConfig(t, "cache:\n  path: ${TSLOP_TEST_CACHE}/units.db\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/tslop/units.db", cfg.Cache.Path)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { os.Unsetenv("TSLOP_TEST_HOOKS") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TSLOP_TEST_HOOKS=/opt/hooks\n"), 0o644))
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("hook:\n  script: ${TSLOP_TEST_HOOKS}/log.risor\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/hooks/log.risor", cfg.Hook.Script)
}

func TestNormalizeExt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ".ts", normalizeExt("TS"))
	assert.Equal(t, ".mjs", normalizeExt(".mjs"))
}
