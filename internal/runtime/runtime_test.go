package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tslop/internal/rewrite"
	"github.com/jward/tslop/internal/store"
)

const jsTestSource = `import { Fn, float } from 'three/tsl'

export const wave = Fn(() => {
	// @js
	const t = time * 2
	return position.y + sin(t)
})
`

func testEvent() HookEvent {
	return HookEvent{
		Unit:      "/src/wave.js",
		Language:  "javascript",
		Before:    "const f = Fn(() => a + b)\n",
		After:     "const f = Fn(() => a.add(b))\n",
		Lines:     []int{1},
		Sites:     1,
		Rewritten: 1,
	}
}

// --- Host functions (via RunSource) ---

func TestRunSource_Query(t *testing.T) {
	rt := NewRuntime("")
	script := `
names := []
for _, m := range query(src, "javascript", "(call_expression function: (identifier) @fn)") {
    names.append(m["fn"]["text"])
    assert(m["fn"]["site"] == 0, 'got site {m["fn"]["site"]}')
}
assert(len(names) == 2, 'expected 2 calls, got {len(names)}')
assert(names[0] == "Fn", 'expected Fn, got {names[0]}')
assert(names[1] == "sin", 'expected sin, got {names[1]}')

imports := query(src, "javascript", "(import_specifier) @imported")
assert(len(imports) == 2)
first := imports[0]["imported"]
assert(first["text"] == "Fn" && first["kind"] == "import_specifier")
assert(first["line"] == 1 && first["column"] == 10, 'got {first["line"]}:{first["column"]}')
assert(first["site"] == -1)
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryTypeScript(t *testing.T) {
	rt := NewRuntime("")
	script := `
found := query("const a: number = 1", "typescript", "(type_annotation) @t")
assert(len(found) == 1)
assert(found[0]["t"]["text"] == ": number", found[0]["t"]["text"])
assert(len(query("const e = <div>{a + b}</div>", "tsx", "(jsx_element) @el")) == 1)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_QueryUnsupportedLanguage(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `query("x", "go", "(identifier) @x")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `query("const v = 1", "javascript", "(not_a_real_node_type @x)")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRunSource_SyntaxError(t *testing.T) {
	rt := NewRuntime("")
	script := `
assert(syntax_error("const v = a * b", "javascript") == nil)
err := syntax_error("const v = (a *", "javascript")
assert(err != nil)
assert(err["line"] == 1, 'got line {err["line"]}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_Directives(t *testing.T) {
	rt := NewRuntime("")
	script := `
found := directives(src)
assert(len(found) == 1, 'expected 1 directive, got {len(found)}')
assert(found[0]["line"] == 4, 'got line {found[0]["line"]}')
assert(found[0]["mode"] == "js", 'got mode {found[0]["mode"]}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_BuilderSites(t *testing.T) {
	rt := NewRuntime("")
	script := `
sites := builder_sites(src, "javascript")
assert(len(sites) == 1, 'expected 1 site, got {len(sites)}')
assert(sites[0]["line"] == 3, 'got line {sites[0]["line"]}')
assert(sites[0]["params"] == 0)
assert(sites[0]["text"].has_prefix("Fn(() => {"))
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_BuilderSitesCustomRules(t *testing.T) {
	rules := rewrite.DefaultRules()
	rules.Builder = "Shader"
	rt := NewRuntime("", WithRuntimeRules(rules))
	script := `
assert(len(builder_sites("const s = Shader(() => a + b)", "javascript")) == 1)
assert(len(builder_sites("const f = Fn(() => a + b)", "javascript")) == 0)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_RewriteSrc(t *testing.T) {
	rt := NewRuntime("")
	script := `
res := rewrite_src(src, "javascript")
assert(res["changed"], "expected a change")
assert(res["rewritten"] == 1)
assert(res["code"].contains("position.y.add(sin(t))"), res["code"])
assert(res["code"].contains("const t = time.mul(2)"), res["code"])
assert(len(res["lines"]) == 2, 'got lines {res["lines"]}')
assert(res["lines"][0] == 5)
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_RewriteSrcSyntaxError(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `rewrite_src("const f = Fn(() => a +", "javascript")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewrite_src")
}

func TestRunSource_LogWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime("", WithLogOutput(&buf))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Equal(t, "[tslop] WARN: careful\n", buf.String())
}

func TestRunSource_NoImport_NoRegression(t *testing.T) {
	rt := NewRuntime("")
	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

// --- Cache host functions ---

func TestRunSource_CachedUnit(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	require.NoError(t, s.UpsertUnit(&store.Unit{
		Path:          "/src/a.js",
		Hash:          "h1",
		RulesHash:     "r1",
		Changed:       true,
		Output:        []byte("a.add(b)"),
		Lines:         []int{2, 5},
		Sites:         2,
		Rewritten:     1,
		LastProcessed: time.Now(),
	}))

	rt := NewRuntime("", WithRuntimeStore(s))
	script := `
u := cached_unit("/src/a.js")
assert(u != nil)
assert(u["changed"] == true)
assert(u["output"] == "a.add(b)")
assert(len(u["lines"]) == 2 && u["lines"][1] == 5)
assert(u["sites"] == 2 && u["rewritten"] == 1)
assert(cached_unit("/missing.js") == nil)
assert(len(cached_units()) == 1)

rows := db_query("SELECT path FROM units WHERE rules_hash = ?", "r1")
assert(len(rows) == 1 && rows[0]["path"] == "/src/a.js")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_DBQueryRejectsWrites(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	rt := NewRuntime("", WithRuntimeStore(s))
	err = rt.RunSource(context.Background(), `db_query("DELETE FROM units")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestRunSource_NoStoreNoCacheFunctions(t *testing.T) {
	rt := NewRuntime("")
	require.Error(t, rt.RunSource(context.Background(), `cached_units()`, nil))
}

// --- Hooks ---

func TestRunHookSource_Globals(t *testing.T) {
	rt := NewRuntime("")
	script := `
assert(unit == "/src/wave.js")
assert(language == "javascript")
assert(before != after)
assert(len(lines) == 1 && lines[0] == 1)
assert(sites == 1 && rewritten == 1)
`
	emitted, err := rt.RunHookSource(context.Background(), script, testEvent())
	require.NoError(t, err)
	assert.Empty(t, emitted)
}

func TestRunHookSource_Emit(t *testing.T) {
	rt := NewRuntime("")
	script := `
emit('rewrote {rewritten} callback(s)')
emit("warning", unit)
`
	emitted, err := rt.RunHookSource(context.Background(), script, testEvent())
	require.NoError(t, err)
	require.Len(t, emitted, 2)
	assert.Equal(t, Emission{Unit: "/src/wave.js", Kind: "info", Message: "rewrote 1 callback(s)"}, emitted[0])
	assert.Equal(t, Emission{Unit: "/src/wave.js", Kind: "warning", Message: "/src/wave.js"}, emitted[1])
}

func TestRunHookSource_EmitBadArgs(t *testing.T) {
	rt := NewRuntime("")
	_, err := rt.RunHookSource(context.Background(), `emit()`, testEvent())
	require.Error(t, err)
}

func TestRunHookSource_KeepsEmissionsOnFailure(t *testing.T) {
	rt := NewRuntime("")
	script := `
emit("before failure")
assert(false, "boom")
`
	emitted, err := rt.RunHookSource(context.Background(), script, testEvent())
	require.Error(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, "before failure", emitted[0].Message)
}

func TestRunHook_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"hooks/count.risor": &fstest.MapFile{Data: []byte(`emit("count", string(len(lines)))`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	emitted, err := rt.RunHook(context.Background(), "/hooks/count.risor", testEvent())
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, "1", emitted[0].Message)
}

func TestRunHook_MissingScript(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	_, err := rt.RunHook(context.Background(), "nope.risor", testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`x := 1`), 0644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	require.Error(t, rt.RunScript(context.Background(), "nonexistent.risor", nil))
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	content := `emit("hello")`
	path := filepath.Join(dir, "hook.risor")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime("")
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	mapFS := fstest.MapFS{
		"hooks/a.risor": &fstest.MapFile{Data: []byte(`x := 1`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/hooks/a.risor")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))
	_, err := rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// FSImporter resolves "lib_helpers" to the flat path "lib_helpers.risor".
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func label(name) {
	return "unit " + name
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers
emit(lib_helpers.label(unit))
`
	emitted, err := rt.RunHookSource(context.Background(), script, testEvent())
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, "unit /src/wave.js", emitted[0].Message)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(dir)
	script := `
import math_utils
result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The imported module references the host-provided log global.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	var buf bytes.Buffer
	rt := NewRuntime("", WithRuntimeFS(mapFS), WithLogOutput(&buf))

	script := `
import helper
helper.do_log("test message")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
	assert.Contains(t, buf.String(), "test message")
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Nil(t, rt.store)
	assert.Equal(t, rewrite.DefaultRules(), rt.rules)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.Equal(t, os.Stderr, rt.logOut)
}
