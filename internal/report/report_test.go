package report

import (
	"bytes"
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tslop"
	"github.com/jward/tslop/internal/runtime"
)

func changedResult() *tslop.Result {
	return &tslop.Result{
		Unit:        "/repo/src/wave.js",
		Language:    "javascript",
		Changed:     true,
		Original:    []byte("const f = Fn(() => {\n\tconst v = a + b\n\treturn v\n})\n"),
		Code:        []byte("const f = Fn(() => {\n\tconst v = a.add(b)\n\treturn v\n})\n"),
		Lines:       []int{2},
		OutputLines: []int{2},
		Sites:       1,
		Rewritten:   1,
	}
}

// =============================================================================
// Change log
// =============================================================================

func TestPrettify(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"a.add(b)", "a.add( b )"},
		{"f()", "f( )"},
		{"a.mul(b.add( c ))", "a.mul( b.add( c ) )"},
		{"no parens", "no parens"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Prettify(tt.in), tt.in)
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()
	entries := Entries(changedResult())
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Line: 2, Before: "const v = a + b", After: "const v = a.add( b )"}, entries[0])
}

func TestEntries_UnchangedResult(t *testing.T) {
	t.Parallel()
	res := changedResult()
	res.Changed = false
	assert.Empty(t, Entries(res))
}

func TestEntries_FollowsOutputLines(t *testing.T) {
	t.Parallel()
	res := &tslop.Result{
		Changed:     true,
		Original:    []byte("const f = Fn(() => (a\n+ b))\nconst g = Fn(() => c * d)\n"),
		Code:        []byte("const f = Fn(() => a.add(b))\nconst g = Fn(() => c.mul(d))\n"),
		Lines:       []int{1, 3},
		OutputLines: []int{1, 2},
	}
	entries := Entries(res)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[1].Line)
	assert.Equal(t, "const g = Fn(() => c * d)", entries[1].Before)
	assert.Equal(t, "const g = Fn( ( ) => c.mul( d ) )", entries[1].After)
}

func TestChangeLog_Plain(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewChangeLog(&buf, WithColor(false), WithRoot("/repo"))

	require.NoError(t, log.Observe(context.Background(), changedResult()))
	want := "[tslop] src/wave.js (line 2):\n" +
		"Before: const v = a + b\n" +
		"After:  const v = a.add( b )\n\n"
	assert.Equal(t, want, buf.String())
}

func TestChangeLog_Colored(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewChangeLog(&buf, WithColor(true), WithTag("tsl-operator-plugin"))

	require.NoError(t, log.Observe(context.Background(), changedResult()))
	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "tsl-operator-plugin")
	assert.Contains(t, out, "/repo/src/wave.js (line 2)")
}

func TestChangeLog_SkipsUnchanged(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewChangeLog(&buf, WithColor(false))

	require.NoError(t, log.Observe(context.Background(), &tslop.Result{Unit: "a.js", Skipped: true}))
	assert.Empty(t, buf.String())
}

// =============================================================================
// Diffs
// =============================================================================

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()
	res := changedResult()
	diff := UnifiedDiff("src/wave.js", string(res.Original), string(res.Code))

	assert.Contains(t, diff, "--- a/src/wave.js\n")
	assert.Contains(t, diff, "+++ b/src/wave.js\n")
	assert.Contains(t, diff, "-\tconst v = a + b\n")
	assert.Contains(t, diff, "+\tconst v = a.add(b)\n")
	assert.Empty(t, UnifiedDiff("x.js", "same\n", "same\n"))
}

func TestDiffWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewDiffWriter(&buf, WithColor(false), WithRoot("/repo"))

	require.NoError(t, w.Observe(context.Background(), changedResult()))
	assert.Contains(t, buf.String(), "--- a/src/wave.js")
	assert.NotContains(t, buf.String(), "\x1b[")

	buf.Reset()
	res := changedResult()
	res.Changed = false
	require.NoError(t, w.Observe(context.Background(), res))
	assert.Empty(t, buf.String())
}

func TestDiffWriter_Colored(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewDiffWriter(&buf, WithColor(true))

	require.NoError(t, w.Observe(context.Background(), changedResult()))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "const v = a.add(b)")
}

// =============================================================================
// Summary
// =============================================================================

func TestSummary(t *testing.T) {
	t.Parallel()
	s := &Summary{}
	ctx := context.Background()

	require.NoError(t, s.Observe(ctx, changedResult()))
	require.NoError(t, s.Observe(ctx, &tslop.Result{Unit: "b.js", Sites: 2, Cached: true}))
	require.NoError(t, s.Observe(ctx, &tslop.Result{Unit: "c.css", Skipped: true}))

	assert.Equal(t, 2, s.Units)
	assert.Equal(t, 1, s.Changed)
	assert.Equal(t, 1, s.Cached)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 3, s.Sites)
	assert.Equal(t, 1, s.Rewritten)
	assert.Equal(t, []string{"/repo/src/wave.js"}, s.ChangedUnits)

	var buf bytes.Buffer
	s.Print(&buf, WithColor(false))
	assert.Equal(t, "1 of 2 unit(s) rewritten, 1 callback(s) changed of 3, 1 from cache\n", buf.String())
}

// =============================================================================
// Hooks
// =============================================================================

func TestHook_RunsForChangedUnits(t *testing.T) {
	t.Parallel()
	scripts := fstest.MapFS{
		"hook.risor": &fstest.MapFile{Data: []byte(`emit("lines", string(len(lines)))`)},
	}
	var buf bytes.Buffer
	h := NewHook(runtime.NewRuntime("", runtime.WithRuntimeFS(scripts)), "hook.risor", &buf,
		WithColor(false), WithRoot("/repo"))

	require.NoError(t, h.Observe(context.Background(), changedResult()))
	unchanged := changedResult()
	unchanged.Changed = false
	require.NoError(t, h.Observe(context.Background(), unchanged))

	emitted := h.Emissions()
	require.Len(t, emitted, 1)
	assert.Equal(t, runtime.Emission{Unit: "/repo/src/wave.js", Kind: "lines", Message: "1"}, emitted[0])
	assert.Equal(t, "[tslop] lines src/wave.js: 1\n", buf.String())
}

func TestHook_ScriptErrorReported(t *testing.T) {
	t.Parallel()
	scripts := fstest.MapFS{
		"bad.risor": &fstest.MapFile{Data: []byte(`emit("partial")
assert(false, "rejected")`)},
	}
	h := NewHook(runtime.NewRuntime("", runtime.WithRuntimeFS(scripts)), "bad.risor", nil)

	err := h.Observe(context.Background(), changedResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook bad.risor")
	assert.Len(t, h.Emissions(), 1)
}
