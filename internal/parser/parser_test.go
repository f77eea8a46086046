package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tslop/internal/ast"
)

func parseJS(t *testing.T, src string) *Unit {
	t.Helper()
	u, err := Parse(context.Background(), []byte(src), "javascript", "Fn")
	require.NoError(t, err)
	return u
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		lang string
		ok   bool
	}{
		{"src/shader.js", "javascript", true},
		{"src/App.JSX", "javascript", true},
		{"lib/node.mjs", "javascript", true},
		{"src/shader.ts", "typescript", true},
		{"src/View.tsx", "tsx", true},
		{"README.md", "", false},
		{"shader.glsl", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			lang, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.lang, lang)
		})
	}
}

func TestGrammarForLanguage(t *testing.T) {
	t.Parallel()
	for _, lang := range []string{"javascript", "typescript", "tsx"} {
		g, ok := GrammarForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, g, lang)
	}
	_, ok := GrammarForLanguage("go")
	assert.False(t, ok)
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), []byte("x"), "cobol", "Fn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), []byte("const f = Fn(() => {\n\treturn a +\n})\n"), "javascript", "Fn")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Positive(t, syntaxErr.Line)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestParse_FindsSites(t *testing.T) {
	t.Parallel()
	u := parseJS(t, "const a = Fn(() => x)\nfoo(() => y)\nexport const b = Fn(function () { return z })\n")
	require.Len(t, u.Sites, 2)

	assert.Equal(t, 1, u.Sites[0].Call.Line)
	assert.True(t, u.Sites[0].Fn.Arrow)
	assert.Equal(t, 3, u.Sites[1].Call.Line)
	assert.False(t, u.Sites[1].Fn.Arrow)
}

func TestParse_IgnoresNonFunctionArguments(t *testing.T) {
	t.Parallel()
	u := parseJS(t, "Fn(callback)\nFn()\nother.Fn(() => a)\n")
	assert.Empty(t, u.Sites)
}

func TestParse_NestedSitesInDocumentOrder(t *testing.T) {
	t.Parallel()
	u := parseJS(t, "const outer = Fn(() => {\n\tconst inner = Fn(() => a + b)\n\treturn inner\n})\n")
	require.Len(t, u.Sites, 2)

	assert.Equal(t, 1, u.Sites[0].Call.Line)
	assert.NotNil(t, u.Sites[0].Scope)
	assert.Equal(t, 2, u.Sites[1].Call.Line)
	assert.Nil(t, u.Sites[1].Scope)

	// The nested site shares its nodes with the enclosing tree.
	body := u.Sites[0].Fn.Body.(*ast.Block)
	decl := body.Stmts[0].(*ast.VarDecl)
	assert.Same(t, u.Sites[1].Call, decl.Decls[0].Init)
}

func TestParse_EnclosingScope(t *testing.T) {
	t.Parallel()
	src := "const k = 2\nlet neg = -1.5\nconst s = k\nexport const e = 3 * 4\nfunction host(k) {\n\tconst local = 1\n\treturn Fn(() => k * local)\n}\n"
	u := parseJS(t, src)
	require.Len(t, u.Sites, 1)

	scope := u.Sites[0].Scope
	assert.False(t, scope["k"], "parameter shadows the pure top-level binding")
	assert.True(t, scope["local"])
	assert.True(t, scope["neg"])
	assert.True(t, scope["e"])
	assert.False(t, scope["s"])
	_, known := scope["host"]
	assert.True(t, known)
}

func TestParse_ConvertsExpressions(t *testing.T) {
	t.Parallel()
	u := parseJS(t, "Fn(() => (a + -1) * b.c[d] >= f(g) ? h : `${i}`)")
	require.Len(t, u.Sites, 1)

	cond, ok := u.Sites[0].Fn.Body.(*ast.Cond)
	require.True(t, ok)

	cmp, ok := cond.Test.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ">=", cmp.Op)

	mul := cmp.Left.(*ast.Binary)
	assert.Equal(t, "*", mul.Op)
	paren := mul.Left.(*ast.Paren)
	add := paren.X.(*ast.Binary)
	assert.Equal(t, "+", add.Op)
	neg := add.Right.(*ast.Unary)
	assert.Equal(t, "-", neg.Op)
	assert.Equal(t, "1", neg.X.(*ast.Number).Raw)

	index := mul.Right.(*ast.Member)
	assert.True(t, index.Computed)
	dot := index.Object.(*ast.Member)
	assert.False(t, dot.Computed)
	assert.Equal(t, "c", dot.Prop.(*ast.Ident).Name)

	call := cmp.Right.(*ast.Call)
	assert.Equal(t, "f", call.Callee.(*ast.Ident).Name)
	require.Len(t, call.Args, 1)

	tpl := cond.Else.(*ast.Template)
	require.Len(t, tpl.Subs, 1)
	assert.Equal(t, "i", tpl.Subs[0].(*ast.Ident).Name)
}

func TestParse_ConvertsStatements(t *testing.T) {
	t.Parallel()
	src := `Fn(() => {
	let a = 1, { b = 2 } = o
	if (a) { a += 1 } else if (b) a = 2
	for (let i = 0; i < 3; i++) {}
	while (a) {}
	do {} while (a)
	switch (a) { case 1: break; default: a = 0 }
	throw a
})`
	u := parseJS(t, src)
	require.Len(t, u.Sites, 1)
	stmts := u.Sites[0].Fn.Body.(*ast.Block).Stmts
	require.Len(t, stmts, 7)

	decl := stmts[0].(*ast.VarDecl)
	assert.Equal(t, "let", decl.Kind)
	require.Len(t, decl.Decls, 2)
	_, isPattern := decl.Decls[1].Name.(*ast.ObjectPattern)
	assert.True(t, isPattern)

	ifStmt := stmts[1].(*ast.If)
	_, elseIf := ifStmt.Else.(*ast.If)
	assert.True(t, elseIf)

	loop := stmts[2].(*ast.For)
	_, declInit := loop.Init.(*ast.VarDecl)
	assert.True(t, declInit)
	assert.NotNil(t, loop.Test)
	assert.IsType(t, &ast.Opaque{}, loop.Update)

	assert.IsType(t, &ast.While{}, stmts[3])
	assert.IsType(t, &ast.DoWhile{}, stmts[4])

	sw := stmts[5].(*ast.Switch)
	require.Len(t, sw.Cases, 2)
	assert.NotNil(t, sw.Cases[0].Test)
	assert.Nil(t, sw.Cases[1].Test)
	assert.Len(t, sw.Cases[1].Body, 1)

	throw := stmts[6].(*ast.Throw)
	assert.Equal(t, "a", throw.X.(*ast.Ident).Name)
}

func TestParse_ConvertsControlForms(t *testing.T) {
	t.Parallel()
	src := `Fn(() => {
	for (const v of list) {}
	for (k in obj) s += k
	function inner(p) { return p }
	try { a() } catch ({ message }) { b() } finally { c() }
	outer: while (a) { break outer }
	try {} finally {}
})`
	u := parseJS(t, src)
	require.Len(t, u.Sites, 1)
	stmts := u.Sites[0].Fn.Body.(*ast.Block).Stmts
	require.Len(t, stmts, 6)

	forOf := stmts[0].(*ast.ForIn)
	assert.Equal(t, "const", forOf.Kind)
	assert.True(t, forOf.Of)
	assert.Equal(t, "v", forOf.Left.(*ast.Ident).Name)
	assert.Equal(t, "list", forOf.Right.(*ast.Ident).Name)
	assert.IsType(t, &ast.Block{}, forOf.Body)

	forIn := stmts[1].(*ast.ForIn)
	assert.Empty(t, forIn.Kind)
	assert.False(t, forIn.Of)
	assert.IsType(t, &ast.ExprStmt{}, forIn.Body)

	decl := stmts[2].(*ast.FuncDecl)
	assert.Equal(t, "inner", decl.Name.Name)
	require.Len(t, decl.Fn.Params, 1)
	assert.IsType(t, &ast.Block{}, decl.Fn.Body)

	try := stmts[3].(*ast.Try)
	assert.Len(t, try.Body.Stmts, 1)
	assert.Equal(t, []string{"message"}, ast.BindingNames(try.Param))
	require.NotNil(t, try.Handler)
	require.NotNil(t, try.Finally)

	labeled := stmts[4].(*ast.Labeled)
	assert.Equal(t, "outer", labeled.Label.Name)
	assert.IsType(t, &ast.While{}, labeled.Body)

	bare := stmts[5].(*ast.Try)
	assert.Nil(t, bare.Param)
	assert.Nil(t, bare.Handler)
	assert.NotNil(t, bare.Finally)
}

func TestParse_ConvertsCallForms(t *testing.T) {
	t.Parallel()
	u := parseJS(t, "Fn(async () => [new Foo(a, b), new Bar, (a, b, c), await load(x), o?.p, o?.[k], f?.(x)])")
	require.Len(t, u.Sites, 1)
	elems := u.Sites[0].Fn.Body.(*ast.Array).Elems
	require.Len(t, elems, 7)

	withArgs := elems[0].(*ast.New)
	assert.False(t, withArgs.Bare)
	assert.Equal(t, "Foo", withArgs.Callee.(*ast.Ident).Name)
	assert.Len(t, withArgs.Args, 2)

	bare := elems[1].(*ast.New)
	assert.True(t, bare.Bare)
	assert.Empty(t, bare.Args)

	seq := elems[2].(*ast.Paren).X.(*ast.Seq)
	require.Len(t, seq.List, 3, "nested sequences are flattened")
	assert.Equal(t, "c", seq.List[2].(*ast.Ident).Name)

	await := elems[3].(*ast.Unary)
	assert.Equal(t, "await", await.Op)
	assert.IsType(t, &ast.Call{}, await.X)

	assert.True(t, elems[4].(*ast.Member).Optional)
	index := elems[5].(*ast.Member)
	assert.True(t, index.Optional)
	assert.True(t, index.Computed)
	assert.True(t, elems[6].(*ast.Call).Optional)
}

func TestParse_TypeScriptAssertions(t *testing.T) {
	t.Parallel()
	u, err := Parse(context.Background(), []byte("Fn(() => [a as Node, b satisfies Node, c!])"), "typescript", "Fn")
	require.NoError(t, err)
	require.Len(t, u.Sites, 1)
	elems := u.Sites[0].Fn.Body.(*ast.Array).Elems
	require.Len(t, elems, 3)

	for i, kind := range []string{"as", "satisfies", "!"} {
		assertion, ok := elems[i].(*ast.Assertion)
		require.True(t, ok, "element %d", i)
		assert.Equal(t, kind, assertion.Kind)
		assert.IsType(t, &ast.Ident{}, assertion.X)
	}
}

func TestParse_SpansAreParsed(t *testing.T) {
	t.Parallel()
	src := "Fn(() => a * b)"
	u := parseJS(t, src)
	require.Len(t, u.Sites, 1)

	body := u.Sites[0].Fn.Body.(*ast.Binary)
	sp := body.Pos()
	assert.True(t, sp.Parsed)
	assert.Equal(t, "a * b", src[sp.Start:sp.End])
	assert.Equal(t, 1, sp.Line)
}

func TestParse_TypeScriptParameters(t *testing.T) {
	t.Parallel()
	u, err := Parse(context.Background(), []byte("Fn((a: number, b = 2, ...rest: number[]) => a)"), "typescript", "Fn")
	require.NoError(t, err)
	require.Len(t, u.Sites, 1)

	params := u.Sites[0].Fn.Params
	require.Len(t, params, 3)
	assert.Equal(t, "a", params[0].(*ast.Ident).Name)
	def := params[1].(*ast.AssignPattern)
	assert.Equal(t, "b", def.Left.(*ast.Ident).Name)
	assert.Equal(t, []string{"rest"}, ast.BindingNames(params[2]))
}
