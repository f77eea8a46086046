package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func num(raw string) *Number { return &Number{Raw: raw} }
func ident(name string) *Ident { return &Ident{Name: name} }

func bin(op string, l, r Expr) *Binary { return &Binary{Op: op, Left: l, Right: r} }

func TestIsPure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"literal", num("1"), true},
		{"negated literal", &Unary{Op: "-", X: num("2")}, true},
		{"logical not", &Unary{Op: "!", X: num("2")}, false},
		{"arithmetic", bin("-", num("1"), bin("*", num("2"), &Paren{X: bin("+", num("3"), num("4"))})), true},
		{"modulo", bin("%", num("7"), num("2")), true},
		{"identifier", ident("a"), false},
		{"mixed", bin("+", num("1"), ident("a")), false},
		{"comparison", bin(">", num("1"), num("2")), false},
		{"call", &Call{Callee: ident("float"), Args: []Expr{num("1")}}, false},
		{"member", &Member{Object: ident("Math"), Prop: ident("PI")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPure(tt.expr))
		})
	}
}

func TestLeftmost(t *testing.T) {
	t.Parallel()

	pi := &Member{Object: ident("Math"), Prop: ident("PI")}
	assert.Same(t, pi, Leftmost(bin("/", &Paren{X: bin("*", pi, num("2"))}, num("3"))))

	cmp := bin(">", ident("a"), ident("b"))
	assert.Same(t, cmp, Leftmost(cmp), "stops at non-arithmetic operators")
}

func TestUnparen(t *testing.T) {
	t.Parallel()
	a := ident("a")
	assert.Same(t, a, Unparen(&Paren{X: &Paren{X: a}}))
	assert.Same(t, a, Unparen(a))
}

func TestBindingNames(t *testing.T) {
	t.Parallel()
	target := &ObjectPattern{Props: []Expr{
		&AssignPattern{Left: ident("a"), Right: num("1")},
		&PatternProp{Key: ident("b"), Value: &ArrayPattern{Elems: []Expr{ident("c"), &Spread{X: ident("rest")}}}},
	}}
	assert.Equal(t, []string{"a", "c", "rest"}, BindingNames(target))
	assert.Equal(t, []string{"x"}, BindingNames(ident("x")))
}

func TestRebuiltKeepsOrigin(t *testing.T) {
	t.Parallel()
	orig := &Ident{Span: Span{Start: 4, End: 5, Line: 2, Parsed: true}, Name: "a"}
	sp := Rebuilt(orig)
	assert.Equal(t, 4, sp.Start)
	assert.Equal(t, 5, sp.End)
	assert.False(t, sp.Parsed)
	assert.Equal(t, Node(orig), sp.Origin)

	again := &Ident{Span: sp, Name: "a"}
	assert.Equal(t, Node(orig), Rebuilt(again).Origin, "rebuilding a rebuilt node links to the parsed node")

	syn := Synth(orig)
	assert.Equal(t, 2, syn.Line)
	assert.Nil(t, syn.Origin)
	assert.False(t, syn.Parsed)
}
