// Package ast defines the syntax tree the rewrite engine operates on.
//
// The tree is a closed sum type: every expression implements Expr, every
// statement implements Stmt, and both are dispatched with exhaustive type
// switches. Nodes the engine does not understand are kept as Opaque and are
// always reproduced verbatim from the source.
//
// Nodes produced by the parser carry a parsed Span. The rewriter never
// mutates them; a changed node is either rebuilt (same shape, new children,
// Origin pointing at the parsed node it replaces) or synthesized (a new
// builder call with no source text of its own).
package ast

// Span locates a node in the unit's source text.
type Span struct {
	Start int // byte offset of the first byte
	End   int // byte offset one past the last byte
	Line  int // 1-based line of the first token

	// Origin is the parsed node a rebuilt node replaces. Nil for parsed and
	// synthesized nodes.
	Origin Node

	Parsed bool
}

// Pos returns the span itself. Embedding Span gives every node a Pos method.
func (s *Span) Pos() *Span { return s }

// Rebuilt returns the span for a node rebuilt from orig with new children.
func Rebuilt(orig Node) Span {
	sp := orig.Pos()
	origin := orig
	if !sp.Parsed && sp.Origin != nil {
		origin = sp.Origin
	}
	return Span{Start: sp.Start, End: sp.End, Line: sp.Line, Origin: origin}
}

// Synth returns the span for a node synthesized in place of from. Only the
// line is kept so directive lookups keep working on synthesized nodes.
func Synth(from Node) Span {
	return Span{Line: from.Pos().Line}
}

// Node is implemented by every expression and statement.
type Node interface {
	Pos() *Span
	// Children returns the child slots in a fixed order. Rebuilt nodes return
	// slots in the same order as the node they replace; absent children are nil.
	Children() []Node
}

// Expr is an expression or destructuring pattern.
type Expr interface {
	Node
	isExpr()
}

// Stmt is a statement.
type Stmt interface {
	Node
	isStmt()
}

// ---------------------------------------------------------------------------
// Expressions

type Ident struct {
	Span
	Name string
}

// Number is a numeric literal; Raw is its source text.
type Number struct {
	Span
	Raw string
}

type Unary struct {
	Span
	Op string
	X  Expr
}

// Binary covers arithmetic, comparison, logical, nullish and every other
// two-operand operator; Op tells them apart.
type Binary struct {
	Span
	Op    string
	Left  Expr
	Right Expr
}

// Assign is a plain (=) or compound (+=, -=, ...) assignment.
type Assign struct {
	Span
	Op    string
	Left  Expr
	Right Expr
}

// Cond is the ternary conditional.
type Cond struct {
	Span
	Test Expr
	Then Expr
	Else Expr
}

type Call struct {
	Span
	Callee Expr
	Args   []Expr

	// Optional is set for a?.() calls.
	Optional bool

	// Gap is set on a method call synthesized from an operator. It locates
	// the source between the two operands so the printer can keep the
	// comments and line breaks found there.
	Gap *Gap
}

// Gap is the source range between the operands of an operator; Op is the
// operator token inside it.
type Gap struct {
	Start int
	End   int
	Op    string
}

// Member is a property access. Prop is an *Ident for dot access and any
// expression for computed access.
type Member struct {
	Span
	Object   Expr
	Prop     Expr
	Computed bool

	// Optional is set for a?.b and a?.[b].
	Optional bool
}

// New is a constructor call. Bare is set when the argument list is omitted,
// as in new Foo.
type New struct {
	Span
	Callee Expr
	Args   []Expr
	Bare   bool
}

// Seq is a comma-separated expression list.
type Seq struct {
	Span
	List []Expr
}

// Assertion is a TypeScript as, satisfies or non-null (!) assertion. Only
// the asserted expression is modeled; the type is reproduced from source.
type Assertion struct {
	Span
	Kind string // "as", "satisfies" or "!"
	X    Expr
}

// Paren is a parenthesized expression.
type Paren struct {
	Span
	X Expr
}

// Func is an arrow function or function expression. Body is a *Block or,
// for concise arrow bodies, an Expr.
type Func struct {
	Span
	Params []Expr
	Body   Node
	Arrow  bool
}

type Object struct {
	Span
	Props []Expr
}

// Prop is a key: value pair of an object literal.
type Prop struct {
	Span
	Key      Expr
	Value    Expr
	Computed bool
}

type Spread struct {
	Span
	X Expr
}

type Array struct {
	Span
	Elems []Expr
}

// Template is a template literal; only the interpolated expressions are kept.
type Template struct {
	Span
	Subs []Expr
}

// AssignPattern is a destructuring target with a default value.
type AssignPattern struct {
	Span
	Left  Expr
	Right Expr
}

type ObjectPattern struct {
	Span
	Props []Expr
}

// PatternProp is a key: pattern entry of an object pattern.
type PatternProp struct {
	Span
	Key      Expr
	Value    Expr
	Computed bool
}

type ArrayPattern struct {
	Span
	Elems []Expr
}

// Opaque is any expression or statement the engine does not model. Kind is
// the grammar's node type.
type Opaque struct {
	Span
	Kind string
}

func (*Ident) isExpr()         {}
func (*Number) isExpr()        {}
func (*Unary) isExpr()         {}
func (*Binary) isExpr()        {}
func (*Assign) isExpr()        {}
func (*Cond) isExpr()          {}
func (*Call) isExpr()          {}
func (*New) isExpr()           {}
func (*Seq) isExpr()           {}
func (*Assertion) isExpr()     {}
func (*Member) isExpr()        {}
func (*Paren) isExpr()         {}
func (*Func) isExpr()          {}
func (*Object) isExpr()        {}
func (*Prop) isExpr()          {}
func (*Spread) isExpr()        {}
func (*Array) isExpr()         {}
func (*Template) isExpr()      {}
func (*AssignPattern) isExpr() {}
func (*ObjectPattern) isExpr() {}
func (*PatternProp) isExpr()   {}
func (*ArrayPattern) isExpr()  {}
func (*Opaque) isExpr()        {}

// ---------------------------------------------------------------------------
// Statements

type Block struct {
	Span
	Stmts []Stmt
}

type ExprStmt struct {
	Span
	X Expr
}

// VarDecl is a const, let or var declaration.
type VarDecl struct {
	Span
	Kind  string
	Decls []*Declarator
}

type Declarator struct {
	Span
	Name Expr // *Ident or a pattern
	Init Expr
}

type Return struct {
	Span
	X Expr
}

type If struct {
	Span
	Test Expr
	Then Stmt
	Else Stmt
}

// For is a C-style for loop. Init is a *VarDecl, an Expr or nil.
type For struct {
	Span
	Init   Node
	Test   Expr
	Update Expr
	Body   Stmt
}

type While struct {
	Span
	Test Expr
	Body Stmt
}

type DoWhile struct {
	Span
	Body Stmt
	Test Expr
}

// ForIn is a for-in or for-of loop. Kind is the declaration keyword of
// Left, empty when Left is an existing binding.
type ForIn struct {
	Span
	Kind  string
	Left  Expr
	Of    bool
	Right Expr
	Body  Stmt
}

// FuncDecl is a function declaration.
type FuncDecl struct {
	Span
	Name *Ident
	Fn   *Func
}

// Try is a try statement. Param, Handler and Finally are nil when absent.
type Try struct {
	Span
	Body    *Block
	Param   Expr
	Handler *Block
	Finally *Block
}

type Labeled struct {
	Span
	Label *Ident
	Body  Stmt
}

type Throw struct {
	Span
	X Expr
}

type Switch struct {
	Span
	Disc  Expr
	Cases []*Case
}

// Case is a switch clause; Test is nil for default.
type Case struct {
	Span
	Test Expr
	Body []Stmt
}

func (*Block) isStmt()    {}
func (*ExprStmt) isStmt() {}
func (*VarDecl) isStmt()  {}
func (*Return) isStmt()   {}
func (*If) isStmt()       {}
func (*For) isStmt()      {}
func (*While) isStmt()    {}
func (*DoWhile) isStmt()  {}
func (*Switch) isStmt()   {}
func (*ForIn) isStmt()    {}
func (*FuncDecl) isStmt() {}
func (*Try) isStmt()      {}
func (*Labeled) isStmt()  {}
func (*Throw) isStmt()    {}
func (*Opaque) isStmt()   {}

// ---------------------------------------------------------------------------
// Children

func exprs(list []Expr) []Node {
	out := make([]Node, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

func stmts(list []Stmt) []Node {
	out := make([]Node, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

// node converts a possibly-nil interface field to a Node without producing
// a typed nil.
func node[T Node](v T) Node {
	var zero Node
	if any(v) == nil {
		return zero
	}
	return v
}

func blockNode(b *Block) Node {
	if b == nil {
		return nil
	}
	return b
}

func (*Ident) Children() []Node           { return nil }
func (*Number) Children() []Node          { return nil }
func (*Opaque) Children() []Node          { return nil }
func (n *Unary) Children() []Node         { return []Node{node(n.X)} }
func (n *Binary) Children() []Node        { return []Node{node(n.Left), node(n.Right)} }
func (n *Assign) Children() []Node        { return []Node{node(n.Left), node(n.Right)} }
func (n *Cond) Children() []Node          { return []Node{node(n.Test), node(n.Then), node(n.Else)} }
func (n *Member) Children() []Node        { return []Node{node(n.Object), node(n.Prop)} }
func (n *Paren) Children() []Node         { return []Node{node(n.X)} }
func (n *Prop) Children() []Node          { return []Node{node(n.Key), node(n.Value)} }
func (n *Spread) Children() []Node        { return []Node{node(n.X)} }
func (n *Object) Children() []Node        { return exprs(n.Props) }
func (n *Array) Children() []Node         { return exprs(n.Elems) }
func (n *Template) Children() []Node      { return exprs(n.Subs) }
func (n *ObjectPattern) Children() []Node { return exprs(n.Props) }
func (n *ArrayPattern) Children() []Node  { return exprs(n.Elems) }

func (n *AssignPattern) Children() []Node {
	return []Node{node(n.Left), node(n.Right)}
}

func (n *PatternProp) Children() []Node {
	return []Node{node(n.Key), node(n.Value)}
}

func (n *Call) Children() []Node {
	return append([]Node{node(n.Callee)}, exprs(n.Args)...)
}

func (n *New) Children() []Node {
	return append([]Node{node(n.Callee)}, exprs(n.Args)...)
}

func (n *Seq) Children() []Node       { return exprs(n.List) }
func (n *Assertion) Children() []Node { return []Node{node(n.X)} }

func (n *Func) Children() []Node {
	return append(exprs(n.Params), node(n.Body))
}

func (n *Block) Children() []Node    { return stmts(n.Stmts) }
func (n *ExprStmt) Children() []Node { return []Node{node(n.X)} }
func (n *Return) Children() []Node   { return []Node{node(n.X)} }

func (n *VarDecl) Children() []Node {
	out := make([]Node, len(n.Decls))
	for i, d := range n.Decls {
		out[i] = d
	}
	return out
}

func (n *Declarator) Children() []Node { return []Node{node(n.Name), node(n.Init)} }

func (n *If) Children() []Node {
	return []Node{node(n.Test), node(n.Then), node(n.Else)}
}

func (n *For) Children() []Node {
	return []Node{node(n.Init), node(n.Test), node(n.Update), node(n.Body)}
}

func (n *While) Children() []Node   { return []Node{node(n.Test), node(n.Body)} }
func (n *DoWhile) Children() []Node { return []Node{node(n.Body), node(n.Test)} }

func (n *ForIn) Children() []Node {
	return []Node{node(n.Left), node(n.Right), node(n.Body)}
}

func (n *FuncDecl) Children() []Node { return []Node{n.Name, n.Fn} }

func (n *Try) Children() []Node {
	return []Node{blockNode(n.Body), node(n.Param), blockNode(n.Handler), blockNode(n.Finally)}
}

func (n *Labeled) Children() []Node { return []Node{n.Label, node(n.Body)} }
func (n *Throw) Children() []Node   { return []Node{node(n.X)} }

func (n *Switch) Children() []Node {
	out := []Node{node(n.Disc)}
	for _, c := range n.Cases {
		out = append(out, c)
	}
	return out
}

func (n *Case) Children() []Node {
	return append([]Node{node(n.Test)}, stmts(n.Body)...)
}
