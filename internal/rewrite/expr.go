package rewrite

import "github.com/jward/tslop/internal/ast"

// expr rewrites e. leftmost is set when e starts an operator chain the
// caller is building, which allows literal promotion. An unchanged subtree is
// returned by identity.
func (r *rewriter) expr(e ast.Expr, leftmost bool, f frame) ast.Expr {
	if e == nil || r.isPromotion(e) {
		return e
	}
	f = r.resolve(e, f)

	switch n := e.(type) {
	case *ast.Number:
		if leftmost {
			return r.promote(n, f)
		}
	case *ast.Ident:
		if leftmost && f.pure[n.Name] && n.Name != r.rules.Intrinsic {
			return r.promote(n, f)
		}
	case *ast.Binary:
		return r.binary(n, f)
	case *ast.Unary:
		return r.unary(n, leftmost, f)
	case *ast.Assign:
		return r.assign(n, f)
	case *ast.Paren:
		x := r.expr(n.X, leftmost, f)
		if x == n.X {
			return n
		}
		return &ast.Paren{Span: ast.Rebuilt(n), X: x}
	case *ast.Cond:
		test := r.expr(n.Test, false, f)
		then := r.expr(n.Then, false, f)
		els := r.expr(n.Else, false, f)
		if test == n.Test && then == n.Then && els == n.Else {
			return n
		}
		return &ast.Cond{Span: ast.Rebuilt(n), Test: test, Then: then, Else: els}
	case *ast.Call:
		return r.call(n, f)
	case *ast.New:
		callee := r.expr(n.Callee, false, f)
		args, changed := r.list(n.Args, f)
		if !changed && callee == n.Callee {
			return n
		}
		return &ast.New{Span: ast.Rebuilt(n), Callee: callee, Args: args, Bare: n.Bare}
	case *ast.Seq:
		list, changed := r.list(n.List, f)
		if !changed {
			return n
		}
		return &ast.Seq{Span: ast.Rebuilt(n), List: list}
	case *ast.Assertion:
		x := r.expr(n.X, leftmost, f)
		if x == n.X {
			return n
		}
		return &ast.Assertion{Span: ast.Rebuilt(n), Kind: n.Kind, X: x}
	case *ast.Member:
		return r.member(n, f)
	case *ast.Func:
		if r.visited[n] {
			return n
		}
		return r.function(n, f)
	case *ast.Object:
		props, changed := r.list(n.Props, f)
		if !changed {
			return n
		}
		return &ast.Object{Span: ast.Rebuilt(n), Props: props}
	case *ast.Prop:
		key := n.Key
		if n.Computed {
			key = r.expr(n.Key, false, f)
		}
		value := r.expr(n.Value, false, f)
		if key == n.Key && value == n.Value {
			return n
		}
		return &ast.Prop{Span: ast.Rebuilt(n), Key: key, Value: value, Computed: n.Computed}
	case *ast.Spread:
		x := r.expr(n.X, false, f)
		if x == n.X {
			return n
		}
		return &ast.Spread{Span: ast.Rebuilt(n), X: x}
	case *ast.Array:
		elems, changed := r.list(n.Elems, f)
		if !changed {
			return n
		}
		return &ast.Array{Span: ast.Rebuilt(n), Elems: elems}
	case *ast.Template:
		subs, changed := r.list(n.Subs, f)
		if !changed {
			return n
		}
		return &ast.Template{Span: ast.Rebuilt(n), Subs: subs}
	case *ast.AssignPattern, *ast.ObjectPattern, *ast.PatternProp, *ast.ArrayPattern:
		return r.pattern(n, f)
	}
	return e
}

// list rewrites each element of a literal as a non-leftmost value.
func (r *rewriter) list(in []ast.Expr, f frame) ([]ast.Expr, bool) {
	out := make([]ast.Expr, len(in))
	changed := false
	for i, e := range in {
		out[i] = r.expr(e, false, f)
		changed = changed || out[i] != e
	}
	return out, changed
}

func (r *rewriter) binary(n *ast.Binary, f frame) ast.Expr {
	switch {
	case ast.IsArithmetic(n.Op):
		return r.arithmetic(n, f)
	case ast.IsComparison(n.Op):
		return r.gated(n, comparisonMethods[n.Op], f)
	case ast.IsLogical(n.Op):
		return r.gated(n, logicalMethods[n.Op], f)
	}
	// Nullish coalescing and the remaining operators stay native.
	return r.native(n, f)
}

func (r *rewriter) arithmetic(n *ast.Binary, f frame) ast.Expr {
	if ast.IsPure(n) {
		return n
	}
	if r.intrinsicRooted(ast.Leftmost(n)) {
		return r.intrinsicChain(n, f)
	}

	// (x * y) % z is emitted as x.mul(y.mod(z)).
	if mul, ok := ast.Unparen(n.Left).(*ast.Binary); ok && n.Op == "%" && mul.Op == "*" {
		x := r.expr(mul.Left, true, f)
		y := r.expr(mul.Right, true, f)
		z := r.expr(n.Right, false, f)
		mod := r.method(y, "mod", z, gap(n.Left, n.Right, n.Op), f)
		return r.method(x, "mul", mod, gap(mul.Left, mul.Right, mul.Op), f)
	}

	left := r.expr(n.Left, true, f)
	right := r.expr(n.Right, false, f)
	return r.method(left, arithmeticMethods[n.Op], right, gap(n.Left, n.Right, n.Op), f)
}

// intrinsicChain keeps an arithmetic chain rooted at the intrinsic namespace
// native, nested arithmetic included. Operands outside the chain, such as
// call arguments, are still rewritten.
func (r *rewriter) intrinsicChain(e ast.Expr, f frame) ast.Expr {
	switch n := e.(type) {
	case *ast.Binary:
		if !ast.IsArithmetic(n.Op) {
			break
		}
		left := r.intrinsicChain(n.Left, f)
		right := r.intrinsicChain(n.Right, f)
		if left == n.Left && right == n.Right {
			return n
		}
		return &ast.Binary{Span: ast.Rebuilt(n), Op: n.Op, Left: left, Right: right}
	case *ast.Paren:
		x := r.intrinsicChain(n.X, f)
		if x == n.X {
			return n
		}
		return &ast.Paren{Span: ast.Rebuilt(n), X: x}
	}
	return r.expr(e, false, f)
}

// gated rewrites a comparison or logical operator when forced or when an
// operand already carries builder content. Otherwise the operator stays
// native and only its operands are rewritten.
func (r *rewriter) gated(n *ast.Binary, method string, f frame) ast.Expr {
	if ast.IsPure(n.Left) && ast.IsPure(n.Right) {
		return n
	}
	if !f.force && !r.worthy(n.Left) && !r.worthy(n.Right) {
		return r.native(n, f)
	}
	g := f.forced()
	left := r.expr(n.Left, true, g)
	right := r.expr(n.Right, false, g)
	return r.method(left, method, right, gap(n.Left, n.Right, n.Op), f)
}

func (r *rewriter) native(n *ast.Binary, f frame) ast.Expr {
	left := r.expr(n.Left, false, f)
	right := r.expr(n.Right, false, f)
	if left == n.Left && right == n.Right {
		return n
	}
	f.mark()
	return &ast.Binary{Span: ast.Rebuilt(n), Op: n.Op, Left: left, Right: right}
}

func (r *rewriter) unary(n *ast.Unary, leftmost bool, f frame) ast.Expr {
	switch n.Op {
	case "!":
		if ast.IsPure(n.X) {
			return n
		}
		if f.force || r.worthy(n.X) {
			x := r.expr(n.X, true, f.forced())
			return r.method(x, notMethod, nil, nil, f)
		}
	case "-":
		return r.negate(n, leftmost, f)
	}
	x := r.expr(n.X, false, f)
	if x == n.X {
		return n
	}
	f.mark()
	return &ast.Unary{Span: ast.Rebuilt(n), Op: n.Op, X: x}
}

func (r *rewriter) negate(n *ast.Unary, leftmost bool, f frame) ast.Expr {
	if ast.IsPure(n) {
		if leftmost {
			return r.promote(n, f)
		}
		return n
	}
	if id, ok := n.X.(*ast.Ident); ok && f.pure[id.Name] {
		return r.method(r.promote(id, f), "mul", r.minusOne(n), nil, f)
	}
	if r.intrinsicRooted(ast.Leftmost(n.X)) {
		x := r.intrinsicChain(n.X, f)
		if x == n.X {
			return n
		}
		return &ast.Unary{Span: ast.Rebuilt(n), Op: n.Op, X: x}
	}
	x := r.expr(n.X, true, f)
	return r.method(x, "mul", r.minusOne(n), nil, f)
}

func (r *rewriter) assign(n *ast.Assign, f frame) ast.Expr {
	left := r.expr(n.Left, false, f)
	right := r.expr(n.Right, false, f)
	if method, ok := assignMethods[n.Op]; ok {
		return r.method(left, method, right, gap(n.Left, n.Right, n.Op), f)
	}
	if left == n.Left && right == n.Right {
		return n
	}
	f.mark()
	return &ast.Assign{Span: ast.Rebuilt(n), Op: n.Op, Left: left, Right: right}
}

func (r *rewriter) call(n *ast.Call, f frame) ast.Expr {
	callee := r.expr(n.Callee, false, f)
	conditions := r.tables.conditionArgs[calleeName(n.Callee)]

	args := make([]ast.Expr, len(n.Args))
	changed := callee != n.Callee
	for i, arg := range n.Args {
		switch fn, ok := arg.(*ast.Func); {
		case ok && i == 0 && r.sites[fn] != nil && !r.visited[fn]:
			args[i] = r.site(fn, n.Line, f)
		case conditions[i]:
			args[i] = r.expr(arg, false, f.forced())
		default:
			args[i] = r.expr(arg, false, f)
		}
		changed = changed || args[i] != arg
	}
	if !changed {
		return n
	}
	f.mark()
	return &ast.Call{Span: ast.Rebuilt(n), Callee: callee, Args: args, Optional: n.Optional}
}

func (r *rewriter) member(n *ast.Member, f frame) ast.Expr {
	if r.isIntrinsic(n.Object) {
		return n
	}
	object := unwrapReceiver(n.Object, r.expr(n.Object, false, f))
	prop := n.Prop
	if _, literal := n.Prop.(*ast.Number); n.Computed && !literal {
		prop = r.expr(n.Prop, true, f)
	}
	if object == n.Object && prop == n.Prop {
		return n
	}
	f.mark()
	return &ast.Member{Span: ast.Rebuilt(n), Object: object, Prop: prop, Computed: n.Computed, Optional: n.Optional}
}

// unwrapReceiver drops the parentheses around an object that became a
// method call, so (a + b).x prints as a.add(b).x. Parentheses holding
// anything besides the expression, such as comments, are kept.
func unwrapReceiver(orig, rewritten ast.Expr) ast.Expr {
	p, ok := orig.(*ast.Paren)
	q, rebuilt := rewritten.(*ast.Paren)
	if !ok || !rebuilt || p == q {
		return rewritten
	}
	call, ok := q.X.(*ast.Call)
	if !ok || call.Parsed || call.Origin != nil {
		return rewritten
	}
	if inner := p.X.Pos(); inner.Start != p.Start+1 || inner.End != p.End-1 {
		return rewritten
	}
	return call
}

// function rewrites a function literal. Parameters shadow outer pure
// bindings; a concise body is an implicit return.
func (r *rewriter) function(n *ast.Func, f frame) ast.Expr {
	f.pure = f.pure.clone()
	for _, p := range n.Params {
		for _, name := range ast.BindingNames(p) {
			f.pure[name] = false
		}
	}

	params := make([]ast.Expr, len(n.Params))
	changed := false
	for i, p := range n.Params {
		params[i] = r.pattern(p, f)
		changed = changed || params[i] != p
	}

	var body ast.Node
	switch b := n.Body.(type) {
	case *ast.Block:
		body = r.block(b, f)
	case ast.Expr:
		body = b
		if !ast.IsPure(b) {
			body = r.expr(b, false, f.forced())
		}
	default:
		body = n.Body
	}
	if !changed && body == n.Body {
		return n
	}
	f.mark()
	return &ast.Func{Span: ast.Rebuilt(n), Params: params, Body: body, Arrow: n.Arrow}
}

// pattern rewrites a destructuring target. Default values are leftmost.
func (r *rewriter) pattern(e ast.Expr, f frame) ast.Expr {
	switch n := e.(type) {
	case *ast.AssignPattern:
		left := r.pattern(n.Left, f)
		right := r.expr(n.Right, true, f)
		if left == n.Left && right == n.Right {
			return n
		}
		f.mark()
		return &ast.AssignPattern{Span: ast.Rebuilt(n), Left: left, Right: right}
	case *ast.ObjectPattern:
		props := make([]ast.Expr, len(n.Props))
		changed := false
		for i, p := range n.Props {
			props[i] = r.pattern(p, f)
			changed = changed || props[i] != p
		}
		if !changed {
			return n
		}
		f.mark()
		return &ast.ObjectPattern{Span: ast.Rebuilt(n), Props: props}
	case *ast.PatternProp:
		key := n.Key
		if n.Computed {
			key = r.expr(n.Key, true, f)
		}
		value := r.pattern(n.Value, f)
		if key == n.Key && value == n.Value {
			return n
		}
		f.mark()
		return &ast.PatternProp{Span: ast.Rebuilt(n), Key: key, Value: value, Computed: n.Computed}
	case *ast.ArrayPattern:
		elems := make([]ast.Expr, len(n.Elems))
		changed := false
		for i, el := range n.Elems {
			elems[i] = r.pattern(el, f)
			changed = changed || elems[i] != el
		}
		if !changed {
			return n
		}
		f.mark()
		return &ast.ArrayPattern{Span: ast.Rebuilt(n), Elems: elems}
	case *ast.Spread:
		x := r.pattern(n.X, f)
		if x == n.X {
			return n
		}
		f.mark()
		return &ast.Spread{Span: ast.Rebuilt(n), X: x}
	}
	return e
}

// worthy reports whether e already carries builder content: arithmetic, a
// compound assignment, or a call to a known output-API method or
// constructor. It looks through operators and grouping.
func (r *rewriter) worthy(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Binary:
		return ast.IsArithmetic(n.Op) || r.worthy(n.Left) || r.worthy(n.Right)
	case *ast.Unary:
		return r.worthy(n.X)
	case *ast.Paren:
		return r.worthy(n.X)
	case *ast.Assertion:
		return r.worthy(n.X)
	case *ast.Assign:
		_, compound := assignMethods[n.Op]
		return compound
	case *ast.Call:
		switch callee := n.Callee.(type) {
		case *ast.Member:
			if prop, ok := callee.Prop.(*ast.Ident); ok && !callee.Computed {
				return r.tables.methods[prop.Name]
			}
		case *ast.Ident:
			return r.tables.constructors[callee.Name]
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Node construction

// method emits recv.name(arg). A pure receiver is promoted first so the
// chain can start from it. A nil arg emits a call without arguments. g is
// the operator gap the call replaces, if any.
func (r *rewriter) method(recv ast.Expr, name string, arg ast.Expr, g *ast.Gap, f frame) ast.Expr {
	if ast.IsPure(recv) {
		recv = r.promote(recv, f)
	}
	f.mark()
	call := &ast.Call{
		Span: ast.Synth(recv),
		Callee: &ast.Member{
			Span:   ast.Synth(recv),
			Object: recv,
			Prop:   &ast.Ident{Span: ast.Synth(recv), Name: name},
		},
	}
	if arg != nil {
		call.Args = []ast.Expr{arg}
		call.Gap = g
	}
	return call
}

// gap locates the operator between two parsed operands.
func gap(left, right ast.Node, op string) *ast.Gap {
	l, r := left.Pos(), right.Pos()
	if !l.Parsed || !r.Parsed || l.End > r.Start {
		return nil
	}
	return &ast.Gap{Start: l.End, End: r.Start, Op: op}
}

// promote wraps e in the literal-promotion constructor.
func (r *rewriter) promote(e ast.Expr, f frame) ast.Expr {
	f.mark()
	return &ast.Call{
		Span:   ast.Synth(e),
		Callee: &ast.Ident{Span: ast.Synth(e), Name: r.rules.Promote},
		Args:   []ast.Expr{e},
	}
}

func (r *rewriter) minusOne(from ast.Node) ast.Expr {
	return &ast.Number{Span: ast.Synth(from), Raw: "-1"}
}

// isPromotion reports whether e is already a promotion call.
func (r *rewriter) isPromotion(e ast.Expr) bool {
	call, ok := e.(*ast.Call)
	if !ok || len(call.Args) != 1 {
		return false
	}
	id, ok := call.Callee.(*ast.Ident)
	return ok && id.Name == r.rules.Promote
}

func (r *rewriter) isIntrinsic(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == r.rules.Intrinsic
}

// intrinsicRooted reports whether e is a member access on the intrinsic
// namespace.
func (r *rewriter) intrinsicRooted(e ast.Expr) bool {
	m, ok := e.(*ast.Member)
	return ok && r.isIntrinsic(m.Object)
}

// calleeName returns the identifier or member property a call is keyed by
// in the condition-argument table.
func calleeName(callee ast.Expr) string {
	switch c := callee.(type) {
	case *ast.Ident:
		return c.Name
	case *ast.Member:
		if id, ok := c.Prop.(*ast.Ident); ok && !c.Computed {
			return id.Name
		}
	}
	return ""
}
