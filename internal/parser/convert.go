package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tslop/internal/ast"
)

// converter maps tree-sitter nodes to ast nodes. A converter with an empty
// builder name records no sites.
type converter struct {
	src     []byte
	builder string
	sites   []*Site
}

func (c *converter) span(n *sitter.Node) ast.Span {
	return ast.Span{
		Start:  int(n.StartByte()),
		End:    int(n.EndByte()),
		Line:   int(n.StartPoint().Row) + 1,
		Parsed: true,
	}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func (c *converter) opaque(n *sitter.Node) *ast.Opaque {
	return &ast.Opaque{Span: c.span(n), Kind: n.Type()}
}

// field returns the named field child of n, or nil.
func field(n *sitter.Node, name string) *sitter.Node {
	return n.ChildByFieldName(name)
}

// ---------------------------------------------------------------------------
// Expressions

func (c *converter) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "private_property_identifier":
		return &ast.Ident{Span: c.span(n), Name: c.text(n)}

	case "number":
		return &ast.Number{Span: c.span(n), Raw: c.text(n)}

	case "parenthesized_expression":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.Paren{Span: c.span(n), X: c.expr(inner)}

	case "binary_expression":
		op := field(n, "operator")
		if op == nil {
			return c.opaque(n)
		}
		return &ast.Binary{
			Span:  c.span(n),
			Op:    op.Type(),
			Left:  c.expr(field(n, "left")),
			Right: c.expr(field(n, "right")),
		}

	case "unary_expression":
		op := field(n, "operator")
		if op == nil {
			return c.opaque(n)
		}
		return &ast.Unary{Span: c.span(n), Op: op.Type(), X: c.expr(field(n, "argument"))}

	case "assignment_expression":
		return &ast.Assign{
			Span:  c.span(n),
			Op:    "=",
			Left:  c.pattern(field(n, "left")),
			Right: c.expr(field(n, "right")),
		}

	case "augmented_assignment_expression":
		op := field(n, "operator")
		if op == nil {
			return c.opaque(n)
		}
		return &ast.Assign{
			Span:  c.span(n),
			Op:    op.Type(),
			Left:  c.expr(field(n, "left")),
			Right: c.expr(field(n, "right")),
		}

	case "ternary_expression":
		return &ast.Cond{
			Span: c.span(n),
			Test: c.expr(field(n, "condition")),
			Then: c.expr(field(n, "consequence")),
			Else: c.expr(field(n, "alternative")),
		}

	case "call_expression":
		return c.call(n)

	case "member_expression":
		prop := field(n, "property")
		if prop == nil {
			return c.opaque(n)
		}
		return &ast.Member{
			Span:     c.span(n),
			Object:   c.expr(field(n, "object")),
			Prop:     &ast.Ident{Span: c.span(prop), Name: c.text(prop)},
			Optional: field(n, "optional_chain") != nil,
		}

	case "subscript_expression":
		return &ast.Member{
			Span:     c.span(n),
			Object:   c.expr(field(n, "object")),
			Prop:     c.expr(field(n, "index")),
			Computed: true,
			Optional: field(n, "optional_chain") != nil,
		}

	case "new_expression":
		return c.newExpr(n)

	case "sequence_expression":
		return &ast.Seq{Span: c.span(n), List: c.sequence(n, nil)}

	case "await_expression":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.Unary{Span: c.span(n), Op: "await", X: c.expr(inner)}

	case "as_expression", "satisfies_expression", "non_null_expression":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		kind := "!"
		switch n.Type() {
		case "as_expression":
			kind = "as"
		case "satisfies_expression":
			kind = "satisfies"
		}
		return &ast.Assertion{Span: c.span(n), Kind: kind, X: c.expr(inner)}

	case "arrow_function", "function", "function_expression", "generator_function":
		return c.function(n)

	case "object":
		obj := &ast.Object{Span: c.span(n)}
		for _, child := range namedChildren(n) {
			obj.Props = append(obj.Props, c.property(child))
		}
		return obj

	case "array":
		arr := &ast.Array{Span: c.span(n)}
		for _, child := range namedChildren(n) {
			arr.Elems = append(arr.Elems, c.expr(child))
		}
		return arr

	case "template_string":
		tpl := &ast.Template{Span: c.span(n)}
		for _, child := range namedChildren(n) {
			if child.Type() != "template_substitution" {
				continue
			}
			if inner := firstNamed(child); inner != nil {
				tpl.Subs = append(tpl.Subs, c.expr(inner))
			}
		}
		return tpl

	case "spread_element":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.Spread{Span: c.span(n), X: c.expr(inner)}
	}
	return c.opaque(n)
}

func (c *converter) call(n *sitter.Node) ast.Expr {
	args := field(n, "arguments")
	if args == nil || args.Type() != "arguments" {
		// Tagged templates and other call shapes stay verbatim.
		return c.opaque(n)
	}

	call := &ast.Call{Span: c.span(n), Optional: field(n, "optional_chain") != nil}
	site := -1
	if isBuilderCall(n, c.src, c.builder) {
		c.sites = append(c.sites, &Site{Call: call})
		site = len(c.sites) - 1
	}

	call.Callee = c.expr(field(n, "function"))
	for _, arg := range namedChildren(args) {
		call.Args = append(call.Args, c.expr(arg))
	}

	if site >= 0 {
		fn, ok := call.Args[0].(*ast.Func)
		if !ok {
			c.sites = append(c.sites[:site], c.sites[site+1:]...)
			return call
		}
		c.sites[site].Fn = fn
	}
	return call
}

func (c *converter) newExpr(n *sitter.Node) ast.Expr {
	callee := field(n, "constructor")
	if callee == nil {
		return c.opaque(n)
	}
	expr := &ast.New{Span: c.span(n), Callee: c.expr(callee)}
	args := field(n, "arguments")
	if args == nil {
		expr.Bare = true
		return expr
	}
	if args.Type() != "arguments" {
		return c.opaque(n)
	}
	for _, arg := range namedChildren(args) {
		expr.Args = append(expr.Args, c.expr(arg))
	}
	return expr
}

// sequence flattens nested sequence expressions into one list.
func (c *converter) sequence(n *sitter.Node, list []ast.Expr) []ast.Expr {
	for _, child := range namedChildren(n) {
		if child.Type() == "sequence_expression" {
			list = c.sequence(child, list)
			continue
		}
		list = append(list, c.expr(child))
	}
	return list
}

func (c *converter) function(n *sitter.Node) ast.Expr {
	fn := &ast.Func{Span: c.span(n), Arrow: n.Type() == "arrow_function"}
	if p := field(n, "parameter"); p != nil {
		fn.Params = append(fn.Params, c.pattern(p))
	} else if params := field(n, "parameters"); params != nil {
		for _, p := range namedChildren(params) {
			fn.Params = append(fn.Params, c.pattern(p))
		}
	}

	body := field(n, "body")
	switch {
	case body == nil:
		return c.opaque(n)
	case body.Type() == "statement_block":
		fn.Body = c.block(body)
	default:
		fn.Body = c.expr(body)
	}
	return fn
}

// property converts one entry of an object literal.
func (c *converter) property(n *sitter.Node) ast.Expr {
	switch n.Type() {
	case "pair":
		key, computed := c.key(field(n, "key"))
		return &ast.Prop{
			Span:     c.span(n),
			Key:      key,
			Value:    c.expr(field(n, "value")),
			Computed: computed,
		}
	case "spread_element":
		return c.expr(n)
	}
	// Shorthand properties and methods are never rewritten.
	return c.opaque(n)
}

// key converts a property key, unwrapping computed keys.
func (c *converter) key(n *sitter.Node) (ast.Expr, bool) {
	if n == nil {
		return nil, false
	}
	if n.Type() == "computed_property_name" {
		if inner := firstNamed(n); inner != nil {
			return c.expr(inner), true
		}
	}
	return c.opaque(n), false
}

// ---------------------------------------------------------------------------
// Patterns

func (c *converter) pattern(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "object_pattern":
		obj := &ast.ObjectPattern{Span: c.span(n)}
		for _, child := range namedChildren(n) {
			obj.Props = append(obj.Props, c.patternProp(child))
		}
		return obj

	case "array_pattern":
		arr := &ast.ArrayPattern{Span: c.span(n)}
		for _, child := range namedChildren(n) {
			arr.Elems = append(arr.Elems, c.pattern(child))
		}
		return arr

	case "assignment_pattern":
		return &ast.AssignPattern{
			Span:  c.span(n),
			Left:  c.pattern(field(n, "left")),
			Right: c.expr(field(n, "right")),
		}

	case "rest_pattern":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.Spread{Span: c.span(n), X: c.pattern(inner)}

	case "required_parameter", "optional_parameter":
		// TypeScript parameters carry the pattern, an optional type and an
		// optional default value.
		target := c.pattern(field(n, "pattern"))
		value := field(n, "value")
		if value == nil {
			if target == nil {
				return c.opaque(n)
			}
			return target
		}
		return &ast.AssignPattern{Span: c.span(n), Left: target, Right: c.expr(value)}
	}
	return c.expr(n)
}

func (c *converter) patternProp(n *sitter.Node) ast.Expr {
	switch n.Type() {
	case "pair_pattern":
		key, computed := c.key(field(n, "key"))
		return &ast.PatternProp{
			Span:     c.span(n),
			Key:      key,
			Value:    c.pattern(field(n, "value")),
			Computed: computed,
		}
	case "object_assignment_pattern":
		return &ast.AssignPattern{
			Span:  c.span(n),
			Left:  c.pattern(field(n, "left")),
			Right: c.expr(field(n, "right")),
		}
	case "shorthand_property_identifier_pattern":
		return &ast.Ident{Span: c.span(n), Name: c.text(n)}
	case "rest_pattern":
		return c.pattern(n)
	}
	return c.opaque(n)
}

// ---------------------------------------------------------------------------
// Statements

func (c *converter) block(n *sitter.Node) *ast.Block {
	b := &ast.Block{Span: c.span(n)}
	for _, child := range namedChildren(n) {
		b.Stmts = append(b.Stmts, c.stmt(child))
	}
	return b
}

func (c *converter) stmt(n *sitter.Node) ast.Stmt {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "statement_block":
		return c.block(n)

	case "expression_statement":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.ExprStmt{Span: c.span(n), X: c.expr(inner)}

	case "lexical_declaration", "variable_declaration":
		return c.varDecl(n)

	case "return_statement":
		ret := &ast.Return{Span: c.span(n)}
		if inner := firstNamed(n); inner != nil {
			ret.X = c.expr(inner)
		}
		return ret

	case "if_statement":
		stmt := &ast.If{
			Span: c.span(n),
			Test: c.expr(field(n, "condition")),
			Then: c.stmt(field(n, "consequence")),
		}
		if alt := field(n, "alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = firstNamed(alt)
			}
			if alt != nil {
				stmt.Else = c.stmt(alt)
			}
		}
		return stmt

	case "for_statement":
		loop := &ast.For{
			Span:   c.span(n),
			Init:   c.forInit(field(n, "initializer")),
			Test:   c.forClause(field(n, "condition")),
			Update: c.forClause(field(n, "increment")),
		}
		loop.Body = c.stmt(field(n, "body"))
		return loop

	case "while_statement":
		return &ast.While{
			Span: c.span(n),
			Test: c.expr(field(n, "condition")),
			Body: c.stmt(field(n, "body")),
		}

	case "do_statement":
		return &ast.DoWhile{
			Span: c.span(n),
			Body: c.stmt(field(n, "body")),
			Test: c.expr(field(n, "condition")),
		}

	case "switch_statement":
		return c.switchStmt(n)

	case "for_in_statement":
		return c.forIn(n)

	case "function_declaration", "generator_function_declaration":
		name := field(n, "name")
		fn, ok := c.function(n).(*ast.Func)
		if name == nil || !ok {
			return c.opaque(n)
		}
		return &ast.FuncDecl{
			Span: c.span(n),
			Name: &ast.Ident{Span: c.span(name), Name: c.text(name)},
			Fn:   fn,
		}

	case "try_statement":
		return c.try(n)

	case "labeled_statement":
		label, body := field(n, "label"), field(n, "body")
		if label == nil || body == nil {
			return c.opaque(n)
		}
		return &ast.Labeled{
			Span:  c.span(n),
			Label: &ast.Ident{Span: c.span(label), Name: c.text(label)},
			Body:  c.stmt(body),
		}

	case "throw_statement":
		inner := firstNamed(n)
		if inner == nil {
			return c.opaque(n)
		}
		return &ast.Throw{Span: c.span(n), X: c.expr(inner)}
	}
	return c.opaque(n)
}

func (c *converter) forIn(n *sitter.Node) ast.Stmt {
	left, right, body := field(n, "left"), field(n, "right"), field(n, "body")
	if left == nil || right == nil || body == nil {
		return c.opaque(n)
	}
	loop := &ast.ForIn{Span: c.span(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch tok := n.Child(i); tok.Type() {
		case "var", "let", "const":
			loop.Kind = tok.Type()
		case "of":
			loop.Of = true
		}
	}
	loop.Left = c.pattern(left)
	loop.Right = c.expr(right)
	loop.Body = c.stmt(body)
	return loop
}

func (c *converter) try(n *sitter.Node) ast.Stmt {
	body := field(n, "body")
	handler, finalizer := field(n, "handler"), field(n, "finalizer")
	var handlerBody, finalBody *sitter.Node
	if handler != nil {
		handlerBody = field(handler, "body")
	}
	if finalizer != nil {
		finalBody = field(finalizer, "body")
	}
	if body == nil || (handler != nil && handlerBody == nil) || (finalizer != nil && finalBody == nil) {
		return c.opaque(n)
	}

	stmt := &ast.Try{Span: c.span(n), Body: c.block(body)}
	if handler != nil {
		if param := field(handler, "parameter"); param != nil {
			stmt.Param = c.pattern(param)
		}
		stmt.Handler = c.block(handlerBody)
	}
	if finalizer != nil {
		stmt.Finally = c.block(finalBody)
	}
	return stmt
}

func (c *converter) varDecl(n *sitter.Node) *ast.VarDecl {
	decl := &ast.VarDecl{Span: c.span(n)}
	if n.ChildCount() > 0 {
		decl.Kind = n.Child(0).Type()
	}
	for _, child := range namedChildren(n) {
		if child.Type() != "variable_declarator" {
			continue
		}
		decl.Decls = append(decl.Decls, &ast.Declarator{
			Span: c.span(child),
			Name: c.pattern(field(child, "name")),
			Init: c.expr(field(child, "value")),
		})
	}
	return decl
}

// forInit converts a for-loop initializer. Older grammars wrap expressions
// in an expression_statement; newer ones expose the expression directly.
func (c *converter) forInit(n *sitter.Node) ast.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "lexical_declaration", "variable_declaration":
		return c.varDecl(n)
	case "empty_statement", ";":
		return nil
	}
	return c.forClause(n)
}

func (c *converter) forClause(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "empty_statement", ";":
		return nil
	case "expression_statement":
		return c.expr(firstNamed(n))
	}
	return c.expr(n)
}

func (c *converter) switchStmt(n *sitter.Node) ast.Stmt {
	sw := &ast.Switch{Span: c.span(n), Disc: c.expr(field(n, "value"))}
	body := field(n, "body")
	if body == nil {
		return c.opaque(n)
	}
	for _, clause := range namedChildren(body) {
		cs := &ast.Case{Span: c.span(clause)}
		value := field(clause, "value")
		if clause.Type() == "switch_case" && value != nil {
			cs.Test = c.expr(value)
		}
		for _, child := range namedChildren(clause) {
			if sameNode(child, value) {
				continue
			}
			cs.Body = append(cs.Body, c.stmt(child))
		}
		sw.Cases = append(sw.Cases, cs)
	}
	return sw
}
