package rewrite

import "github.com/jward/tslop/internal/ast"

// block rewrites a block body in its own scope.
func (r *rewriter) block(b *ast.Block, f frame) *ast.Block {
	stmts, changed := r.stmts(b.Stmts, f)
	if !changed {
		return b
	}
	return &ast.Block{Span: ast.Rebuilt(b), Stmts: stmts}
}

// stmts rewrites a statement list as one scope: the pure set is copied,
// declarations are collected in a pre-pass, then every statement is
// rewritten in order.
func (r *rewriter) stmts(list []ast.Stmt, f frame) ([]ast.Stmt, bool) {
	f.pure = f.pure.clone()
	for _, s := range list {
		switch decl := s.(type) {
		case *ast.VarDecl:
			declare(decl, f.pure)
		case *ast.FuncDecl:
			f.pure[decl.Name.Name] = false
		}
	}

	out := make([]ast.Stmt, len(list))
	changed := false
	for i, s := range list {
		out[i] = r.stmt(s, f)
		changed = changed || out[i] != s
	}
	return out, changed
}

// declare records the bindings of decl in pure.
func declare(decl *ast.VarDecl, pure pureSet) {
	for _, d := range decl.Decls {
		if id, ok := d.Name.(*ast.Ident); ok {
			pure[id.Name] = d.Init != nil && ast.IsPure(d.Init)
			continue
		}
		for _, name := range ast.BindingNames(d.Name) {
			pure[name] = false
		}
	}
}

// nested rewrites the body of a control statement. A single statement is
// treated as a one-statement block so it gets a scope of its own.
func (r *rewriter) nested(s ast.Stmt, f frame) ast.Stmt {
	if s == nil {
		return nil
	}
	if b, ok := s.(*ast.Block); ok {
		return r.block(b, f)
	}
	out, _ := r.stmts([]ast.Stmt{s}, f)
	return out[0]
}

func (r *rewriter) stmt(s ast.Stmt, f frame) ast.Stmt {
	f = r.resolve(s, f)

	switch n := s.(type) {
	case *ast.Block:
		return r.block(n, f)

	case *ast.ExprStmt:
		if ast.IsPure(n.X) {
			return n
		}
		x := r.expr(n.X, false, f)
		if x == n.X {
			return n
		}
		return &ast.ExprStmt{Span: ast.Rebuilt(n), X: x}

	case *ast.VarDecl:
		return r.varDecl(n, f)

	case *ast.Return:
		if n.X == nil || ast.IsPure(n.X) {
			return n
		}
		x := r.expr(n.X, false, f.forced())
		if x == n.X {
			return n
		}
		return &ast.Return{Span: ast.Rebuilt(n), X: x}

	case *ast.If:
		test := r.expr(n.Test, false, f)
		then := r.nested(n.Then, f)
		els := r.nested(n.Else, f)
		if test == n.Test && then == n.Then && els == n.Else {
			return n
		}
		return &ast.If{Span: ast.Rebuilt(n), Test: test, Then: then, Else: els}

	case *ast.For:
		return r.forStmt(n, f)

	case *ast.While:
		test := r.expr(n.Test, false, f)
		body := r.nested(n.Body, f)
		if test == n.Test && body == n.Body {
			return n
		}
		return &ast.While{Span: ast.Rebuilt(n), Test: test, Body: body}

	case *ast.DoWhile:
		body := r.nested(n.Body, f)
		test := r.expr(n.Test, false, f)
		if test == n.Test && body == n.Body {
			return n
		}
		return &ast.DoWhile{Span: ast.Rebuilt(n), Body: body, Test: test}

	case *ast.Switch:
		return r.switchStmt(n, f)

	case *ast.ForIn:
		return r.forIn(n, f)

	case *ast.FuncDecl:
		fn := r.function(n.Fn, f)
		if fn == ast.Expr(n.Fn) {
			return n
		}
		return &ast.FuncDecl{Span: ast.Rebuilt(n), Name: n.Name, Fn: fn.(*ast.Func)}

	case *ast.Try:
		return r.try(n, f)

	case *ast.Labeled:
		body := r.nested(n.Body, f)
		if body == n.Body {
			return n
		}
		return &ast.Labeled{Span: ast.Rebuilt(n), Label: n.Label, Body: body}

	case *ast.Throw:
		if ast.IsPure(n.X) {
			return n
		}
		x := r.expr(n.X, false, f)
		if x == n.X {
			return n
		}
		return &ast.Throw{Span: ast.Rebuilt(n), X: x}
	}
	return s
}

// shadow returns a copy of f in which the names bound by target are not
// pure.
func shadow(f frame, target ast.Expr) frame {
	f.pure = f.pure.clone()
	for _, name := range ast.BindingNames(target) {
		f.pure[name] = false
	}
	return f
}

func (r *rewriter) varDecl(n *ast.VarDecl, f frame) ast.Stmt {
	decls := make([]*ast.Declarator, len(n.Decls))
	changed := false
	for i, d := range n.Decls {
		g := r.resolve(d, f)
		name := d.Name
		if _, ok := d.Name.(*ast.Ident); !ok {
			name = r.pattern(d.Name, g)
		}
		init := d.Init
		if init != nil && !ast.IsPure(init) {
			init = r.expr(init, true, g)
		}
		decls[i] = d
		if name != d.Name || init != d.Init {
			decls[i] = &ast.Declarator{Span: ast.Rebuilt(d), Name: name, Init: init}
			changed = true
		}
	}
	if !changed {
		return n
	}
	return &ast.VarDecl{Span: ast.Rebuilt(n), Kind: n.Kind, Decls: decls}
}

func (r *rewriter) forStmt(n *ast.For, f frame) ast.Stmt {
	f.pure = f.pure.clone()

	var init ast.Node
	switch i := n.Init.(type) {
	case *ast.VarDecl:
		declare(i, f.pure)
		init = r.varDecl(i, r.resolve(i, f))
	case ast.Expr:
		init = r.expr(i, false, f)
	default:
		init = n.Init
	}
	test := r.expr(n.Test, false, f)
	update := r.expr(n.Update, false, f)
	body := r.nested(n.Body, f)

	if init == n.Init && test == n.Test && update == n.Update && body == n.Body {
		return n
	}
	return &ast.For{Span: ast.Rebuilt(n), Init: init, Test: test, Update: update, Body: body}
}

// forIn rewrites a for-in or for-of loop. The iterated expression is
// evaluated outside the loop variable's scope.
func (r *rewriter) forIn(n *ast.ForIn, f frame) ast.Stmt {
	right := r.expr(n.Right, false, f)
	g := shadow(f, n.Left)
	left := r.pattern(n.Left, g)
	body := r.nested(n.Body, g)
	if left == n.Left && right == n.Right && body == n.Body {
		return n
	}
	return &ast.ForIn{Span: ast.Rebuilt(n), Kind: n.Kind, Left: left, Of: n.Of, Right: right, Body: body}
}

func (r *rewriter) try(n *ast.Try, f frame) ast.Stmt {
	body := r.block(n.Body, f)
	param, handler := n.Param, n.Handler
	if n.Handler != nil {
		g := shadow(f, n.Param)
		if n.Param != nil {
			param = r.pattern(n.Param, g)
		}
		handler = r.block(n.Handler, g)
	}
	finally := n.Finally
	if n.Finally != nil {
		finally = r.block(n.Finally, f)
	}
	if body == n.Body && param == n.Param && handler == n.Handler && finally == n.Finally {
		return n
	}
	return &ast.Try{Span: ast.Rebuilt(n), Body: body, Param: param, Handler: handler, Finally: finally}
}

func (r *rewriter) switchStmt(n *ast.Switch, f frame) ast.Stmt {
	disc := r.expr(n.Disc, false, f)
	changed := disc != n.Disc

	cases := make([]*ast.Case, len(n.Cases))
	for i, c := range n.Cases {
		test := r.expr(c.Test, false, f)
		body, bodyChanged := r.stmts(c.Body, f)
		cases[i] = c
		if test != c.Test || bodyChanged {
			cases[i] = &ast.Case{Span: ast.Rebuilt(c), Test: test, Body: body}
			changed = true
		}
	}
	if !changed {
		return n
	}
	return &ast.Switch{Span: ast.Rebuilt(n), Disc: disc, Cases: cases}
}
