package ast

// IsArithmetic reports whether op is one of the five arithmetic operators.
func IsArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

// IsComparison reports whether op is a relational or equality operator.
func IsComparison(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==", "===", "!=", "!==":
		return true
	}
	return false
}

// IsLogical reports whether op is && or ||.
func IsLogical(op string) bool {
	return op == "&&" || op == "||"
}

// IsPure reports whether e is built only from numeric literals, unary
// negation, grouping and arithmetic operators, i.e. whether it can be
// evaluated without touching any binding.
func IsPure(e Expr) bool {
	switch n := e.(type) {
	case *Number:
		return true
	case *Unary:
		return n.Op == "-" && IsPure(n.X)
	case *Binary:
		return IsArithmetic(n.Op) && IsPure(n.Left) && IsPure(n.Right)
	case *Paren:
		return IsPure(n.X)
	}
	return false
}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}

// Leftmost returns the leftmost operand of an arithmetic chain, looking
// through parentheses. For any other expression it returns e itself.
func Leftmost(e Expr) Expr {
	for {
		switch n := e.(type) {
		case *Binary:
			if !IsArithmetic(n.Op) {
				return e
			}
			e = n.Left
		case *Paren:
			e = n.X
		default:
			return e
		}
	}
}

// BindingNames returns the identifiers bound by a declaration target or
// function parameter, in source order.
func BindingNames(target Expr) []string {
	var names []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *Ident:
			names = append(names, n.Name)
		case *AssignPattern:
			walk(n.Left)
		case *ObjectPattern:
			for _, p := range n.Props {
				walk(p)
			}
		case *PatternProp:
			walk(n.Value)
		case *Spread:
			walk(n.X)
		case *ArrayPattern:
			for _, el := range n.Elems {
				walk(el)
			}
		}
	}
	walk(target)
	return names
}

// OptionalChain reports whether e is an optional chain such as a?.b.c or
// a?.(), where a member access appended to e would be short-circuited too.
// Parentheses end a chain.
func OptionalChain(e Expr) bool {
	for {
		switch n := e.(type) {
		case *Member:
			if n.Optional {
				return true
			}
			e = n.Object
		case *Call:
			if n.Optional {
				return true
			}
			e = n.Callee
		default:
			return false
		}
	}
}
