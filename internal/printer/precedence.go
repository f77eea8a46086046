package printer

import "github.com/jward/tslop/internal/ast"

// Operator precedence levels, loosest first.
const (
	precNone     = 0
	precSequence = 1
	precAssign   = 2
	precCond     = 3
	precNullish  = 4
	precOr       = 4
	precAnd      = 5
	precBitOr    = 6
	precBitXor   = 7
	precBitAnd   = 8
	precEquality = 9
	precRelation = 10
	precShift    = 11
	precAdditive = 12
	precMultiply = 13
	precExponent = 14
	precUnary    = 15
	precUpdate   = 16
	precMember   = 19
	precPrimary  = 20
)

// Precedence returns how tightly e binds. Higher values bind tighter.
func Precedence(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Ident, *ast.Number, *ast.Paren, *ast.Object, *ast.Array, *ast.Template:
		return precPrimary
	case *ast.Call, *ast.Member:
		return precMember
	case *ast.New:
		if n.Bare {
			return precUnary
		}
		return precMember
	case *ast.Seq:
		return precSequence
	case *ast.Assertion:
		if n.Kind == "!" {
			return precMember
		}
		return precRelation
	case *ast.Unary:
		return precUnary
	case *ast.Binary:
		return binaryPrec(n.Op)
	case *ast.Assign, *ast.Spread:
		return precAssign
	case *ast.Cond:
		return precCond
	case *ast.Func:
		if n.Arrow {
			return precAssign
		}
		return precPrimary
	case *ast.Opaque:
		return opaquePrec(n.Kind)
	}
	return precNone
}

func binaryPrec(op string) int {
	switch op {
	case "??":
		return precNullish
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	case "&":
		return precBitAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", ">", "<=", ">=", "in", "instanceof":
		return precRelation
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiply
	case "**":
		return precExponent
	}
	return precNone
}

// opaquePrec maps grammar node types the ast does not model. Unknown kinds
// get precNone so they are always parenthesized.
func opaquePrec(kind string) int {
	switch kind {
	case "sequence_expression":
		return precSequence
	case "arrow_function", "yield_expression":
		return precAssign
	case "await_expression":
		return precUnary
	case "update_expression":
		return precUpdate
	case "new_expression", "call_expression", "member_expression", "subscript_expression",
		"non_null_expression":
		return precMember
	case "identifier", "this", "super", "true", "false", "null", "undefined",
		"string", "template_string", "regex", "number", "object", "array",
		"class", "function_expression", "parenthesized_expression":
		return precPrimary
	}
	return precNone
}
