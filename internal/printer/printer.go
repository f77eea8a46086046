// Package printer regenerates source text for rewritten trees.
//
// Nodes that came straight from the parser are reproduced byte for byte.
// Rebuilt nodes are printed by splicing their changed children into the
// original text, so whitespace and comments around untouched code survive.
// Only synthesized nodes (the builder calls the rewriter creates) are printed
// from structure, with parentheses added where precedence requires them.
package printer

import (
	"bytes"
	"sort"
	"strings"

	"github.com/jward/tslop/internal/ast"
)

// Edit replaces src[Start:End] with Text. Line is the 1-based line the
// replaced range starts on.
type Edit struct {
	Start int
	End   int
	Text  string
	Line  int
}

// Diff returns the edits that turn the text of old into the text of updated.
// old must be a parsed node; updated is old itself or a tree derived from it
// by the rewriter. The edits never overlap and are ordered by Start.
func Diff(src []byte, old, updated ast.Node) []Edit {
	var edits []Edit
	diff(src, old, updated, &edits)
	return edits
}

func diff(src []byte, old, updated ast.Node, edits *[]Edit) {
	if old == updated {
		return
	}
	sp := old.Pos()
	if updated.Pos().Origin == old && diffChildren(src, old, updated, edits) {
		return
	}
	*edits = append(*edits, Edit{
		Start: sp.Start,
		End:   sp.End,
		Text:  Print(src, updated),
		Line:  sp.Line,
	})
}

// diffChildren pairs the children of a rebuilt node with those of its
// origin. It reports false when the shapes differ and the node has to be
// replaced whole.
func diffChildren(src []byte, old, updated ast.Node, edits *[]Edit) bool {
	was, now := old.Children(), updated.Children()
	if len(was) != len(now) {
		return false
	}
	for i := range was {
		if (was[i] == nil) != (now[i] == nil) {
			return false
		}
	}
	for i := range was {
		if was[i] != nil {
			diff(src, was[i], now[i], edits)
		}
	}
	return true
}

// Apply returns src with edits applied. Edits must not overlap.
func Apply(src []byte, edits []Edit) []byte {
	if len(edits) == 0 {
		return src
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, e := range sorted {
		b.Write(src[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.Write(src[pos:])
	return []byte(b.String())
}

// Lines returns the distinct lines touched by edits, ascending.
func Lines(edits []Edit) []int {
	seen := map[int]bool{}
	var lines []int
	for _, e := range edits {
		if !seen[e.Line] {
			seen[e.Line] = true
			lines = append(lines, e.Line)
		}
	}
	sort.Ints(lines)
	return lines
}

// OutputLine maps a 1-based line of src to the line it occupies after
// edits are applied. Edits starting on or after that line do not shift it.
func OutputLine(src []byte, edits []Edit, line int) int {
	out := line
	for _, e := range edits {
		if e.Line >= line {
			continue
		}
		out += strings.Count(e.Text, "\n") - bytes.Count(src[e.Start:e.End], []byte{'\n'})
	}
	return out
}

// Print returns the source text of n.
func Print(src []byte, n ast.Node) string {
	sp := n.Pos()
	switch {
	case sp.Parsed:
		return string(src[sp.Start:sp.End])
	case sp.Origin != nil:
		return splice(src, n)
	}
	return structural(src, n)
}

func splice(src []byte, n ast.Node) string {
	origin := n.Pos().Origin
	var edits []Edit
	if !diffChildren(src, origin, n, &edits) {
		return structural(src, n)
	}
	sp := origin.Pos()
	for i := range edits {
		edits[i].Start -= sp.Start
		edits[i].End -= sp.Start
	}
	return string(Apply(src[sp.Start:sp.End], edits))
}

func structural(src []byte, n ast.Node) string {
	switch n := n.(type) {
	case *ast.Ident:
		return n.Name
	case *ast.Number:
		return n.Raw
	case *ast.Paren:
		return "(" + Print(src, n.X) + ")"
	case *ast.Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = operand(src, a, precAssign)
		}
		if len(args) == 1 {
			args[0] = gapText(src, n.Gap) + args[0]
		}
		return operand(src, n.Callee, precMember) + "(" + strings.Join(args, ", ") + ")"
	case *ast.Member:
		obj := operand(src, n.Object, precMember)
		inner := ast.Unparen(n.Object)
		if _, ok := inner.(*ast.Number); ok || ast.OptionalChain(inner) {
			obj = "(" + obj + ")"
		}
		if n.Computed {
			return obj + "[" + operand(src, n.Prop, precSequence) + "]"
		}
		return obj + "." + Print(src, n.Prop)
	case *ast.Unary:
		op := n.Op
		if isWordOp(op) {
			op += " "
		}
		return op + operand(src, n.X, precUnary)
	case *ast.Binary:
		p := binaryPrec(n.Op)
		left, right := p, p+1
		if n.Op == "**" {
			left, right = p+1, p
		}
		return operand(src, n.Left, left) + " " + n.Op + " " + operand(src, n.Right, right)
	case *ast.Assign:
		return operand(src, n.Left, precCond) + " " + n.Op + " " + operand(src, n.Right, precAssign)
	case *ast.Cond:
		return operand(src, n.Test, precCond+1) + " ? " +
			operand(src, n.Then, precAssign) + " : " + operand(src, n.Else, precAssign)
	case *ast.Spread:
		return "..." + operand(src, n.X, precAssign)
	}
	// Anything else is only ever reproduced from its own source range.
	sp := n.Pos()
	return string(src[sp.Start:sp.End])
}

// gapText returns the comments and line breaks found around the operator
// of g, to be printed in front of the method argument that replaces the
// right operand. It is empty when the gap holds only spaces.
func gapText(src []byte, g *ast.Gap) string {
	if g == nil || g.Start < 0 || g.End > len(src) || g.Start > g.End {
		return ""
	}
	text := string(src[g.Start:g.End])
	i := operatorIndex(text, g.Op)
	if i < 0 {
		return ""
	}
	out := strings.TrimLeft(text[:i], " \t") + strings.TrimLeft(text[i+len(g.Op):], " \t")
	if !strings.Contains(out, "\n") && !strings.Contains(out, "/*") && !strings.Contains(out, "//") {
		return ""
	}
	return out
}

// operatorIndex returns the offset of op in text, skipping the whitespace
// and comments in front of it, or -1.
func operatorIndex(text, op string) int {
	i := 0
	for i < len(text) {
		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				return -1
			}
			i += end + 1
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return -1
			}
			i += end + 4
		case rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r':
			i++
		case strings.HasPrefix(rest, op):
			return i
		default:
			return -1
		}
	}
	return -1
}

// operand prints e in a position that binds at least as tightly as minPrec.
// Grouping parentheses are dropped and reinserted only where required.
func operand(src []byte, e ast.Expr, minPrec int) string {
	inner := ast.Unparen(e)
	text := Print(src, inner)
	if Precedence(inner) < minPrec {
		return "(" + text + ")"
	}
	return text
}

func isWordOp(op string) bool {
	switch op {
	case "typeof", "void", "delete", "await":
		return true
	}
	return false
}
