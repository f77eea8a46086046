// Package parser turns JavaScript and TypeScript source into the ast the
// rewrite engine works on. Parsing is done by tree-sitter; only the builder
// callbacks (and whatever they contain) are converted, the rest of the unit
// is left as text.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tslop/internal/ast"
)

// Unit is a parsed source unit.
type Unit struct {
	Source   []byte
	Language string

	// Sites lists every builder call in document order. An enclosing site
	// always precedes the sites nested inside it, and nested sites share their
	// nodes with the enclosing site's tree.
	Sites []*Site
}

// Site is one call to the builder entry whose first argument is a function
// literal.
type Site struct {
	Call *ast.Call
	Fn   *ast.Func

	// Scope records the bindings visible at the call from enclosing blocks:
	// true when the nearest binding has a pure numeric initializer, false
	// when it shadows with anything else. Nil for nested sites, which see
	// their enclosing site's scope instead.
	Scope map[string]bool
}

// SyntaxError reports the first error node of a unit that failed to parse.
type SyntaxError struct {
	Line   int
	Column int
	Text   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d near %q", e.Line, e.Column, e.Text)
}

// Parse parses src as lang and collects the calls to builder.
func Parse(ctx context.Context, src []byte, lang, builder string) (*Unit, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("parser: unsupported language %q", lang)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root, src)
	}

	u := &Unit{Source: src, Language: lang}
	findSites(root, src, builder, u)
	return u, nil
}

// findSites walks the tree looking for outermost builder calls. Each one is
// converted in full; the converter records the nested calls it meets.
func findSites(root *sitter.Node, src []byte, builder string, u *Unit) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type() == "call_expression" && isBuilderCall(n, src, builder) {
			c := &converter{src: src, builder: builder}
			first := len(c.sites)
			c.expr(n)
			if len(c.sites) > first {
				c.sites[first].Scope = enclosingScope(n, src)
			}
			u.Sites = append(u.Sites, c.sites...)
			continue
		}

		// Push children in reverse so the walk stays in document order.
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
}

// isBuilderCall reports whether n is builder(<function literal>, ...).
func isBuilderCall(n *sitter.Node, src []byte, builder string) bool {
	if builder == "" {
		return false
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || fn.Content(src) != builder {
		return false
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return false
	}
	first := firstNamed(args)
	return first != nil && isFunctionLiteral(first.Type())
}

func isFunctionLiteral(kind string) bool {
	switch kind {
	case "arrow_function", "function", "function_expression":
		return true
	}
	return false
}

// firstError locates the first ERROR or MISSING node in document order.
func firstError(root *sitter.Node, src []byte) error {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() {
			pt := n.StartPoint()
			text := n.Content(src)
			if len(text) > 40 {
				text = text[:40]
			}
			return &SyntaxError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, Text: text}
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			child := n.Child(i)
			if child.HasError() || child.IsMissing() || child.Type() == "ERROR" {
				stack = append(stack, child)
			}
		}
	}
	pt := root.StartPoint()
	return &SyntaxError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	kids := namedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "comment", "html_comment":
		return true
	}
	return false
}

// sameNode compares nodes by position and kind. Node pointers handed out by
// tree-sitter are not guaranteed to be stable.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
