package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tslop/internal/ast"
)

// enclosingScope collects the bindings visible at n from the blocks and
// functions that enclose it. A name maps to true when its nearest binding is
// initialized with a pure numeric expression and to false otherwise.
func enclosingScope(n *sitter.Node, src []byte) map[string]bool {
	scope := map[string]bool{}
	quiet := &converter{src: src}

	bind := func(name string, pure bool) {
		if _, ok := scope[name]; !ok {
			scope[name] = pure
		}
	}
	bindPattern := func(target *sitter.Node) {
		if target == nil {
			return
		}
		for _, name := range ast.BindingNames(quiet.pattern(target)) {
			bind(name, false)
		}
	}
	declare := func(decl *sitter.Node) {
		for _, d := range namedChildren(decl) {
			if d.Type() != "variable_declarator" {
				continue
			}
			name := field(d, "name")
			if name == nil {
				continue
			}
			if name.Type() != "identifier" {
				bindPattern(name)
				continue
			}
			value := field(d, "value")
			bind(name.Content(src), value != nil && ast.IsPure(quiet.expr(value)))
		}
	}
	statement := func(s *sitter.Node) {
		if s.Type() == "export_statement" {
			if d := field(s, "declaration"); d != nil {
				s = d
			}
		}
		switch s.Type() {
		case "lexical_declaration", "variable_declaration":
			declare(s)
		case "function_declaration", "generator_function_declaration", "class_declaration":
			if name := field(s, "name"); name != nil {
				bind(name.Content(src), false)
			}
		}
	}

	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "program", "statement_block", "switch_case", "switch_default":
			for _, s := range namedChildren(p) {
				statement(s)
			}
		case "for_statement", "for_in_statement":
			if init := field(p, "initializer"); init != nil {
				statement(init)
			}
			if left := field(p, "left"); left != nil {
				bindPattern(left)
			}
		case "arrow_function", "function", "function_expression",
			"function_declaration", "generator_function", "generator_function_declaration",
			"method_definition":
			if param := field(p, "parameter"); param != nil {
				bindPattern(param)
			}
			if params := field(p, "parameters"); params != nil {
				for _, param := range namedChildren(params) {
					bindPattern(param)
				}
			}
		case "catch_clause":
			bindPattern(field(p, "parameter"))
		}
	}
	return scope
}
