// Package rewrite turns operator syntax inside builder callbacks into
// method chains on the builder API: a + b * c becomes a.add(b.mul(c)).
//
// The rewrite is a pure function of the parsed unit, its directive map and
// the rules. Parsed nodes are never modified; every changed node is a new
// value and unchanged subtrees are returned by identity, which is how the
// printer finds the edits to apply.
package rewrite

import (
	"github.com/jward/tslop/internal/ast"
	"github.com/jward/tslop/internal/directive"
	"github.com/jward/tslop/internal/parser"
	"github.com/jward/tslop/internal/printer"
)

// Result is the outcome of rewriting one unit.
type Result struct {
	// Changed is false when no builder callback needed a rewrite; Code is
	// then the unmodified source.
	Changed bool
	Code    []byte

	// Edits are the source replacements, ordered by offset.
	Edits []printer.Edit
	// Lines are the 1-based source lines touched by Edits, and OutputLines
	// the line each of them occupies in Code.
	Lines       []int
	OutputLines []int

	// Sites is the number of builder callbacks processed and Rewritten the
	// number of those that changed.
	Sites     int
	Rewritten int
}

type rewriter struct {
	rules  *Rules
	tables tables
	dirs   directive.Map

	sites   map[*ast.Func]*parser.Site
	visited map[*ast.Func]bool
}

// Rewrite rewrites every builder callback of unit. Callbacks nested inside
// another callback are rewritten as part of the enclosing one.
func Rewrite(unit *parser.Unit, dirs directive.Map, rules *Rules) *Result {
	if rules == nil {
		rules = DefaultRules()
	}
	r := &rewriter{
		rules:   rules,
		tables:  rules.tables(),
		dirs:    dirs,
		sites:   make(map[*ast.Func]*parser.Site, len(unit.Sites)),
		visited: make(map[*ast.Func]bool, len(unit.Sites)),
	}
	for _, s := range unit.Sites {
		r.sites[s.Fn] = s
	}

	res := &Result{Code: unit.Source}
	for _, s := range unit.Sites {
		if r.visited[s.Fn] {
			continue
		}
		st := &siteState{}
		outer := frame{pure: pureSet(s.Scope).clone(), site: st}
		fn := r.site(s.Fn, s.Call.Line, outer)
		if !st.changed || fn == ast.Expr(s.Fn) {
			continue
		}
		res.Rewritten++
		res.Edits = append(res.Edits, printer.Diff(unit.Source, s.Fn, fn)...)
	}
	res.Sites = len(r.visited)

	if len(res.Edits) == 0 {
		return res
	}
	res.Changed = true
	res.Code = printer.Apply(unit.Source, res.Edits)
	res.Lines = printer.Lines(res.Edits)
	res.OutputLines = make([]int, len(res.Lines))
	for i, l := range res.Lines {
		res.OutputLines[i] = printer.OutputLine(unit.Source, res.Edits, l)
	}
	return res
}

// site rewrites one builder callback. The site's force flag comes from a
// directive on the call line (or the line above) only; a nested site does
// not inherit the force of the callback around it.
func (r *rewriter) site(fn *ast.Func, line int, outer frame) ast.Expr {
	r.visited[fn] = true
	st := &siteState{}
	f := frame{
		force: r.dirs.Lookup(line) == directive.ForceRewrite,
		pure:  outer.pure,
		site:  st,
	}
	out := r.function(fn, f)
	if st.changed {
		outer.mark()
	}
	return out
}
