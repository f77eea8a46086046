package rewrite

import (
	"github.com/jward/tslop/internal/ast"
	"github.com/jward/tslop/internal/directive"
)

// pureSet maps binding names to whether the nearest binding is initialized
// with a pure numeric expression. A false entry shadows an outer pure
// binding of the same name.
type pureSet map[string]bool

func (p pureSet) clone() pureSet {
	out := make(pureSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// siteState is the change marker of one builder callback.
type siteState struct {
	changed bool
}

// frame is the context threaded through the recursion. It is passed by
// value; only the pure set and the site marker are shared.
type frame struct {
	force bool
	pure  pureSet
	site  *siteState
}

// forced returns a copy of f with force set.
func (f frame) forced() frame {
	f.force = true
	return f
}

// resolve applies a directive governing n, if any, to the inherited frame.
func (r *rewriter) resolve(n ast.Node, f frame) frame {
	switch r.dirs.Lookup(n.Pos().Line) {
	case directive.ForceRewrite:
		f.force = true
	case directive.ForcePreserve:
		f.force = false
	}
	return f
}

// mark records a substitution in the current callback.
func (f frame) mark() {
	if f.site != nil {
		f.site.changed = true
	}
}
