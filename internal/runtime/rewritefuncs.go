package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/tslop/internal/directive"
	"github.com/jward/tslop/internal/parser"
	"github.com/jward/tslop/internal/rewrite"
)

// makeBuilderSitesFn creates the "builder_sites" host function.
//
// builder_sites(source, language) → [{line, start, end, params, text}]
//
// One entry per builder callback in document order, nested callbacks
// included. Offsets are byte offsets into source.
func makeBuilderSitesFn(rules *rewrite.Rules) *object.Builtin {
	return object.NewBuiltin("builder_sites", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("builder_sites", 2, len(args))
		}
		src, lang, errObj := sourceAndLanguage("builder_sites", args)
		if errObj != nil {
			return errObj
		}

		unit, err := parser.Parse(ctx, src, lang, rules.Builder)
		if err != nil {
			return object.Errorf("builder_sites: %v", err)
		}
		results := make([]object.Object, 0, len(unit.Sites))
		for _, site := range unit.Sites {
			results = append(results, object.NewMap(map[string]object.Object{
				"line":   object.NewInt(int64(site.Call.Line)),
				"start":  object.NewInt(int64(site.Call.Start)),
				"end":    object.NewInt(int64(site.Call.End)),
				"params": object.NewInt(int64(len(site.Fn.Params))),
				"text":   object.NewString(string(src[site.Call.Start:site.Call.End])),
			}))
		}
		return object.NewList(results)
	})
}

// makeRewriteSrcFn creates the "rewrite_src" host function. It runs the
// same rewrite as the engine, directives included, without touching the
// cache.
//
// rewrite_src(source, language) → {changed, code, lines, sites, rewritten}
func makeRewriteSrcFn(rules *rewrite.Rules) *object.Builtin {
	return object.NewBuiltin("rewrite_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("rewrite_src", 2, len(args))
		}
		src, lang, errObj := sourceAndLanguage("rewrite_src", args)
		if errObj != nil {
			return errObj
		}

		unit, err := parser.Parse(ctx, src, lang, rules.Builder)
		if err != nil {
			return object.Errorf("rewrite_src: %v", err)
		}
		res := rewrite.Rewrite(unit, directive.Scan(src), rules)
		return object.NewMap(map[string]object.Object{
			"changed":   object.NewBool(res.Changed),
			"code":      object.NewString(string(res.Code)),
			"lines":     intsToList(res.Lines),
			"sites":     object.NewInt(int64(res.Sites)),
			"rewritten": object.NewInt(int64(res.Rewritten)),
		})
	})
}

// sourceAndLanguage reads the (source, language) argument pair shared by
// the rewrite host functions.
func sourceAndLanguage(name string, args []object.Object) ([]byte, string, object.Object) {
	src, err := toString(args[0])
	if err != nil {
		return nil, "", object.Errorf("%s: source: %v", name, err)
	}
	lang, err := toString(args[1])
	if err != nil {
		return nil, "", object.Errorf("%s: language: %v", name, err)
	}
	if _, ok := parser.GrammarForLanguage(lang); !ok {
		return nil, "", object.Errorf("%s: unsupported language %q", name, lang)
	}
	return []byte(src), lang, nil
}
