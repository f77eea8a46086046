package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tslop/internal/directive"
	"github.com/jward/tslop/internal/parser"
	"github.com/jward/tslop/internal/rewrite"
)

// makeQueryFn creates the "query" host function. Captures come back as plain
// span maps so scripts never hold tree-sitter nodes.
//
// query(source, language, pattern) → [{name: {kind, text, line, column, start, end, site}}]
//
// site is the index into builder_sites of the innermost builder callback
// holding the capture, or -1 when the capture lies outside every callback.
func makeQueryFn(rules *rewrite.Rules) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("query", 3, len(args))
		}
		src, lang, errObj := sourceAndLanguage("query", args)
		if errObj != nil {
			return errObj
		}
		pattern, err := toString(args[2])
		if err != nil {
			return object.Errorf("query: pattern: %v", err)
		}

		grammar, _ := parser.GrammarForLanguage(lang)
		q, err := sitter.NewQuery([]byte(pattern), grammar)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		p := sitter.NewParser()
		defer p.Close()
		p.SetLanguage(grammar)
		tree, err := p.ParseCtx(ctx, nil, src)
		if err != nil {
			return object.Errorf("query: tree-sitter parse failed: %v", err)
		}
		defer tree.Close()

		// Units with syntax errors are still queried; their captures have
		// no site.
		var sites []*parser.Site
		if unit, err := parser.Parse(ctx, src, lang, rules.Builder); err == nil {
			sites = unit.Sites
		}

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, tree.RootNode())

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)
			if len(match.Captures) == 0 {
				continue
			}
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				captures[q.CaptureNameForId(c.Index)] = captureObject(c.Node, src, sites)
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

func captureObject(n *sitter.Node, src []byte, sites []*parser.Site) object.Object {
	start, end := int(n.StartByte()), int(n.EndByte())
	site := -1
	for i, s := range sites {
		if s.Call.Start <= start && end <= s.Call.End {
			site = i
		}
	}
	pt := n.StartPoint()
	return object.NewMap(map[string]object.Object{
		"kind":   object.NewString(n.Type()),
		"text":   object.NewString(n.Content(src)),
		"line":   object.NewInt(int64(pt.Row) + 1),
		"column": object.NewInt(int64(pt.Column) + 1),
		"start":  object.NewInt(int64(start)),
		"end":    object.NewInt(int64(end)),
		"site":   object.NewInt(int64(site)),
	})
}

// makeSyntaxErrorFn creates the "syntax_error" host function.
//
// syntax_error(source, language) → nil or {line, column, text}
func makeSyntaxErrorFn() *object.Builtin {
	return object.NewBuiltin("syntax_error", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("syntax_error", 2, len(args))
		}
		src, lang, errObj := sourceAndLanguage("syntax_error", args)
		if errObj != nil {
			return errObj
		}

		_, err := parser.Parse(ctx, src, lang, "")
		if err == nil {
			return object.Nil
		}
		var synErr *parser.SyntaxError
		if !errors.As(err, &synErr) {
			return object.Errorf("syntax_error: %v", err)
		}
		return object.NewMap(map[string]object.Object{
			"line":   object.NewInt(int64(synErr.Line)),
			"column": object.NewInt(int64(synErr.Column)),
			"text":   object.NewString(synErr.Text),
		})
	})
}

// makeDirectivesFn creates the "directives" host function.
//
// directives(source) → [{line, mode}] in line order, mode "tsl" or "js"
func makeDirectivesFn() *object.Builtin {
	return object.NewBuiltin("directives", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("directives", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("directives: %v", err)
		}

		dirs := directive.Scan([]byte(src))
		results := make([]object.Object, 0, len(dirs))
		for _, line := range dirs.Lines() {
			results = append(results, object.NewMap(map[string]object.Object{
				"line": object.NewInt(int64(line)),
				"mode": object.NewString(dirs[line].String()),
			}))
		}
		return object.NewList(results)
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	prefix string
	out    io.Writer
	mu     sync.Mutex
}

func (l *logObject) write(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s: %s\n", l.prefix, level, msg)
}

func (l *logObject) Info(msg string) {
	l.write("INFO", msg)
}

func (l *logObject) Warn(msg string) {
	l.write("WARN", msg)
}

func (l *logObject) Error(msg string) {
	l.write("ERROR", msg)
}
