// Package tslop rewrites operator syntax inside shader-graph builder
// callbacks into method chains on the builder API. Inside
//
//	const shade = Fn(() => {
//		return color * (1 - fade)
//	})
//
// the body becomes color.mul(float(1).sub(fade)). Plain numeric arithmetic,
// Math.* expressions and code outside the builder callback keep their native
// operators.
//
// # Pipeline
//
// For every source unit the [Engine]:
//
//  1. Parses the unit with tree-sitter (JavaScript, TypeScript or TSX,
//     picked by extension) and locates the builder calls.
//  2. Scans the "//@tsl" and "//@js" directive comments.
//  3. Rewrites each builder callback and splices the changed expressions
//     back into the original text, leaving everything else byte for byte.
//  4. Notifies observers (change log, unified diff, Risor hooks).
//
// # Usage
//
//	e, err := tslop.New(tslop.WithCache(".tslop/cache.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	// Single unit, the host bundler contract:
//	res, err := e.Transform(ctx, src, "src/shaders/wave.js")
//
//	// A whole tree, honoring .gitignore:
//	results, err := e.TransformDirectory(ctx, "src")
//
// # Cache
//
// With [WithCache] the Engine keeps a SQLite cache keyed by content hash and
// rules fingerprint. Units whose content and rules are unchanged are served
// from the cache without parsing. Changing the rules (builder name,
// condition arguments, ...) invalidates every cached unit.
//
// # Directives
//
// A "//@tsl" comment forces the rewrite of the expression on its line (or the
// line below) even where the rewriter would otherwise keep native operators;
// "//@js" forces the opposite.
package tslop
