package tslop

import "context"

// Result is the outcome of transforming one source unit.
type Result struct {
	// Unit is the unit id: the file path for files, the caller's id for
	// Transform.
	Unit     string
	Language string

	// Changed is false when no builder callback needed a rewrite; Code then
	// equals Original.
	Changed  bool
	Code     []byte
	Original []byte

	// Lines are the 1-based lines of Original that changed, and OutputLines
	// the line each of them occupies in Code.
	Lines       []int
	OutputLines []int

	// Sites counts the builder callbacks found and Rewritten those changed.
	Sites     int
	Rewritten int

	// Cached is true when the result came from the cache.
	Cached bool
	// Skipped is true when the unit's extension is not handled or the unit
	// is excluded; nothing was parsed.
	Skipped bool
}

// Observer is notified once for every unit the Engine processes. Observer
// errors are reported by the Engine but never alter the result.
type Observer interface {
	Observe(ctx context.Context, res *Result) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, res *Result) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, res *Result) error {
	return f(ctx, res)
}
