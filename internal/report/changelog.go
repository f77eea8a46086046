// Package report holds the observers that make rewrites visible: the
// per-line before/after change log, unified diffs, run summaries and the
// Risor hook bridge.
package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/jward/tslop"
)

// Option configures the observers of this package that print.
type Option func(*printer)

// WithColor forces ANSI colors on or off. By default colors follow
// fatih/color's terminal detection.
func WithColor(enabled bool) Option {
	return func(p *printer) {
		p.color = enabled
	}
}

// WithRoot prints unit paths relative to root.
func WithRoot(root string) Option {
	return func(p *printer) {
		p.root = root
	}
}

// WithTag sets the bracketed tag that prefixes every change log entry.
func WithTag(tag string) Option {
	return func(p *printer) {
		p.tag = tag
	}
}

// printer is the shared output state of the printing observers.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	root  string
	tag   string
}

func newPrinter(w io.Writer, opts []Option) *printer {
	p := &printer{out: w, color: !color.NoColor, tag: "tslop"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *printer) paint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if p.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (p *printer) name(unit string) string {
	if p.root == "" {
		return unit
	}
	if rel, err := filepath.Rel(p.root, unit); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return unit
}

// Entry is one changed line of a unit.
type Entry struct {
	// Line is the 1-based line in the original source.
	Line   int
	Before string
	// After is the rewritten line, indentation stripped and prettified.
	After string
}

// Entries returns the change log entries of res: one per changed line whose
// text actually differs once leading indentation is stripped.
func Entries(res *tslop.Result) []Entry {
	if !res.Changed {
		return nil
	}
	before := strings.Split(string(res.Original), "\n")
	after := strings.Split(string(res.Code), "\n")

	var entries []Entry
	for i, line := range res.Lines {
		out := line
		if i < len(res.OutputLines) {
			out = res.OutputLines[i]
		}
		b := strings.TrimLeft(lineAt(before, line), "\t ")
		a := Prettify(strings.TrimLeft(lineAt(after, out), "\t "))
		if b == a {
			continue
		}
		entries = append(entries, Entry{Line: line, Before: b, After: a})
	}
	return entries
}

func lineAt(lines []string, n int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[n-1], "\r")
}

var (
	openParen  = regexp.MustCompile(`\(\s*`)
	closeParen = regexp.MustCompile(`\s*\)`)
)

// Prettify spaces the inside of parentheses, "f(a)" becomes "f( a )", so
// long method chains read more easily in the log.
func Prettify(line string) string {
	line = openParen.ReplaceAllString(line, "( ")
	return closeParen.ReplaceAllString(line, " )")
}

// ChangeLog prints a colored Before/After pair for every changed line of
// every rewritten unit.
type ChangeLog struct {
	p *printer
}

// NewChangeLog returns a ChangeLog writing to w.
func NewChangeLog(w io.Writer, opts ...Option) *ChangeLog {
	return &ChangeLog{p: newPrinter(w, opts)}
}

// Observe implements tslop.Observer.
func (c *ChangeLog) Observe(_ context.Context, res *tslop.Result) error {
	entries := Entries(res)
	if len(entries) == 0 {
		return nil
	}
	tag := c.p.paint(color.FgYellow)
	before := c.p.paint(color.FgRed)
	after := c.p.paint(color.FgGreen)

	var b strings.Builder
	name := c.p.name(res.Unit)
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s (line %d):\n", tag("["+c.p.tag+"]"), name, e.Line)
		fmt.Fprintf(&b, "%s %s\n", before("Before:"), e.Before)
		fmt.Fprintf(&b, "%s %s\n\n", after("After: "), e.After)
	}

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	_, err := io.WriteString(c.p.out, b.String())
	return err
}
