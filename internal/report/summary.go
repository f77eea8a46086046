package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/jward/tslop"
)

// Summary counts the units a run processed.
type Summary struct {
	mu sync.Mutex

	Units     int
	Changed   int
	Cached    int
	Skipped   int
	Sites     int
	Rewritten int
	// ChangedUnits lists the ids of changed units in notification order.
	ChangedUnits []string
}

// Observe implements tslop.Observer.
func (s *Summary) Observe(_ context.Context, res *tslop.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Skipped {
		s.Skipped++
		return nil
	}
	s.Units++
	s.Sites += res.Sites
	s.Rewritten += res.Rewritten
	if res.Cached {
		s.Cached++
	}
	if res.Changed {
		s.Changed++
		s.ChangedUnits = append(s.ChangedUnits, res.Unit)
	}
	return nil
}

// Print writes a one-line summary to w.
func (s *Summary) Print(w io.Writer, opts ...Option) {
	p := newPrinter(w, opts)
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := p.paint(color.FgGreen, color.Bold)
	if s.Changed == 0 {
		changed = p.paint(color.Faint)
	}
	fmt.Fprintf(w, "%s of %d unit(s) rewritten, %d callback(s) changed of %d, %d from cache\n",
		changed(s.Changed), s.Units, s.Rewritten, s.Sites, s.Cached)
}
