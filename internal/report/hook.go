package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/jward/tslop"
	"github.com/jward/tslop/internal/runtime"
)

// Hook runs a Risor script for every rewritten unit. Script failures are
// returned to the Engine, which reports them without touching the output.
type Hook struct {
	rt     *runtime.Runtime
	script string
	p      *printer // nil: emissions are only collected

	mu        sync.Mutex
	emissions []runtime.Emission
}

// NewHook returns a Hook running script with rt. When w is non-nil every
// emission is also printed to it.
func NewHook(rt *runtime.Runtime, script string, w io.Writer, opts ...Option) *Hook {
	h := &Hook{rt: rt, script: script}
	if w != nil {
		h.p = newPrinter(w, opts)
	}
	return h
}

// Observe implements tslop.Observer.
func (h *Hook) Observe(ctx context.Context, res *tslop.Result) error {
	if !res.Changed {
		return nil
	}
	emitted, err := h.rt.RunHook(ctx, h.script, runtime.HookEvent{
		Unit:      res.Unit,
		Language:  res.Language,
		Before:    string(res.Original),
		After:     string(res.Code),
		Lines:     res.Lines,
		Sites:     res.Sites,
		Rewritten: res.Rewritten,
	})

	h.mu.Lock()
	h.emissions = append(h.emissions, emitted...)
	h.mu.Unlock()
	h.print(emitted)

	if err != nil {
		return fmt.Errorf("hook %s: %w", h.script, err)
	}
	return nil
}

// Emissions returns every emission collected so far.
func (h *Hook) Emissions() []runtime.Emission {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]runtime.Emission, len(h.emissions))
	copy(out, h.emissions)
	return out
}

func (h *Hook) print(emitted []runtime.Emission) {
	if h.p == nil || len(emitted) == 0 {
		return
	}
	kind := h.p.paint(color.FgCyan)
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	for _, em := range emitted {
		fmt.Fprintf(h.p.out, "[%s] %s %s: %s\n", h.p.tag, kind(em.Kind), h.p.name(em.Unit), em.Message)
	}
}
