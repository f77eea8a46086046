package runtime

import (
	"context"
	"sync"

	"github.com/risor-io/risor/object"
)

// HookEvent describes one rewritten unit as seen by a hook script.
type HookEvent struct {
	Unit     string
	Language string
	Before   string
	After    string
	// Lines are the 1-based lines of Before that changed.
	Lines     []int
	Sites     int
	Rewritten int
}

// Emission is a message a hook script reported through emit().
type Emission struct {
	Unit    string
	Kind    string
	Message string
}

// RunHook runs the hook script at scriptPath for ev. The script sees the
// event as the globals unit, language, before, after, lines, sites and
// rewritten, and may call emit(message) or emit(kind, message). Emissions
// are returned even when the script fails part way.
func (r *Runtime) RunHook(ctx context.Context, scriptPath string, ev HookEvent) ([]Emission, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.runHook(ctx, src, scriptPath, ev)
}

// RunHookSource is RunHook for inline script source.
func (r *Runtime) RunHookSource(ctx context.Context, source string, ev HookEvent) ([]Emission, error) {
	return r.runHook(ctx, source, "<inline>", ev)
}

func (r *Runtime) runHook(ctx context.Context, source, label string, ev HookEvent) ([]Emission, error) {
	sink := &emissionSink{unit: ev.Unit}
	globals := map[string]any{
		"unit":      object.NewString(ev.Unit),
		"language":  object.NewString(ev.Language),
		"before":    object.NewString(ev.Before),
		"after":     object.NewString(ev.After),
		"lines":     intsToList(ev.Lines),
		"sites":     object.NewInt(int64(ev.Sites)),
		"rewritten": object.NewInt(int64(ev.Rewritten)),
		"emit":      sink.builtin(),
	}
	err := r.eval(ctx, source, label, globals)
	return sink.drain(), err
}

// emissionSink collects emit() calls of one hook run.
type emissionSink struct {
	unit string
	mu   sync.Mutex
	out  []Emission
}

// emit(message) or emit(kind, message); kind defaults to "info".
func (s *emissionSink) builtin() *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		var kind, msg string
		switch len(args) {
		case 1:
			kind = "info"
			m, err := toString(args[0])
			if err != nil {
				return object.Errorf("emit: message: %v", err)
			}
			msg = m
		case 2:
			k, err := toString(args[0])
			if err != nil {
				return object.Errorf("emit: kind: %v", err)
			}
			m, err := toString(args[1])
			if err != nil {
				return object.Errorf("emit: message: %v", err)
			}
			kind, msg = k, m
		default:
			return object.Errorf("emit: expected 1 or 2 arguments, got %d", len(args))
		}

		s.mu.Lock()
		s.out = append(s.out, Emission{Unit: s.unit, Kind: kind, Message: msg})
		s.mu.Unlock()
		return object.Nil
	})
}

func (s *emissionSink) drain() []Emission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	s.out = nil
	return out
}
