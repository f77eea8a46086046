package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/jward/tslop"
)

// UnifiedDiff returns the unified diff turning before into after, labeled
// a/name and b/name. It is empty when the texts are equal.
func UnifiedDiff(name, before, after string) string {
	if before == after {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(name), before, after)
	return fmt.Sprint(gotextdiff.ToUnified("a/"+name, "b/"+name, before, edits))
}

// DiffWriter prints a unified diff for every rewritten unit.
type DiffWriter struct {
	p *printer
}

// NewDiffWriter returns a DiffWriter writing to w.
func NewDiffWriter(w io.Writer, opts ...Option) *DiffWriter {
	return &DiffWriter{p: newPrinter(w, opts)}
}

// Observe implements tslop.Observer.
func (d *DiffWriter) Observe(_ context.Context, res *tslop.Result) error {
	if !res.Changed {
		return nil
	}
	diff := UnifiedDiff(d.p.name(res.Unit), string(res.Original), string(res.Code))
	if diff == "" {
		return nil
	}

	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	_, err := io.WriteString(d.p.out, d.colorize(diff))
	return err
}

// colorize paints removed lines red, added lines green and hunk headers cyan.
func (d *DiffWriter) colorize(diff string) string {
	if !d.p.color {
		return diff
	}
	removed := d.p.paint(color.FgRed)
	added := d.p.paint(color.FgGreen)
	hunk := d.p.paint(color.FgCyan)
	header := d.p.paint(color.Bold)

	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "---"), strings.HasPrefix(body, "+++"):
			b.WriteString(header(body))
		case strings.HasPrefix(body, "@@"):
			b.WriteString(hunk(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(removed(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(added(body))
		default:
			b.WriteString(body)
		}
		b.WriteString(nl)
	}
	return b.String()
}
