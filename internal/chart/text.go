package chart

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/newthinker/cryptodash/internal/live"
)

// TextSurface prints the latest value of every series as a table.
type TextSurface struct {
	kind live.Kind
	w    io.Writer
	mu   sync.Mutex
}

// NewTextSurface creates a text surface writing to w.
func NewTextSurface(kind live.Kind, w io.Writer) *TextSurface {
	return &TextSurface{kind: kind, w: w}
}

func (t *TextSurface) Mount(series []live.Series) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(series))
	for _, s := range series {
		names = append(names, s.Name)
	}
	_, err := fmt.Fprintf(t.w, "%s: tracking %v\n", t.kind.Title(), names)
	return err
}

func (t *TextSurface) Update(series []live.Series) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tSYMBOL\tVALUE\tPOINTS\n", t.kind.Title())
	for _, s := range series {
		if len(s.Data) == 0 {
			continue
		}
		p := s.Data[len(s.Data)-1]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			time.UnixMilli(p.X).Format("15:04:05"), s.Name, t.format(p.Y), len(s.Data))
	}
	return tw.Flush()
}

func (t *TextSurface) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s: closed\n", t.kind.Title())
}

func (t *TextSurface) format(v float64) string {
	if t.kind == live.KindPercent {
		return fmt.Sprintf("%+.2f%%", v)
	}
	return fmt.Sprintf("$%.2f", v)
}
