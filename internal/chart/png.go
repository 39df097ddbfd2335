package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/newthinker/cryptodash/internal/live"
	"github.com/newthinker/cryptodash/internal/storage/archive"
	gochart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

// ErrNoData is returned when there is nothing to plot yet.
var ErrNoData = errors.New("no points to render")

const (
	pngWidth  = 960
	pngHeight = 420
)

// RenderPNG draws series as a line chart and writes the PNG to w.
func RenderPNG(w io.Writer, title, yLabel string, series []live.Series) error {
	var (
		plotted    []gochart.Series
		minY, maxY = math.Inf(1), math.Inf(-1)
	)
	for _, s := range series {
		if len(s.Data) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(s.Data)+1)
		ys := make([]float64, 0, len(s.Data)+1)
		for _, p := range s.Data {
			xs = append(xs, time.UnixMilli(p.X))
			ys = append(ys, p.Y)
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
		// A line needs two points.
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Second))
			ys = append(ys, ys[0])
		}
		plotted = append(plotted, gochart.TimeSeries{Name: s.Name, XValues: xs, YValues: ys})
	}
	if len(plotted) == 0 {
		return ErrNoData
	}

	yAxis := gochart.YAxis{Name: yLabel}
	if minY == maxY {
		pad := math.Max(math.Abs(minY)*0.01, 1)
		yAxis.Range = &gochart.ContinuousRange{Min: minY - pad, Max: maxY + pad}
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  pngWidth,
		Height: pngHeight,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05"),
		},
		YAxis:  yAxis,
		Series: plotted,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

// PNGSurface renders its chart after every update and stores the image in the
// snapshot archive.
type PNGSurface struct {
	kind    live.Kind
	key     string
	archive archive.Archive
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	last      []live.Series
	writes    int
	destroyed bool
}

// NewPNGSurface creates a surface writing to archive under the session's
// snapshot key.
func NewPNGSurface(session string, kind live.Kind, a archive.Archive, logger *zap.Logger) *PNGSurface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PNGSurface{
		kind:    kind,
		key:     archive.SnapshotKey(session, string(kind)),
		archive: a,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Key returns the archive key of the snapshot.
func (p *PNGSurface) Key() string { return p.key }

func (p *PNGSurface) Mount(series []live.Series) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = series
	return nil
}

func (p *PNGSurface) Update(series []live.Series) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil
	}
	p.last = series

	var buf bytes.Buffer
	if err := RenderPNG(&buf, p.kind.Title(), p.kind.Axis(), series); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.archive.Put(ctx, p.key, "image/png", buf.Bytes()); err != nil {
		return fmt.Errorf("archive %s: %w", p.key, err)
	}
	p.writes++
	return nil
}

// Destroy keeps the last snapshot in the archive and ignores later updates.
func (p *PNGSurface) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.logger.Debug("png surface released", zap.String("key", p.key), zap.Int("writes", p.writes))
}

// Writes returns how many snapshots were stored.
func (p *PNGSurface) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}
