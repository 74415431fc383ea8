// Package render writes observed-vs-predicted growth charts as standalone
// HTML pages.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
)

const (
	chartHeight   = "520px"
	lineWidth     = 2
	lineWidthThin = 1
	impactColor   = "#d62728"
)

// Chart is everything needed to draw one impact window.
type Chart struct {
	Label     string
	Name      string // file name without extension
	Curve     model.Curve
	Predicted model.Curve
	Start     time.Time
	End       time.Time
}

// Label formats "actor --> url", prefixed by "language : " when set.
func Label(language, actor, repo string) string {
	l := actor + " --> " + model.RepoURL(repo)
	if language != "" {
		l = language + " : " + l
	}
	return l
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._+-]+`)

// FileName returns "[language_]actor_owner-name" with unsafe runs replaced.
// The owner keeps repositories sharing a name apart.
func FileName(language, actor, repo string) string {
	parts := []string{actor, strings.Trim(repo, "/")}
	if language != "" {
		parts = append([]string{language}, parts...)
	}
	for i, p := range parts {
		parts[i] = unsafeName.ReplaceAllString(p, "-")
	}
	return strings.Join(parts, "_")
}

// HTMLRenderer writes one HTML page per chart into a directory.
type HTMLRenderer struct {
	dir string
	ext string
}

// Option configures an HTMLRenderer.
type Option func(*HTMLRenderer)

// WithFormat sets the file extension, html or htm.
func WithFormat(ext string) Option {
	return func(r *HTMLRenderer) {
		if ext != "" {
			r.ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		}
	}
}

// NewHTMLRenderer returns a renderer writing into dir.
func NewHTMLRenderer(dir string, opts ...Option) (*HTMLRenderer, error) {
	r := &HTMLRenderer{dir: dir, ext: "html"}
	for _, opt := range opts {
		opt(r)
	}
	if r.ext != "html" && r.ext != "htm" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, r.ext)
	}
	return r, nil
}

// Dir returns the output directory.
func (r *HTMLRenderer) Dir() string { return r.dir }

// Render writes c and returns the file path.
func (r *HTMLRenderer) Render(ctx context.Context, c Chart) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	path := filepath.Join(r.dir, c.Name+"."+r.ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := build(c).Render(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("%w: %s: %v", ErrRender, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	metrics.RecordChartRendered()
	return path, nil
}

// Clean removes every entry inside dir, creating dir if missing.
func Clean(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func points(c model.Curve) []opts.LineData {
	data := make([]opts.LineData, len(c))
	for i, s := range c {
		data[i] = opts.LineData{Value: []interface{}{s.At.UnixMilli(), s.Count}}
	}
	return data
}

// marker is a vertical two-point series spanning the plotted range.
func marker(at time.Time, lo, hi float64) []opts.LineData {
	ms := at.UnixMilli()
	return []opts.LineData{
		{Value: []interface{}{ms, lo}},
		{Value: []interface{}{ms, hi}},
	}
}

func bounds(curves ...model.Curve) (lo, hi float64) {
	first := true
	for _, c := range curves {
		for _, s := range c {
			if first {
				lo, hi, first = s.Count, s.Count, false
				continue
			}
			lo = min(lo, s.Count)
			hi = max(hi, s.Count)
		}
	}
	return lo, hi
}

func build(c Chart) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Label, Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Label,
			Subtitle: c.Start.UTC().Format(time.RFC3339) + " to " + c.End.UTC().Format(time.RFC3339),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (UTC)", Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Watchers", Type: "value", Scale: opts.Bool(true)}),
	)

	lo, hi := bounds(c.Curve, c.Predicted)

	line.AddSeries("Actual", points(c.Curve),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle"}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
	)
	line.AddSeries("Predicted", points(c.Predicted),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidthThin, Type: "dashed"}),
	)
	for _, m := range []struct {
		name string
		at   time.Time
	}{{"Impact Start", c.Start}, {"Impact End", c.End}} {
		line.AddSeries(m.name, marker(m.at, lo, hi),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: impactColor}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidthThin, Color: impactColor}),
		)
	}
	return line
}
