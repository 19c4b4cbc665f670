package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motion.match/internal/motion/m6blend"
)

// RunSample is one player frame as recorded for the run report.
type RunSample struct {
	Time      float64 `json:"time"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Heading   float64 `json:"heading"`
	Interp    float64 `json:"interp"`
	Matched   bool    `json:"matched"`
	Distance  float64 `json:"distance"` // trajectory distance of the target slot's match
	Target    string  `json:"target"`
	Rematched bool    `json:"rematched"`
	Idle      bool    `json:"idle"`
}

// NewRunSample records f at time t. target is the player's targeted slot
// after the frame was produced.
func NewRunSample(t float64, f m6blend.Frame, target m6blend.Slot) RunSample {
	s := RunSample{
		Time:      t,
		X:         f.World.Position.X,
		Z:         f.World.Position.Y,
		Heading:   f.World.Heading,
		Interp:    f.Interp,
		Target:    f.Target.String(),
		Rematched: f.Rematched,
		Idle:      f.Idle,
	}
	if target.Occupied {
		s.Matched = true
		s.Distance = target.Candidate.Distance
	}
	return s
}

// RenderRun writes an HTML page with a blend timeline and the path the
// character travelled.
func RenderRun(w io.Writer, title string, samples []RunSample) error {
	if len(samples) == 0 {
		return ErrNothingToPlot
	}

	times := make([]string, len(samples))
	interp := make([]opts.LineData, len(samples))
	distance := make([]opts.LineData, len(samples))
	target := make([]opts.LineData, len(samples))
	path := make([]opts.ScatterData, len(samples))
	var rematches []opts.ScatterData
	switches := 0
	for i, s := range samples {
		times[i] = fmt.Sprintf("%.3f", s.Time)
		interp[i] = opts.LineData{Value: s.Interp}
		// echarts draws a gap for "-".
		if !s.Matched || s.Idle {
			distance[i] = opts.LineData{Value: "-"}
		} else {
			distance[i] = opts.LineData{Value: s.Distance}
		}
		slot := 0
		if s.Target == m6blend.SlotB.String() {
			slot = 1
		}
		target[i] = opts.LineData{Value: slot}
		path[i] = opts.ScatterData{Value: []interface{}{s.X, s.Z}}
		if s.Rematched {
			switches++
			rematches = append(rematches, opts.ScatterData{Value: []interface{}{s.X, s.Z}, SymbolSize: 8})
		}
	}

	timeline := charts.NewLine()
	timeline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d rematches=%d", len(samples), switches)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "interp / slot", Min: 0, Max: 1}),
	)
	timeline.ExtendYAxis(opts.YAxis{Name: "match distance", Position: "right"})
	timeline.SetXAxis(times).
		AddSeries("interp", interp, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("target slot", target, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: "end"})).
		AddSeries("distance", distance, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: "end", YAxisIndex: 1}))

	pad := pathExtent(samples)
	course := charts.NewScatter()
	course.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Path", Subtitle: "root position on the ground plane"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: -pad, Max: pad, Name: "Z", NameLocation: "middle", NameGap: 30}),
	)
	course.AddSeries("root", path, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	if len(rematches) > 0 {
		course.AddSeries("rematch", rematches)
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(timeline, course)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	return nil
}

// pathExtent returns a symmetric axis bound covering every sample.
func pathExtent(samples []RunSample) float64 {
	extent := 1.0
	for _, s := range samples {
		extent = math.Max(extent, math.Max(math.Abs(s.X), math.Abs(s.Z)))
	}
	return math.Ceil(extent * 1.05)
}
