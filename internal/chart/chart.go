// Package chart renders probe trajectories as terminal graphs and image files.
package chart

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoSeries = errors.New("chart: no series to draw")

// Series is one probe sampled over time.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
}

func (s Series) Len() int { return len(s.Values) }

// Recorder collects probe series while a driver runs.
type Recorder struct {
	probes []circuit.Probe
	series []Series
}

func NewRecorder(probes []circuit.Probe) *Recorder {
	r := &Recorder{probes: probes, series: make([]Series, len(probes))}
	for i, p := range probes {
		r.series[i].Name = p.Name
	}
	return r
}

func (r *Recorder) OnStep(t float64, x transient.State) error {
	for i, p := range r.probes {
		r.series[i].Times = append(r.series[i].Times, t)
		r.series[i].Values = append(r.series[i].Values, p.Value(x))
	}
	return nil
}

func (r *Recorder) Series() []Series { return r.series }

// SeriesFromStates evaluates probes over a stored trajectory.
func SeriesFromStates(probes []circuit.Probe, times []float64, states []transient.State) []Series {
	r := NewRecorder(probes)
	for k, x := range states {
		_ = r.OnStep(times[k], x)
	}
	return r.Series()
}

// Save draws every series on one set of axes. The format follows the file
// extension (png, svg, pdf, ...); width and height are in centimetres.
func Save(path, title string, series []Series, width, height float64) error {
	if len(series) == 0 {
		return ErrNoSeries
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		pts := make(plotter.XYs, s.Len())
		for k := range pts {
			pts[k].X = s.Times[k]
			pts[k].Y = s.Values[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true

	if filepath.Ext(path) == "" {
		path += ".png"
	}
	return p.Save(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter, path)
}

// ASCII renders series as stacked terminal graphs, one per series.
func ASCII(series []Series, width, height int) string {
	var sb strings.Builder
	for i, s := range series {
		if s.Len() == 0 {
			continue
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(asciigraph.Plot(Downsample(s.Values, width),
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(s.Name),
		))
	}
	return sb.String()
}

// Downsample keeps at most n evenly spaced values, always including the last.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		out[i] = values[int(float64(i)*step+0.5)]
	}
	return out
}
