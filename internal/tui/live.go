package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/circuitsim/internal/chart"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/experiment"
	"github.com/san-kum/circuitsim/internal/transient"
)

const (
	// maxFrames bounds how many samples reach the view per run.
	maxFrames  = 600
	historyLen = 240
	sinkBuffer = 256
)

type sampleMsg struct {
	run    *liveRun
	step   int
	t      float64
	values []float64
}

type doneMsg struct {
	run    *liveRun
	result *transient.Result
	err    error
}

// liveRun follows one driver running on its own goroutine. Samples travel
// through an AsyncSink so the view never stalls the solve loop.
type liveRun struct {
	name    string
	names   []string
	steps   int
	stride  int
	msgs    chan tea.Msg
	cancel  context.CancelFunc
	started time.Time

	step     int
	t        float64
	values   []float64
	history  [][]float64
	selected int
	elapsed  time.Duration
	done     bool
	result   *transient.Result
	err      error
}

func startRun(ctx context.Context, exp *experiment.Experiment) (*liveRun, error) {
	probes := exp.Probes()
	ctx, cancel := context.WithCancel(ctx)
	r := &liveRun{
		name:    exp.Config().Name,
		names:   make([]string, len(probes)),
		steps:   exp.TransientConfig(false).Steps(),
		msgs:    make(chan tea.Msg, 16),
		cancel:  cancel,
		started: time.Now(),
		history: make([][]float64, len(probes)),
	}
	for i, p := range probes {
		r.names[i] = p.Name
	}
	r.stride = max(1, r.steps/maxFrames)

	async := transient.NewAsyncSink(r.sampler(ctx, probes), sinkBuffer)
	if err := exp.Setup(false, transient.WithSink(async)); err != nil {
		cancel()
		_ = async.Close()
		return nil, err
	}

	go func() {
		result, err := exp.Run(ctx)
		if cerr := async.Close(); cerr != nil && err == nil {
			exp.Logger().Warn("live view", "err", cerr)
		}
		r.send(ctx, doneMsg{run: r, result: result, err: err})
		close(r.msgs)
	}()
	return r, nil
}

// sampler forwards every stride-th step and the last one.
func (r *liveRun) sampler(ctx context.Context, probes []circuit.Probe) transient.Sink {
	k := 0
	return transient.SinkFunc(func(t float64, x transient.State) error {
		k++
		if k%r.stride != 0 && k != r.steps {
			return nil
		}
		values := make([]float64, len(probes))
		for i, p := range probes {
			values[i] = p.Value(x)
		}
		if !r.send(ctx, sampleMsg{run: r, step: k, t: t, values: values}) {
			return ctx.Err()
		}
		return nil
	})
}

func (r *liveRun) send(ctx context.Context, msg tea.Msg) bool {
	select {
	case r.msgs <- msg:
		return true
	case <-ctx.Done():
		// doneMsg still goes out so a waiting view can settle.
		if _, ok := msg.(doneMsg); ok {
			select {
			case r.msgs <- msg:
			default:
			}
		}
		return false
	}
}

func (r *liveRun) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-r.msgs
		if !ok {
			return nil
		}
		return msg
	}
}

func (r *liveRun) stop() { r.cancel() }

func (r *liveRun) observe(msg sampleMsg) {
	r.step = msg.step
	r.t = msg.t
	r.values = msg.values
	for i, v := range msg.values {
		h := append(r.history[i], v)
		if len(h) > historyLen {
			h = h[len(h)-historyLen:]
		}
		r.history[i] = h
	}
	r.elapsed = time.Since(r.started)
}

func (r *liveRun) finish(msg doneMsg) {
	r.done = true
	r.result = msg.result
	r.err = msg.err
	r.elapsed = time.Since(r.started)
	if msg.result != nil {
		r.step = msg.result.StepsTaken
	}
	r.cancel()
}

func (m model) viewSim() string {
	r := m.run
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case r.err != nil && errors.Is(r.err, context.Canceled):
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("stopped")
	case r.err != nil:
		statusIcon = red.Render("✕")
		statusText = red.Render("failed")
	case r.done:
		statusIcon = cyan.Render("◆")
		statusText = cyan.Render("done")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(r.name), statusText))

	progress := 0.0
	if r.steps > 0 {
		progress = min(1, float64(r.step)/float64(r.steps))
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	stats := fmt.Sprintf("t=%.4gs  %d/%d steps  %s", r.t, r.step, r.steps, r.elapsed.Round(time.Millisecond))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar, dim.Render(stats)))

	for i, name := range r.names {
		val := "-"
		if i < len(r.values) {
			val = fmt.Sprintf("%12.6g", r.values[i])
		}
		if i == r.selected {
			b.WriteString("   " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-14s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("     " + dim.Render(fmt.Sprintf("%-14s", name)) + dim.Render(val) + "\n")
		}
	}

	if h := r.history[r.selected]; len(h) > 1 {
		w := max(20, m.width-16)
		ht := max(5, m.height-len(r.names)-14)
		graph := chart.ASCII([]chart.Series{{Name: r.names[r.selected], Values: h}}, w, ht)
		b.WriteString("\n" + graph + "\n")
	}

	if r.err != nil && !errors.Is(r.err, context.Canceled) {
		b.WriteString("\n   " + red.Render(r.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   tab probe  r restart  esc menu  ctrl+c quit") + "\n")
	return b.String()
}
