package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/circuitsim/internal/analysis"
	"github.com/san-kum/circuitsim/internal/chart"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/export"
	"github.com/san-kum/circuitsim/internal/storage"
	"github.com/san-kum/circuitsim/internal/transient"
	"github.com/spf13/cobra"
)

// storedRun is a saved run with its probes resolved against the saved circuit.
type storedRun struct {
	meta   *storage.RunMetadata
	times  []float64
	states []transient.State
	probes []circuit.Probe
}

func loadRun(runID string, exprs []string) (*storedRun, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(st.Dir(runID), circuitFile))
	if err != nil {
		return nil, fmt.Errorf("run %s has no readable circuit: %w", runID, err)
	}
	ckt, err := cfg.Circuit()
	if err != nil {
		return nil, err
	}
	if ckt.Size() != len(meta.Unknowns) {
		return nil, fmt.Errorf("run %s: circuit has %d unknowns, states have %d", runID, ckt.Size(), len(meta.Unknowns))
	}
	if len(exprs) == 0 {
		exprs = meta.Probes
	}
	probes, err := ckt.Layout().Probes(exprs)
	if err != nil {
		return nil, err
	}
	return &storedRun{meta: meta, times: times, states: states, probes: probes}, nil
}

func (r *storedRun) series() []chart.Series {
	return chart.SeriesFromStates(r.probes, r.times, r.states)
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0], probes)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", run.meta.ID)
	fmt.Printf("circuit: %s\n", run.meta.Circuit)
	fmt.Printf("samples: %d\n\n", len(run.states))

	fmt.Println(chart.ASCII(run.series(), width, height))
	return nil
}

func chartRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0], probes)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s (h=%g)", run.meta.Circuit, run.meta.H)
	if err := chart.Save(outPath, title, run.series(), 16, 10); err != nil {
		return err
	}
	logger.Info("chart written", "path", outPath)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	var cols []export.Column
	var times []float64
	var states []transient.State
	if raw {
		st := storage.New(dataDir)
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		if states, times, err = st.LoadStates(runID); err != nil {
			return err
		}
		cols = export.IndexColumns(meta.Unknowns)
	} else {
		run, err := loadRun(runID, probes)
		if err != nil {
			return err
		}
		cols = export.ProbeColumns(run.probes)
		times, states = run.times, run.states
	}

	return export.WriteCSV(os.Stdout, cols, times, states, precision)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0], probes)
	if err != nil {
		return err
	}
	m := run.meta
	data := export.NewExportData(m.Circuit, m.Solver, m.H, m.TMax, export.ProbeColumns(run.probes), run.times, run.states, m.Metrics)
	if outPath == "" {
		return export.WriteJSON(os.Stdout, data)
	}
	return export.ExportJSON(outPath, data)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0], probes)
	if err != nil {
		return err
	}
	s := run.series()[0]
	svg := export.TrajectoryToSVG(export.SeriesPoints(s.Times, s.Values), 800, 400, "#00ccff")
	if svg == "" {
		return fmt.Errorf("not enough samples to draw %s", s.Name)
	}
	if outPath == "" {
		_, err = fmt.Print(svg)
		return err
	}
	return os.WriteFile(outPath, []byte(svg), 0644)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0], probes)
	if err != nil {
		return err
	}
	s := run.series()[0]

	sp, err := analysis.DominantFrequency(s.Values, run.meta.H)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", run.meta.ID)
	fmt.Printf("circuit: %s, probe: %s\n\n", run.meta.Circuit, s.Name)

	quarter := sp.Power[:max(2, len(sp.Power)/4)]
	fmt.Println(chart.ASCII([]chart.Series{{Name: "power spectrum " + s.Name, Values: quarter}}, 80, 15))
	fmt.Println()

	fmt.Printf("bin width: %.4g hz\n", sp.BinWidth)
	fmt.Printf("dominant frequency: %.4g hz\n", sp.Dominant)
	if sp.Dominant > 0 {
		fmt.Printf("period: %.4g s\n", 1/sp.Dominant)
	}
	return nil
}
