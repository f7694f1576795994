package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/circuitsim/internal/transient"
)

type ExportData struct {
	Circuit string             `json:"circuit"`
	Solver  string             `json:"solver"`
	H       float64            `json:"h"`
	TMax    float64            `json:"tmax"`
	Steps   int                `json:"steps"`
	Columns []string           `json:"columns"`
	Times   []float64          `json:"times"`
	Values  [][]float64        `json:"values"`
	Metrics map[string]float64 `json:"metrics"`
}

// NewExportData evaluates cols on every recorded state.
func NewExportData(circuit, solver string, h, tmax float64, cols []Column, times []float64, states []transient.State, metrics map[string]float64) ExportData {
	data := ExportData{
		Circuit: circuit,
		Solver:  solver,
		H:       h,
		TMax:    tmax,
		Steps:   len(times),
		Columns: make([]string, len(cols)),
		Times:   times,
		Values:  make([][]float64, len(states)),
		Metrics: metrics,
	}
	for i, c := range cols {
		data.Columns[i] = c.Name
	}
	for i, x := range states {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Value(x)
		}
		data.Values[i] = row
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}
