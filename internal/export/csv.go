package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/transient"
)

// Column is one exported quantity derived from the solution vector.
type Column struct {
	Name  string
	Value func(x []float64) float64
}

// ProbeColumns exports resolved circuit probes.
func ProbeColumns(probes []circuit.Probe) []Column {
	cols := make([]Column, len(probes))
	for i, p := range probes {
		cols[i] = Column{Name: p.Name, Value: p.Value}
	}
	return cols
}

// IndexColumns exports raw solution entries by position.
func IndexColumns(names []string) []Column {
	cols := make([]Column, len(names))
	for i, name := range names {
		idx := i
		cols[i] = Column{Name: name, Value: func(x []float64) float64 { return x[idx] }}
	}
	return cols
}

// CSVSink streams one row per step: time followed by each column.
// Numbers use fixed notation with the given precision, independent of locale.
type CSVSink struct {
	w         *csv.Writer
	cols      []Column
	precision int
	row       []string
	rows      int
}

// NewCSVSink writes the header row immediately.
func NewCSVSink(w io.Writer, cols []Column, precision int) (*CSVSink, error) {
	s := &CSVSink{
		w:         csv.NewWriter(w),
		cols:      cols,
		precision: precision,
		row:       make([]string, len(cols)+1),
	}
	header := make([]string, 0, len(cols)+1)
	header = append(header, "time")
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if err := s.w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return s, nil
}

func (s *CSVSink) OnStep(t float64, x transient.State) error {
	s.row[0] = strconv.FormatFloat(t, 'f', s.precision, 64)
	for i, c := range s.cols {
		s.row[i+1] = strconv.FormatFloat(c.Value(x), 'f', s.precision, 64)
	}
	if err := s.w.Write(s.row); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Rows is the number of data rows written.
func (s *CSVSink) Rows() int { return s.rows }

func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// WriteCSV writes a recorded trajectory in the same format as CSVSink.
func WriteCSV(w io.Writer, cols []Column, times []float64, states []transient.State, precision int) error {
	if len(times) != len(states) {
		return fmt.Errorf("%d times for %d states", len(times), len(states))
	}
	sink, err := NewCSVSink(w, cols, precision)
	if err != nil {
		return err
	}
	for i := range states {
		if err := sink.OnStep(times[i], states[i]); err != nil {
			return err
		}
	}
	return sink.Flush()
}
