package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/circuitsim/internal/transient"
)

// ErrNoStates indicates a run saved without recorded states.
var ErrNoStates = errors.New("storage: run has no recorded states")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir is the directory holding the files of one run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Circuit    string             `json:"circuit"`
	Timestamp  time.Time          `json:"timestamp"`
	H          float64            `json:"h"`
	TMax       float64            `json:"tmax"`
	Solver     string             `json:"solver"`
	Steps      int                `json:"steps"`
	Unknowns   []string           `json:"unknowns"`
	Probes     []string           `json:"probes,omitempty"`
	SinkErrors int                `json:"sink_errors,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and states.csv for a finished run and returns the
// run id. Columns of states.csv follow meta.Unknowns.
func (s *Store) Save(meta RunMetadata, result *transient.Result) (string, error) {
	if len(result.States) != len(result.Times) {
		return "", fmt.Errorf("storage: %d states for %d times", len(result.States), len(result.Times))
	}

	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Circuit, now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.SinkErrors = result.SinkErrors
	meta.Metrics = result.Metrics

	runDir := s.Dir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	header := append([]string{"time"}, meta.Unknowns...)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, x := range result.States {
		if len(x) != len(meta.Unknowns) {
			return "", fmt.Errorf("storage: state %d has %d values, want %d", i, len(x), len(meta.Unknowns))
		}
		row := make([]string, 0, len(x)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', -1, 64))
		for _, v := range x {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads states.csv back. Rows that fail to parse are reported as errors.
func (s *Store) LoadStates(runID string) ([]transient.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, ErrNoStates
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]transient.State, 0, len(records)-1)
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		state := make(transient.State, len(record)-1)
		for j, field := range record[1:] {
			if state[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}
	return states, times, nil
}
