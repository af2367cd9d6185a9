// Package storage keeps finished runs on disk: one directory per run with
// its metadata, its config and the sampled trajectory.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/dynamo"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Robot           string             `json:"robot"`
	Timestamp       time.Time          `json:"timestamp"`
	Seed            int64              `json:"seed"`
	Dt              float64            `json:"dt"`
	Duration        float64            `json:"duration"`
	Integrator      string             `json:"integrator"`
	Controller      string             `json:"controller"`
	Steps           int                `json:"steps"`
	StateDim        int                `json:"state_dim"`
	Terminated      bool               `json:"terminated"`
	ControlFailures int                `json:"control_failures"`
	Metrics         map[string]float64 `json:"metrics"`
}

// Metadata describes a finished run of cfg.
func Metadata(id string, cfg *config.Config, result *dynamo.Result) RunMetadata {
	dim := 0
	if len(result.States) > 0 {
		dim = len(result.States[0])
	}
	return RunMetadata{
		ID:              id,
		Name:            cfg.Name,
		Robot:           cfg.Robot,
		Timestamp:       time.Now(),
		Seed:            cfg.Seed,
		Dt:              cfg.Dt,
		Duration:        cfg.Duration,
		Integrator:      cfg.Integrator,
		Controller:      cfg.Controller,
		Steps:           result.StepsTaken,
		StateDim:        dim,
		Terminated:      result.Terminated,
		ControlFailures: result.ControlFailures,
		Metrics:         finite(result.Metrics),
	}
}

// finite drops metrics JSON cannot encode, such as a goal distance that was
// never observed.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// Save writes a run directory and returns its id. An empty meta.ID gets a
// fresh uuid. cfg may be nil.
func (s *Store) Save(meta RunMetadata, cfg *config.Config, result *dynamo.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Metrics = finite(meta.Metrics)
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrap(err, "create run dir")
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", errors.Wrap(err, "write metadata")
	}

	if cfg != nil {
		if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
			return "", errors.Wrap(err, "write config")
		}
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := ExportCSV(csvFile, result); err != nil {
		return "", errors.Wrap(err, "write states")
	}
	return meta.ID, nil
}

// List returns the stored runs, oldest first.
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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrRunNotFound, "%s", runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "parse metadata of %s", runID)
	}
	return &meta, nil
}

// LoadConfig reads the config a run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	path := filepath.Join(s.baseDir, runID, configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrRunNotFound, "no config for %s", runID)
	}
	return config.Load(path)
}

// LoadStates reads the trajectory back. Control columns, when present, are
// returned as part of each row after the state.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrapf(ErrRunNotFound, "%s", runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read states")
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d", i)
		}
		times = append(times, t)

		row := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d column %d", i, j)
			}
			row = append(row, val)
		}
		states = append(states, row)
	}

	return states, times, nil
}

// LoadResult rebuilds the recorded trajectory of a run. Rows are split into
// state and control with the stored state dimension.
func (s *Store) LoadResult(runID string) (*RunMetadata, *dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}

	result := &dynamo.Result{
		States:     make([]dynamo.State, len(rows)),
		Controls:   make([]dynamo.Control, 0, len(rows)),
		Times:      times,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
		Terminated: meta.Terminated,
	}
	for i, row := range rows {
		dim := meta.StateDim
		if dim <= 0 || dim > len(row) {
			dim = len(row)
		}
		result.States[i] = row[:dim]
		if dim < len(row) {
			result.Controls = append(result.Controls, row[dim:])
		}
	}
	return meta, result, nil
}

func (m RunMetadata) String() string {
	return fmt.Sprintf("%s  %-12s %-10s %-8s %d steps", m.ID, m.Name, m.Robot, m.Controller, m.Steps)
}
