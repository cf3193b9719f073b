// Package storage persists propagation runs: one directory per run with
// metadata.json and a trajectory.csv of recorded samples.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/prop"
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

type EventRecord struct {
	T        float64 `json:"t"`
	Detector int     `json:"detector"`
	Action   string  `json:"action"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	Scheme      string             `json:"scheme"`
	AbsTol      float64            `json:"abs_tol"`
	RelTol      float64            `json:"rel_tol"`
	Start       float64            `json:"start"`
	End         float64            `json:"end"`
	Stopped     bool               `json:"stopped"`
	Steps       int                `json:"steps"`
	Rejected    int                `json:"rejected"`
	Evaluations int                `json:"evaluations"`
	Events      []EventRecord      `json:"events,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) Save(model, scheme string, cfg dynamo.Config, start float64, result *prop.Result, rec *prop.Recorder) (string, error) {
	// Nanosecond IDs keep back-to-back runs of the same model distinct.
	runID := fmt.Sprintf("%s_%d", model, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       model,
		Timestamp:   time.Now(),
		Scheme:      scheme,
		AbsTol:      cfg.AbsTol,
		RelTol:      cfg.RelTol,
		Start:       start,
		End:         result.T,
		Stopped:     result.Stopped,
		Steps:       result.Stats.Steps,
		Rejected:    result.Stats.Rejected,
		Evaluations: result.Stats.Evaluations,
		Metrics:     result.Metrics,
	}
	for _, ev := range result.Events {
		meta.Events = append(meta.Events, EventRecord{
			T:        ev.T,
			Detector: ev.Detector,
			Action:   ev.Action.String(),
		})
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if rec == nil || len(rec.States) == 0 {
		return runID, nil
	}

	csvPath := filepath.Join(runDir, "trajectory.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time"}
	for i := range rec.States[0] {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	row := make([]string, len(header))
	for i, y := range rec.States {
		row[0] = strconv.FormatFloat(rec.Times[i], 'g', 17, 64)
		for j, v := range y {
			row[j+1] = strconv.FormatFloat(v, 'g', 17, 64)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) LoadTrajectory(runID string) (times []float64, states []dynamo.State, err error) {
	csvPath := filepath.Join(s.baseDir, runID, "trajectory.csv")
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	for _, row := range rows[1:] {
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, nil, err
		}
		y := make(dynamo.State, len(row)-1)
		for j, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, err
			}
			y[j] = v
		}
		times = append(times, t)
		states = append(states, y)
	}
	return times, states, nil
}
