// Package checkpoint persists partial batch progress so a long-running run
// can resume after interruption. The state is a JSON snapshot of the scans
// attempted so far plus the measurements accumulated for them.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hippovol/internal/models"
)

// SchemaVersion guards against loading checkpoints written by an
// incompatible build.
const SchemaVersion = 1

// State is the resumability record owned by the batch runner. Measurements
// are kept in processing order, which is inventory order.
type State struct {
	Version        int                        `json:"version"`
	CreatedAt      time.Time                  `json:"created_at"`
	ProcessedScans []string                   `json:"processed_scans"`
	Measurements   []models.VolumeMeasurement `json:"measurements"`

	processed map[string]bool
}

// New creates an empty checkpoint state.
func New() *State {
	return &State{
		Version:   SchemaVersion,
		CreatedAt: time.Now().UTC(),
		processed: make(map[string]bool),
	}
}

// Record appends one scan attempt to the state.
func (s *State) Record(m models.VolumeMeasurement) {
	if s.processed == nil {
		s.processed = make(map[string]bool)
	}
	s.ProcessedScans = append(s.ProcessedScans, m.ScanName)
	s.Measurements = append(s.Measurements, m)
	s.processed[m.ScanName] = true
}

// Processed reports whether the named scan has already been attempted.
func (s *State) Processed(scanName string) bool {
	return s.processed[scanName]
}

// Save writes the state atomically: the snapshot lands in a temporary file
// first and replaces the target in a single rename, so an interruption during
// the write never leaves a truncated checkpoint behind.
func Save(path string, s *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %v", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finish checkpoint write: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %v", err)
	}
	return nil
}

// Load restores a previously saved state. The caller decides whether a
// missing file is an error; a version mismatch always is.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %v", path, err)
	}
	if s.Version != SchemaVersion {
		return nil, fmt.Errorf("checkpoint %s has schema version %d, expected %d", path, s.Version, SchemaVersion)
	}

	s.processed = make(map[string]bool, len(s.ProcessedScans))
	for _, name := range s.ProcessedScans {
		s.processed[name] = true
	}
	return &s, nil
}
