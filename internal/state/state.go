// Package state records pipeline stage progress between runs.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reviewlens/reviewlens/internal/config"
)

// FileName is the state file inside the state directory.
const FileName = "state.yaml"

// Stage names a pipeline stage.
type Stage string

const (
	StageCollect   Stage = "collect"
	StageClean     Stage = "clean"
	StageSentiment Stage = "sentiment"
	StageThemes    Stage = "themes"
	StagePersist   Stage = "persist"
	StageReport    Stage = "report"
	StageDump      Stage = "dump"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageCollect, StageClean, StageSentiment, StageThemes, StagePersist, StageReport, StageDump}

// Stage statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// State holds the outcome of the most recent run of each stage.
type State struct {
	LastRunID   string               `yaml:"last_run_id,omitempty"`
	LastUpdated time.Time            `yaml:"last_updated"`
	Stages      map[Stage]StageState `yaml:"stages,omitempty"`
}

// StageState tracks a single stage.
type StageState struct {
	Status      string    `yaml:"status"`
	StartedAt   time.Time `yaml:"started_at,omitempty"`
	CompletedAt time.Time `yaml:"completed_at,omitempty"`
	Records     int       `yaml:"records,omitempty"`
	Outputs     []string  `yaml:"outputs,omitempty"`
	Error       string    `yaml:"error,omitempty"`
}

// Path is the state file location for cfg.
func Path(cfg config.Config) string {
	return filepath.Join(config.ExpandHome(cfg.Dirs.State), FileName)
}

// Load reads the state from disk. A missing file yields an empty state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.Stages == nil {
		s.Stages = make(map[Stage]StageState)
	}
	return s, nil
}

// Save writes the state to disk.
func (s *State) Save(path string) error {
	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// New creates an empty state.
func New() *State {
	return &State{
		LastUpdated: time.Now(),
		Stages:      make(map[Stage]StageState),
	}
}

// Start marks a stage as running.
func (s *State) Start(stage Stage) {
	s.Stages[stage] = StageState{Status: StatusRunning, StartedAt: time.Now()}
}

// Complete marks a stage as complete.
func (s *State) Complete(stage Stage, records int, outputs ...string) {
	ss := s.Stages[stage]
	ss.Status = StatusComplete
	ss.CompletedAt = time.Now()
	ss.Records = records
	ss.Outputs = outputs
	ss.Error = ""
	s.Stages[stage] = ss
}

// Fail marks a stage as failed with err.
func (s *State) Fail(stage Stage, err error) {
	ss := s.Stages[stage]
	ss.Status = StatusFailed
	ss.CompletedAt = time.Now()
	if err != nil {
		ss.Error = err.Error()
	}
	s.Stages[stage] = ss
}

// IsComplete returns true if the stage last completed successfully.
func (s *State) IsComplete(stage Stage) bool {
	ss, ok := s.Stages[stage]
	return ok && ss.Status == StatusComplete
}
