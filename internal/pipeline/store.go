package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the runs of the current process in memory. Runs are not
// persisted across restarts; ExportJSON writes a snapshot for callers
// that want one.
type Store struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewStore creates an empty run store
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*Run),
	}
}

// Create registers a fresh idle run for an audio file
func (s *Store) Create(audioPath string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		AudioPath: audioPath,
		Stage:     StageIdle,
		StartTime: time.Now(),
	}

	s.runs[run.ID] = run
	return s.snapshot(run)
}

// Get retrieves a copy of a run by ID
func (s *Store) Get(runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return s.snapshot(run), nil
}

// List returns copies of all runs, newest first
func (s *Store) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *s.snapshot(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	return runs
}

// Update applies fn to a run under the store lock
func (s *Store) Update(runID string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}
	fn(run)
	return nil
}

// ExportJSON writes a run snapshot to exportDir and returns the file path
func (s *Store) ExportJSON(runID, exportDir string) (string, error) {
	run, err := s.Get(runID)
	if err != nil {
		return "", err
	}

	// #nosec G301 - Export directory needs to be readable for serving files
	if err := os.MkdirAll(exportDir, 0750); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	filename := fmt.Sprintf("run_%s_%s.json", run.ID, run.StartTime.Format("20060102_150405"))
	path := filepath.Join(exportDir, filename)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling run: %w", err)
	}

	// #nosec G306 - Export files need to be readable by the user
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("error writing file: %w", err)
	}

	return path, nil
}

// snapshot deep-copies the slices a caller could otherwise mutate while a
// stage goroutine appends to them
func (s *Store) snapshot(run *Run) *Run {
	out := *run
	if run.Segments != nil {
		out.Segments = append(out.Segments[:0:0], run.Segments...)
	}
	if run.Turns != nil {
		out.Turns = append(out.Turns[:0:0], run.Turns...)
	}
	if run.Transcript != nil {
		out.Transcript = append(out.Transcript[:0:0], run.Transcript...)
	}
	return &out
}
