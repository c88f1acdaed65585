package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	resumeFile = "resume.json"
)

// ResumeState records which save the player last had open, so `mythos play`
// without arguments returns to the same story.
type ResumeState struct {
	// SaveID is the id of the last-opened save file.
	SaveID string `json:"saveId"`

	// WorldName is the display name of the save's world, shown when
	// confirming the resume.
	WorldName string `json:"worldName"`
}

// LoadResumeState loads the resume state from a target .mythos/resume.json.
// Returns nil, nil if no resume state exists (nothing played yet).
// If overrideDir is non-empty, it is used instead of the default ~/.mythos/ location.
func (m *Manager) LoadResumeState(overrideDir string) (*ResumeState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, resumeFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume state: %w", err)
	}

	state := &ResumeState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing resume state: %w", err)
	}

	return state, nil
}

// SaveResume persists the resume state to a target .mythos/resume.json.
func (m *Manager) SaveResume(state *ResumeState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil resume state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling resume state: %w", err)
	}

	path := filepath.Join(dir, resumeFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing resume state: %w", err)
	}

	return nil
}

// ClearResume removes the resume state file.
// The next `mythos play` will ask for a save instead of resuming.
// If overrideDir is non-empty, it is used instead of the default ~/.mythos/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearResume(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, resumeFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing resume state: %w", err)
	}

	return nil
}
