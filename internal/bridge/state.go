package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TrackerState is what a later run needs to resume tracking a deposit.
type TrackerState struct {
	BridgeID     string `json:"bridge_id"`
	Depositor    string `json:"depositor,omitempty"`
	PrivacyLevel string `json:"privacy_level,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// StateStore keeps the last submitted deposit in a small JSON file.
type StateStore struct {
	path string
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) Path() string { return s.path }

func (s *StateStore) Load() (TrackerState, bool, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TrackerState{}, false, nil
		}
		return TrackerState{}, false, fmt.Errorf("stat tracker state: %w", err)
	}
	if stat.IsDir() {
		return TrackerState{}, false, fmt.Errorf("tracker state path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return TrackerState{}, false, fmt.Errorf("read tracker state: %w", err)
	}
	var st TrackerState
	if err := json.Unmarshal(data, &st); err != nil {
		return TrackerState{}, false, fmt.Errorf("parse tracker state: %w", err)
	}
	if st.BridgeID == "" {
		return TrackerState{}, false, nil
	}
	return st, true, nil
}

// Save replaces the file atomically.
func (s *StateStore) Save(st TrackerState) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tracker state dir: %w", err)
		}
	}

	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal tracker state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write tracker state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename tracker state: %w", err)
	}
	return nil
}
