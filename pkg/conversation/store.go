package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finsight-ai/finsight/pkg/models"
)

// SnapshotVersion is written into every persisted snapshot. Snapshots with a
// newer version than this build understands are rejected at load time; a
// missing version (legacy files) is accepted.
const SnapshotVersion = 1

// Store persists a session snapshot as a single JSON file. Every write
// replaces the whole file: the snapshot is marshalled to a temp file in the
// same directory and renamed over the target, so readers never observe a
// partially written state.
type Store struct {
	path string
}

// NewStore creates a store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save writes the complete snapshot, replacing any prior contents.
func (s *Store) Save(snapshot *models.ConversationSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".conversation-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads a previously saved snapshot. A missing file returns (nil, nil):
// the session simply starts empty.
func (s *Store) Load() (*models.ConversationSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot models.ConversationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snapshot.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
