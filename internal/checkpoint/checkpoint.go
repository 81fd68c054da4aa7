// Package checkpoint persists backfill progress so an interrupted job can
// resume where it left off. Each job owns one JSON file keyed by asset and
// time range; writes are atomic (temp file plus rename) so a crash mid-write
// never leaves a truncated checkpoint behind.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quantlake/deribit-data/internal/model"
)

// Store reads and writes per-job checkpoint files under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("checkpoint: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Key derives the per-job file name. Two jobs share a checkpoint only if
// asset and the exact millisecond range all match.
func Key(asset string, rangeStartMS, rangeEndMS int64) string {
	return fmt.Sprintf("%s_%d_%d.json", asset, rangeStartMS, rangeEndMS)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Load returns the checkpoint for key, or nil if none exists. A file that
// exists but cannot be parsed is an error rather than a silent fresh start,
// since resuming from zero would re-collect the whole range.
func (s *Store) Load(key string) (*model.Checkpoint, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", key, err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", key, err)
	}
	return &cp, nil
}

// Save writes the checkpoint for key atomically.
func (s *Store) Save(key string, cp model.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal %s: %w", key, err)
	}

	final := s.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("checkpoint: rename %s: %w", key, err)
	}
	return nil
}

// Clear removes the checkpoint for key. Clearing a checkpoint that does not
// exist is not an error, so completion is idempotent.
func (s *Store) Clear(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checkpoint: remove %s: %w", key, err)
	}
	return nil
}
