package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var (
	// ErrNotFound means no checkpoint file exists at the path.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorrupt means a checkpoint file exists but cannot be parsed or
	// violates its invariants. Fatal on resume: silently restarting from
	// zero would duplicate already-billed API calls.
	ErrCorrupt = errors.New("checkpoint corrupt")
)

// Store persists Progress documents at a fixed path.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a checkpoint store for path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. Returns ErrNotFound when no file exists and
// ErrCorrupt when the file cannot be parsed or its id sets overlap.
func (s *Store) Load() (*Progress, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrCorrupt, s.path, err)
	}
	p.reindex()

	for id := range p.failed {
		if _, ok := p.completed[id]; ok {
			return nil, fmt.Errorf("%w: id %d present in both completed and failed sets", ErrCorrupt, id)
		}
	}

	s.logger.Info("loaded checkpoint",
		zap.String("run_id", p.RunID),
		zap.Int("completed", len(p.CompletedIDs)),
		zap.Int("failed", len(p.FailedIDs)),
		zap.String("status", string(p.Status)),
	)

	return &p, nil
}

// Save writes the checkpoint atomically: marshal to a temp file in the
// same directory, fsync, then rename over the destination.
func (s *Store) Save(p *Progress) error {
	p.sortIDs()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	// Best-effort cleanup on any failure path below.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}

	s.logger.Debug("saved checkpoint",
		zap.String("run_id", p.RunID),
		zap.Int("completed", len(p.CompletedIDs)),
		zap.Int("failed", len(p.FailedIDs)),
	)

	return nil
}
