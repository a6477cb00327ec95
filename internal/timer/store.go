package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	stateDirPerm  = 0o700
	stateFilePerm = 0o600
)

// FileStore persists the ActiveTimer as a small JSON document. Writes go
// through a temp file and rename so a crash can never leave a torn record.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the given file path. The parent
// directory is created lazily on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path exposes the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted timer. A missing file means no timer is active.
func (s *FileStore) Load() (*ActiveTimer, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, s.path, err)
	}

	var record ActiveTimer
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, s.path, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return &record, nil
}

// Save replaces the persisted timer. A nil record clears it.
func (s *FileStore) Save(record *ActiveTimer) error {
	if record == nil {
		err := os.Remove(s.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: clear %s: %w", ErrPersistence, s.path, err)
		}
		return nil
	}

	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode timer: %w", ErrPersistence, err)
	}
	if err := writeAtomic(s.path, raw, stateFilePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func writeAtomic(path string, payload []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, stateDirPerm); err != nil {
		return fmt.Errorf("ensure state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".timer-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
