package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"evera/internal/session/models"
	"evera/pkg/platform/sentinel"
)

// FilePersister keeps the snapshot in <dir>/<key>.json, readable only by the
// current user.
type FilePersister struct {
	dir string
	key string
}

func NewFilePersister(dir, key string) (*FilePersister, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if key == "" {
		return nil, errors.New("session key is required")
	}
	return &FilePersister{dir: dir, key: key}, nil
}

// Path is the file the snapshot lives in.
func (p *FilePersister) Path() string {
	return filepath.Join(p.dir, p.key+".json")
}

func (p *FilePersister) Load(_ context.Context) (*models.Snapshot, error) {
	data, err := os.ReadFile(p.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w: %w", sentinel.ErrUnavailable, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session file: %w: %w", sentinel.ErrCorrupt, err)
	}
	return &snap, nil
}

// Save writes to a temporary file and renames it over the old snapshot, so a
// crash mid-write leaves the previous session intact.
func (p *FilePersister) Save(_ context.Context, snapshot models.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w: %w", sentinel.ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(p.dir, p.key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w: %w", sentinel.ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w: %w", sentinel.ErrUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, p.Path()); err != nil {
		return fmt.Errorf("replace session file: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
