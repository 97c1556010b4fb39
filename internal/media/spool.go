// Package media spools temporary image payloads to disk for the
// lifetime of one triage turn.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Spool writes turn-scoped image payloads under one directory and
// deletes them when the turn completes. Paths outside the spool
// directory are refused.
type Spool struct {
	dir string
}

// NewSpool creates the spool directory if needed. An empty dir spools
// under the system temp directory.
func NewSpool(dir string) (*Spool, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "medtriage-spool")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve spool dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Write stores one image payload and returns its path.
func (s *Spool) Write(data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, "img-*")
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close spool file: %w", err)
	}
	return f.Name(), nil
}

// Release deletes a spooled payload. Already-removed files are not an
// error; Release runs on every turn exit path.
func (s *Spool) Release(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve spool path: %w", err)
	}
	if !strings.HasPrefix(abs, s.dir+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the spool", path)
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spool file: %w", err)
	}
	return nil
}
