package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndRelease(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpool: %v", err)
	}

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	path, err := s.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read spooled file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("spooled content = %v, want %v", got, payload)
	}

	if err := s.Release(path); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after release: %v", err)
	}

	// release runs on every turn exit path, so a second call must be safe
	if err := s.Release(path); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestReleaseRefusesOutsidePaths(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpool: %v", err)
	}

	outside := filepath.Join(t.TempDir(), "not-spooled")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	if err := s.Release(outside); err == nil {
		t.Fatal("want error for a path outside the spool directory")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("outside file was touched: %v", err)
	}
}

func TestNewSpoolCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "spool")
	if _, err := NewSpool(dir); err != nil {
		t.Fatalf("NewSpool: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("spool dir not created: %v", err)
	}
}
