//go:build linux

package netaddr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIsWSL(t *testing.T) {
	if !isWSL("Linux version 5.15.90.1-microsoft-standard-WSL2") {
		t.Fatalf("expected WSL kernel to be detected")
	}
	if isWSL("Linux version 6.8.0-45-generic (buildd@lcy02-amd64-075)") {
		t.Fatalf("expected regular kernel not to be WSL")
	}
}

func TestRefuseWSL(t *testing.T) {
	dir := t.TempDir()
	wsl := filepath.Join(dir, "wsl")
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(wsl, []byte("Linux version 5.15-microsoft-standard-WSL2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(plain, []byte("Linux version 6.8.0-generic"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := refuseWSL(wsl)(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported under WSL, got %v", err)
	}
	if _, err := refuseWSL(plain)(); !errors.Is(err, errSkip) {
		t.Fatalf("expected skip on a regular kernel, got %v", err)
	}
	if _, err := refuseWSL(filepath.Join(dir, "missing"))(); !errors.Is(err, errSkip) {
		t.Fatalf("expected skip when version file is missing, got %v", err)
	}
}
