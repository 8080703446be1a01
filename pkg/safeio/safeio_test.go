package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFilePreservePerms(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "dist", "nested", "bundle.js")
	testData := []byte("console.log(1)")

	if err := WriteFilePreservePerms(testFile, testData); err != nil {
		t.Fatalf("WriteFilePreservePerms() failed for new file: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read test file: %v", err)
	}
	if string(content) != string(testData) {
		t.Errorf("File content mismatch: got %q, expected %q", string(content), string(testData))
	}

	stat, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat test file: %v", err)
	}
	if stat.Mode().Perm() != 0o644 {
		t.Errorf("File permissions: got %s, expected %s", stat.Mode().Perm(), os.FileMode(0o644))
	}
}

func TestWriteFilePreservePermsExisting(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "bundle.js")

	if err := os.WriteFile(testFile, []byte("initial"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := WriteFilePreservePerms(testFile, []byte("rewritten")); err != nil {
		t.Fatalf("WriteFilePreservePerms() failed for existing file: %v", err)
	}

	stat, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat test file after write: %v", err)
	}
	if stat.Mode().Perm() != 0o600 {
		t.Errorf("File permissions changed: now %s", stat.Mode().Perm())
	}
}

func TestReadFileContained(t *testing.T) {
	tempDir := t.TempDir()
	pkgDir := filepath.Join(tempDir, "node_modules", "left-pad")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatalf("Failed to create package dir: %v", err)
	}

	licenseFile := filepath.Join(pkgDir, "LICENSE")
	licenseData := []byte("MIT License")
	if err := os.WriteFile(licenseFile, licenseData, 0o644); err != nil {
		t.Fatalf("Failed to create license file: %v", err)
	}
	outsideFile := filepath.Join(tempDir, "secret.txt")
	if err := os.WriteFile(outsideFile, []byte("secret"), 0o644); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}

	tests := []struct {
		name      string
		baseDir   string
		filePath  string
		wantError bool
		wantData  []byte
	}{
		{
			name:     "file within baseDir",
			baseDir:  pkgDir,
			filePath: licenseFile,
			wantData: licenseData,
		},
		{
			name:      "path traversal attempt",
			baseDir:   pkgDir,
			filePath:  filepath.Join(pkgDir, "..", "..", "secret.txt"),
			wantError: true,
		},
		{
			name:      "non-existent file within baseDir",
			baseDir:   pkgDir,
			filePath:  filepath.Join(pkgDir, "COPYING"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadFileContained(tt.baseDir, tt.filePath)

			if tt.wantError {
				if err == nil {
					t.Errorf("ReadFileContained(%q, %q) expected error but got none", tt.baseDir, tt.filePath)
				}
				return
			}
			if err != nil {
				t.Errorf("ReadFileContained(%q, %q) unexpected error: %v", tt.baseDir, tt.filePath, err)
			}
			if string(data) != string(tt.wantData) {
				t.Errorf("ReadFileContained(%q, %q) = %q, expected %q", tt.baseDir, tt.filePath, string(data), string(tt.wantData))
			}
		})
	}
}

func TestReadFileContainedOutsideSentinel(t *testing.T) {
	base := t.TempDir()
	_, err := ReadFileContained(filepath.Join(base, "pkg"), filepath.Join(base, "other", "LICENSE"))
	if !errors.Is(err, ErrOutsideBase) {
		t.Fatalf("expected ErrOutsideBase, got %v", err)
	}
}

func TestReadFileContainedTooLarge(t *testing.T) {
	base := t.TempDir()
	big := filepath.Join(base, "LICENSE")
	if err := os.WriteFile(big, []byte(strings.Repeat("x", MaxReadBytes+1)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFileContained(base, big); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestIsFileAndIsDir(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "package.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !IsFile(file) || IsFile(base) || IsFile(filepath.Join(base, "missing")) {
		t.Error("IsFile returned an unexpected result")
	}
	if !IsDir(base) || IsDir(file) {
		t.Error("IsDir returned an unexpected result")
	}
}
