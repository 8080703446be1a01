package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxReadBytes caps how much of a manifest or license file is read.
const MaxReadBytes = 4 << 20

// ErrOutsideBase is returned when a path escapes the directory it must stay in.
var ErrOutsideBase = errors.New("file path is outside base directory")

// ReadFileContained reads a file only if it is contained within baseDir.
// Package directories come from module ids the bundler hands us, so a
// symlinked or crafted "license" entry must not pull files from elsewhere.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file path: %w", err)
	}

	rel, err := filepath.Rel(baseDirAbs, filePathAbs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return nil, ErrOutsideBase
	}

	// #nosec G304 -- filePathAbs has been verified to be contained within baseDirAbs
	f, err := os.Open(filePathAbs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxReadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", filePathAbs, MaxReadBytes)
	}
	return data, nil
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// Missing parent directories are created; new files get 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}
