/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package npm

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// ErrManifestNotFound is returned when no node_modules directory on the
// lookup path contains the package.
var ErrManifestNotFound = errors.New("package manifest not found")

// Resolver locates package manifests the way Node's require.resolve does for
// "<name>/package.json": every node_modules directory from the starting
// directory up to the filesystem root is tried in turn, then Roots.
type Resolver struct {
	Roots []string
}

// NewResolver creates a resolver with fallback roots.
func NewResolver(roots ...string) *Resolver {
	return &Resolver{Roots: roots}
}

// ResolveManifest returns the absolute path of name's package.json as seen
// from fromDir. An empty fromDir only searches the fallback roots.
func (r *Resolver) ResolveManifest(name, fromDir string) (string, error) {
	if name == "" || IsRelative(name) {
		return "", fmt.Errorf("%w: %q is not a package name", ErrManifestNotFound, name)
	}

	seen := make(map[string]bool)
	starts := make([]string, 0, len(r.Roots)+1)
	if fromDir != "" {
		starts = append(starts, fromDir)
	}
	starts = append(starts, r.Roots...)

	for _, start := range starts {
		dir, err := filepath.Abs(start)
		if err != nil {
			continue
		}
		for {
			if !seen[dir] {
				seen[dir] = true
				if filepath.Base(dir) != "node_modules" {
					candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(name), ManifestFile)
					if safeio.IsFile(candidate) {
						return candidate, nil
					}
				}
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("%w: %s", ErrManifestNotFound, name)
}

// ManifestInDir returns dir/package.json when it exists.
func ManifestInDir(dir string) (string, bool) {
	candidate := filepath.Join(dir, ManifestFile)
	if safeio.IsFile(candidate) {
		return candidate, true
	}
	return "", false
}
