// Package testutil builds throwaway node_modules trees for tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Package describes one installed package in a fixture tree.
type Package struct {
	// Dir is relative to the tree root, e.g. "node_modules/@scope/pkg".
	Dir      string
	Manifest map[string]any
	// Files maps relative file names to contents (LICENSE, index.js...).
	Files map[string]string
}

// WritePackage writes a package.json (and any extra files) under root.
// It returns the absolute package directory.
func WritePackage(t testing.TB, root string, pkg Package) string {
	t.Helper()

	dir := filepath.Join(root, filepath.FromSlash(pkg.Dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if pkg.Manifest != nil {
		data, err := json.MarshalIndent(pkg.Manifest, "", "  ")
		if err != nil {
			t.Fatalf("marshal manifest: %v", err)
		}
		WriteFile(t, filepath.Join(dir, "package.json"), string(data))
	}
	if _, ok := pkg.Files["index.js"]; !ok && pkg.Manifest != nil {
		WriteFile(t, filepath.Join(dir, "index.js"), "module.exports = {};\n")
	}
	for name, content := range pkg.Files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Installed writes a node_modules/<name> package with the given manifest
// fields merged over name and version.
func Installed(t testing.TB, root, name, version string, fields map[string]any) string {
	t.Helper()
	manifest := map[string]any{"name": name, "version": version, "main": "index.js"}
	for k, v := range fields {
		manifest[k] = v
	}
	return WritePackage(t, root, Package{
		Dir:      "node_modules/" + name,
		Manifest: manifest,
	})
}

// LeftPadIsOdd lays out the two-package tree used by the end-to-end banner
// scenarios: left-pad@1.0.0 (MIT, Foo) and is-odd@0.1.0 (ISC, Bar, email only).
func LeftPadIsOdd(t testing.TB, root string) {
	t.Helper()
	Installed(t, root, "left-pad", "1.0.0", map[string]any{
		"license":    "MIT",
		"author":     "Foo",
		"repository": "git+https://github.com/stevemao/left-pad.git",
	})
	Installed(t, root, "is-odd", "0.1.0", map[string]any{
		"license": "ISC",
		"author":  map[string]any{"name": "Bar", "email": "bar@example.com"},
	})
}

// Slash normalizes a path for assertions that compare ids.
func Slash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
