/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package npm recovers npm package identity from bundler module ids and
// reads package manifests from node_modules trees.
package npm

import (
	"path/filepath"
	"regexp"
	"strings"
)

// moduleNameRegex matches the package directory following a node_modules
// segment. Both separators are accepted so Windows ids match too.
var moduleNameRegex = regexp.MustCompile(`node_modules[\\/]((?:@[^\\/]+[\\/][^\\/]+)|[^\\/]+)`)

// PackageNameFromPath extracts the package name from a module id such as
// /app/node_modules/@scope/pkg/lib/index.js. dir is the id prefix ending at
// the package directory. For nested installs the innermost package wins.
func PackageNameFromPath(id string) (name string, dir string, ok bool) {
	matches := moduleNameRegex.FindAllStringSubmatchIndex(id, -1)
	if len(matches) == 0 {
		return "", "", false
	}
	m := matches[len(matches)-1]
	name = strings.ReplaceAll(id[m[2]:m[3]], `\`, "/")
	if name == "." || name == ".." || name == ".bin" {
		return "", "", false
	}
	return name, id[:m[3]], true
}

// IsRelative reports whether a specifier points at local code rather than a
// package: ./x, ../x, /abs/x or an OS absolute path.
func IsRelative(spec string) bool {
	if spec == "" {
		return true
	}
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || strings.HasPrefix(spec, `\`) {
		return true
	}
	return filepath.IsAbs(spec)
}

// IsBare reports whether spec is a bare package specifier (lodash, @a/b/c).
// Names shared with Node core modules (buffer, events) stay bare because
// browser builds often install polyfills under those names.
func IsBare(spec string) bool {
	if IsRelative(spec) {
		return false
	}
	// URLs and data: imports are handled by the bundler itself.
	if strings.Contains(strings.SplitN(spec, "/", 2)[0], ":") {
		return false
	}
	return true
}

// SpecifierPrefixes returns the candidate package names for a bare specifier,
// longest first: "a/b/c" yields a/b/c, a/b, a. A scoped specifier never
// yields the bare scope, so "@s/a/b" yields @s/a/b and @s/a.
func SpecifierPrefixes(spec string) []string {
	spec = strings.Trim(filepath.ToSlash(spec), "/")
	if spec == "" {
		return nil
	}
	parts := strings.Split(spec, "/")
	minParts := 1
	if strings.HasPrefix(parts[0], "@") {
		minParts = 2
	}
	if len(parts) < minParts {
		return nil
	}

	prefixes := make([]string, 0, len(parts)-minParts+1)
	for n := len(parts); n >= minParts; n-- {
		prefixes = append(prefixes, strings.Join(parts[:n], "/"))
	}
	return prefixes
}
