/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package banner collects the third-party packages a build pulls in and
// renders their license metadata as a comment banner.
//
// A Collector is fed module ids by the host bundler through Load (module-load
// hook) and bare import specifiers through Resolve (pre-resolution hook).
// Once the build has observed every module, Banner looks up license records
// for each unique package and renders them.
package banner

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/fulmenhq/licensebanner/pkg/licenses"
	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/fulmenhq/licensebanner/pkg/npm"
)

// Diagnostics receives non-fatal warnings raised while observing modules.
type Diagnostics interface {
	Warn(message string, fields ...logger.Field)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(message string, fields ...logger.Field)

func (f DiagnosticsFunc) Warn(message string, fields ...logger.Field) {
	f(message, fields...)
}

// LogDiagnostics forwards warnings to the package logger.
var LogDiagnostics Diagnostics = DiagnosticsFunc(logger.Warn)

// Entry is one unique package contributing to the build.
type Entry struct {
	Key      string
	Name     string
	Version  string
	BasePath string
	Manifest *npm.Manifest
}

// Options configures a Collector.
type Options struct {
	Format  Format
	Exclude []string
	// Sort orders table rows by package name.
	Sort     bool
	Title    string
	Template string
	// Root is where package names without a usable module path are resolved.
	Root        string
	Concurrency int

	Lookup      licenses.Lookup
	Diagnostics Diagnostics
}

// DefaultOptions returns JSDoc output with sorted tables and the go-licenses
// backed lookup rooted at the working directory.
func DefaultOptions() Options {
	return Options{
		Format: FormatJSDoc,
		Sort:   true,
		Title:  DefaultTitle,
		Root:   ".",
	}
}

// Collector owns the package cache for one build.
type Collector struct {
	opts     Options
	resolver *npm.Resolver
	lookup   licenses.Lookup
	diag     Diagnostics
	jsdoc    *raymond.Template

	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	// manifests remembers every manifest path already read, successfully or
	// not, so a package with many modules is parsed (and warned about) once.
	manifests map[string]string
}

// New validates opts and creates an empty collector.
func New(opts Options) (*Collector, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	source := opts.Template
	if source == "" {
		source = DefaultTemplate
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid banner template: %w", err)
	}

	var roots []string
	if opts.Root != "" {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", opts.Root, err)
		}
		roots = append(roots, root)
	}
	resolver := npm.NewResolver(roots...)

	lookup := opts.Lookup
	if lookup == nil {
		checker := licenses.NewChecker()
		checker.Resolver = resolver
		lookup = checker
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = LogDiagnostics
	}

	return &Collector{
		opts:      opts,
		resolver:  resolver,
		lookup:    lookup,
		diag:      diag,
		jsdoc:     tpl,
		entries:   make(map[string]*Entry),
		manifests: make(map[string]string),
	}, nil
}

// Load is the module-load hook. Ids outside node_modules are ignored.
func (c *Collector) Load(id string, diag Diagnostics) {
	name, dir, ok := npm.PackageNameFromPath(id)
	if !ok {
		return
	}
	diag = c.diagnostics(diag)

	manifestPath, ok := npm.ManifestInDir(dir)
	if !ok {
		var err error
		manifestPath, err = c.resolver.ResolveManifest(name, "")
		if err != nil {
			diag.Warn("unable to resolve package manifest", logger.String("package", name), logger.String("id", id), logger.Err(err))
			return
		}
	}
	if err := c.loadManifest(manifestPath); err != nil && !errors.Is(err, errManifestSkipped) {
		diag.Warn("unable to load package manifest", logger.String("package", name), logger.String("path", manifestPath), logger.Err(err))
	}
}

// Resolve is the pre-resolution hook for import specifiers. Trailing path
// segments are stripped until a prefix resolves to a valid manifest from
// resolveDir, so "pkg/dist/sub.js" finds pkg.
func (c *Collector) Resolve(specifier, resolveDir string, diag Diagnostics) {
	if !npm.IsBare(specifier) {
		return
	}
	diag = c.diagnostics(diag)

	var lastErr error
	for _, prefix := range npm.SpecifierPrefixes(specifier) {
		manifestPath, err := c.resolver.ResolveManifest(prefix, resolveDir)
		if err != nil {
			continue
		}
		if lastErr = c.loadManifest(manifestPath); lastErr == nil {
			return
		}
	}

	if npm.IsBuiltin(specifier) || errors.Is(lastErr, errManifestSkipped) {
		return
	}
	fields := []logger.Field{logger.String("specifier", specifier)}
	if resolveDir != "" {
		fields = append(fields, logger.String("from", resolveDir))
	}
	if lastErr != nil {
		fields = append(fields, logger.Err(lastErr))
	}
	diag.Warn("unable to resolve package for import", fields...)
}

func (c *Collector) diagnostics(diag Diagnostics) Diagnostics {
	if diag != nil {
		return diag
	}
	return c.diag
}

const failedManifest = ""

// loadManifest parses the manifest at path and caches it under name@version.
func (c *Collector) loadManifest(path string) error {
	c.mu.Lock()
	key, seen := c.manifests[path]
	c.mu.Unlock()
	if seen {
		if key == failedManifest {
			return errManifestSkipped
		}
		return nil
	}

	m, err := npm.ReadManifest(path)
	if err == nil {
		err = m.Validate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.manifests[path] = failedManifest
		return err
	}

	name := norm.NFC.String(m.Name)
	version := norm.NFC.String(m.Version)
	key = name + "@" + version
	c.manifests[path] = key
	if _, exists := c.entries[key]; exists {
		return nil
	}
	c.entries[key] = &Entry{
		Key:      key,
		Name:     name,
		Version:  version,
		BasePath: filepath.Dir(path),
		Manifest: m,
	}
	c.order = append(c.order, key)
	logger.Debug("package observed", logger.String("package", key))
	return nil
}

// errManifestSkipped marks a manifest that already failed and was reported.
var errManifestSkipped = errors.New("manifest previously failed to load")

// Entries returns the cached packages in the order they were first observed.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.entries[key])
	}
	return out
}

// Len returns the number of unique packages observed.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Collector) excluded(name string) bool {
	for _, pattern := range c.opts.Exclude {
		if pattern == name {
			return true
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
