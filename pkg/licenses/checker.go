/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package licenses reports the declared license of an installed npm package
// and of every package in its installed dependency subtree.
package licenses

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/fulmenhq/licensebanner/pkg/npm"
)

// ErrNoManifest is returned when the lookup directory has no package.json.
var ErrNoManifest = errors.New("no package.json in lookup directory")

// Record is the license information of one package.
type Record struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Licenses    string `json:"licenses"`
	Publisher   string `json:"publisher,omitempty"`
	Email       string `json:"email,omitempty"`
	URL         string `json:"url,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Path        string `json:"path"`
	LicenseFile string `json:"licenseFile,omitempty"`
}

// ID returns "<name>@<version>".
func (r Record) ID() string {
	return r.Name + "@" + r.Version
}

// Source is the repository URL when known, otherwise the publisher email.
func (r Record) Source() string {
	if r.Repository != "" {
		return r.Repository
	}
	return r.Email
}

// Lookup is the license lookup facility used by banner production.
type Lookup interface {
	Check(ctx context.Context, dir string) ([]Record, error)
}

// Checker walks a package and its installed dependencies.
type Checker struct {
	Resolver   *npm.Resolver
	Classifier Classifier
	// MaxDepth limits how far below the start package dependencies are
	// followed. Zero means no limit.
	MaxDepth int
}

// NewChecker returns a Checker backed by the go-licenses database.
func NewChecker() *Checker {
	return &Checker{
		Resolver:   npm.NewResolver(),
		Classifier: &DatabaseClassifier{},
	}
}

type pending struct {
	dir      string
	manifest *npm.Manifest
	depth    int
}

// Check returns one record per unique name@version reachable from dir,
// sorted by ID. Dependencies that are not installed are skipped.
func (c *Checker) Check(ctx context.Context, dir string) ([]Record, error) {
	manifestPath, ok := npm.ManifestInDir(dir)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoManifest, dir)
	}
	root, err := npm.ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", manifestPath, err)
	}

	resolver := c.Resolver
	if resolver == nil {
		resolver = npm.NewResolver()
	}

	found := make(map[string]Record)
	queue := []pending{{dir: filepath.Dir(manifestPath), manifest: root}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := queue[0]
		queue = queue[1:]

		id := item.manifest.ID()
		if _, done := found[id]; done {
			continue
		}
		found[id] = c.record(item.dir, item.manifest)

		if c.MaxDepth > 0 && item.depth >= c.MaxDepth {
			continue
		}
		for _, dep := range dependencyNames(item.manifest) {
			path, err := resolver.ResolveManifest(dep, item.dir)
			if err != nil {
				logger.Debug("dependency not installed", logger.String("package", id), logger.String("dependency", dep))
				continue
			}
			m, err := npm.ReadManifest(path)
			if err != nil || m.Validate() != nil {
				logger.Debug("skipping unreadable dependency manifest", logger.String("path", path))
				continue
			}
			queue = append(queue, pending{dir: filepath.Dir(path), manifest: m, depth: item.depth + 1})
		}
	}

	records := make([]Record, 0, len(found))
	for _, r := range found {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })
	return records, nil
}

func dependencyNames(m *npm.Manifest) []string {
	names := make([]string, 0, len(m.Dependencies)+len(m.OptionalDependencies))
	seen := make(map[string]bool)
	for _, deps := range []map[string]string{m.Dependencies, m.OptionalDependencies} {
		for name := range deps {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (c *Checker) record(dir string, m *npm.Manifest) Record {
	r := Record{
		Name:        m.Name,
		Version:     m.Version,
		Path:        dir,
		LicenseFile: FindLicenseFile(dir),
	}
	if m.Author != nil {
		r.Publisher = m.Author.Name
		r.Email = m.Author.Email
		r.URL = m.Author.URL
	}
	if m.Repository != nil {
		r.Repository = npm.RepositoryURL(m.Repository.URL)
	}
	r.Licenses = c.licenses(m, r.LicenseFile)
	return r
}

// licenses prefers declared identifiers. Otherwise the license file is
// classified and the guess is marked with a trailing "*".
func (c *Checker) licenses(m *npm.Manifest, licenseFile string) string {
	if declared := m.DeclaredLicenses(); len(declared) > 0 {
		out := make([]string, 0, len(declared))
		for _, d := range declared {
			if rest, ok := cutFold(d, "SEE LICENSE IN "); ok {
				d = "Custom: " + strings.TrimSpace(rest)
			}
			out = append(out, d)
		}
		return strings.Join(out, ", ")
	}

	if licenseFile == "" {
		return Unknown
	}
	classifier := c.Classifier
	if classifier == nil {
		classifier = HeuristicClassifier{}
	}
	names, err := classifier.Identify(licenseFile)
	if err != nil || len(names) == 0 {
		return Unknown
	}
	guessed := make([]string, len(names))
	for i, n := range names {
		guessed[i] = n + "*"
	}
	return strings.Join(guessed, ", ")
}

func cutFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
