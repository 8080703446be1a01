package licenses

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	golicenses "github.com/google/go-licenses/v2/licenses"

	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// Unknown is reported when no license can be determined.
const Unknown = "UNKNOWN"

// Classifier identifies the licenses contained in a license file.
type Classifier interface {
	Identify(path string) ([]string, error)
}

// DetectLicenseType returns an SPDX identifier from license name or content
func DetectLicenseType(nameOrContent string) string {
	normalized := strings.ToUpper(strings.TrimSpace(nameOrContent))

	// Order matters: check more specific patterns first
	switch {
	case strings.Contains(normalized, "BSD 3-CLAUSE") || strings.Contains(normalized, "BSD-3-CLAUSE"):
		return "BSD-3-Clause"
	case strings.Contains(normalized, "REDISTRIBUTION AND USE") && strings.Contains(normalized, "NEITHER THE NAME"):
		return "BSD-3-Clause"
	case strings.Contains(normalized, "BSD 2-CLAUSE") || strings.Contains(normalized, "BSD-2-CLAUSE"):
		return "BSD-2-Clause"
	case strings.Contains(normalized, "REDISTRIBUTION AND USE"):
		return "BSD-2-Clause"
	case strings.Contains(normalized, "APACHE LICENSE") || strings.Contains(normalized, "APACHE 2.0") || strings.Contains(normalized, "APACHE-2.0"):
		return "Apache-2.0"
	case strings.Contains(normalized, "GNU LESSER GENERAL PUBLIC LICENSE") || strings.Contains(normalized, "LGPL"):
		return "LGPL-3.0"
	case strings.Contains(normalized, "GNU GENERAL PUBLIC LICENSE") && strings.Contains(normalized, "VERSION 3"):
		return "GPL-3.0"
	case strings.Contains(normalized, "GPL-3.0"):
		return "GPL-3.0"
	case strings.Contains(normalized, "GPL-2.0"):
		return "GPL-2.0"
	case strings.Contains(normalized, "MOZILLA PUBLIC LICENSE"):
		return "MPL-2.0"
	case normalized == "ISC" || strings.Contains(normalized, "ISC LICENSE"):
		return "ISC"
	case strings.Contains(normalized, "PERMISSION TO USE, COPY, MODIFY, AND/OR DISTRIBUTE"):
		return "ISC"
	case strings.Contains(normalized, "UNLICENSE"):
		return "Unlicense"
	case normalized == "MIT" || strings.Contains(normalized, "MIT LICENSE"):
		return "MIT"
	case strings.Contains(normalized, "PERMISSION IS HEREBY GRANTED, FREE OF CHARGE"):
		return "MIT"
	default:
		return ""
	}
}

// LicenseURL returns the canonical text URL for an SPDX identifier.
func LicenseURL(licenseType string) string {
	switch strings.TrimSuffix(licenseType, "*") {
	case "MIT":
		return "https://opensource.org/licenses/MIT"
	case "Apache-2.0":
		return "https://www.apache.org/licenses/LICENSE-2.0"
	case "BSD-3-Clause":
		return "https://opensource.org/licenses/BSD-3-Clause"
	case "BSD-2-Clause":
		return "https://opensource.org/licenses/BSD-2-Clause"
	case "GPL-3.0":
		return "https://www.gnu.org/licenses/gpl-3.0.html"
	case "GPL-2.0":
		return "https://www.gnu.org/licenses/gpl-2.0.html"
	case "LGPL-3.0":
		return "https://www.gnu.org/licenses/lgpl-3.0.html"
	case "ISC":
		return "https://opensource.org/licenses/ISC"
	case "MPL-2.0":
		return "https://www.mozilla.org/en-US/MPL/2.0/"
	case "Unlicense":
		return "http://unlicense.org/"
	default:
		return ""
	}
}

// HeuristicClassifier matches license text against well known phrases.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Identify(path string) ([]string, error) {
	data, err := safeio.ReadFileContained(filepath.Dir(path), path)
	if err != nil {
		return nil, err
	}
	if t := DetectLicenseType(string(data)); t != "" {
		return []string{t}, nil
	}
	return nil, nil
}

// DatabaseClassifier uses the go-licenses license database. The database is
// loaded on first use and shared by all goroutines; a load failure is logged
// once and every later call falls back to the heuristics.
type DatabaseClassifier struct {
	once       sync.Once
	mu         sync.Mutex
	classifier golicenses.Classifier
	fallback   HeuristicClassifier
}

func (d *DatabaseClassifier) Identify(path string) ([]string, error) {
	d.once.Do(func() {
		c, err := golicenses.NewClassifier()
		if err != nil {
			logger.Warn("license database unavailable, using heuristics", logger.Err(err))
			return
		}
		d.classifier = c
	})
	if d.classifier == nil {
		return d.fallback.Identify(path)
	}

	d.mu.Lock()
	found, err := d.classifier.Identify(path)
	d.mu.Unlock()
	if err != nil || len(found) == 0 {
		return d.fallback.Identify(path)
	}

	seen := make(map[string]bool)
	var names []string
	for _, l := range found {
		if l.Name != "" && !seen[l.Name] {
			seen[l.Name] = true
			names = append(names, l.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

var licenseFilePrefixes = []string{"LICENSE", "LICENCE", "COPYING"}

// FindLicenseFile returns the most likely license file in dir, or "".
func FindLicenseFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, prefix := range licenseFilePrefixes {
		var matches []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasPrefix(strings.ToUpper(e.Name()), prefix) {
				matches = append(matches, e.Name())
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return filepath.Join(dir, matches[0])
		}
	}
	return ""
}
