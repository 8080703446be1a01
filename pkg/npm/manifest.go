/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package npm

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// ManifestFile is the npm package manifest file name.
const ManifestFile = "package.json"

// ErrInvalidManifest is returned for manifests lacking a name or version.
var ErrInvalidManifest = errors.New("invalid package manifest")

// Manifest holds the package.json fields used for license reporting.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	License              LicenseField      `json:"license"`
	Licenses             LicenseList       `json:"licenses"`
	Author               *Person           `json:"author"`
	Repository           *Repository       `json:"repository"`
	Homepage             string            `json:"homepage"`
	Private              bool              `json:"private"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ID returns the package identity "<name>@<version>".
func (m *Manifest) ID() string {
	return m.Name + "@" + m.Version
}

// Validate checks that the manifest identifies a package.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("%w: %s has no version", ErrInvalidManifest, m.Name)
	}
	return nil
}

// DeclaredLicenses returns the declared license identifiers: the modern
// "license" field, or the legacy "licenses" array when that is absent.
func (m *Manifest) DeclaredLicenses() []string {
	if m.License.Type != "" {
		return []string{m.License.Type}
	}
	var out []string
	for _, l := range m.Licenses {
		if l.Type != "" {
			out = append(out, l.Type)
		}
	}
	return out
}

// ParseManifest decodes package.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	return &m, nil
}

// ReadManifest reads and parses the package.json at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := safeio.ReadFileContained(filepath.Dir(path), path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LicenseField accepts "MIT" as well as the deprecated {"type": "MIT", "url": ...}.
type LicenseField struct {
	Type string
	URL  string
}

func (l *LicenseField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.Type = strings.TrimSpace(s)
		return nil
	}
	var obj struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Numbers, arrays and friends are treated as undeclared.
		return nil
	}
	l.Type = strings.TrimSpace(obj.Type)
	l.URL = obj.URL
	return nil
}

// LicenseList is the legacy "licenses" field, an array or a single value.
type LicenseList []LicenseField

func (ls *LicenseList) UnmarshalJSON(data []byte) error {
	var many []LicenseField
	if err := json.Unmarshal(data, &many); err == nil {
		*ls = many
		return nil
	}
	var one LicenseField
	if err := json.Unmarshal(data, &one); err != nil {
		return nil
	}
	if one.Type != "" {
		*ls = LicenseList{one}
	}
	return nil
}

// Person is an npm "people field": "Name <email> (url)" or an object.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	URL   string `json:"url"`
}

var personRegex = regexp.MustCompile(`^\s*([^<(]*?)\s*(?:<([^>]*)>)?\s*(?:\(([^)]*)\))?\s*$`)

// ParsePerson splits the "Name <email> (url)" shorthand.
func ParsePerson(s string) Person {
	m := personRegex.FindStringSubmatch(s)
	if m == nil {
		return Person{Name: strings.TrimSpace(s)}
	}
	return Person{
		Name:  strings.TrimSpace(m[1]),
		Email: strings.TrimSpace(m[2]),
		URL:   strings.TrimSpace(m[3]),
	}
}

func (p *Person) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ParsePerson(s)
		return nil
	}
	type plain Person
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	*p = Person(obj)
	return nil
}

// Repository is the "repository" field, a string shorthand or an object.
type Repository struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Directory string `json:"directory"`
}

func (r *Repository) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URL = s
		return nil
	}
	type plain Repository
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	*r = Repository(obj)
	return nil
}

var scpLikeRegex = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+\.[a-z]{2,}):(.+)$`)

// RepositoryURL normalizes a repository reference to a browsable https URL:
// git+https://host/o/r.git, git://host/o/r, git@host:o/r.git and the
// github:/gitlab:/bitbucket: and "owner/repo" shorthands.
func RepositoryURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	for prefix, host := range map[string]string{
		"github:":    "https://github.com/",
		"gitlab:":    "https://gitlab.com/",
		"bitbucket:": "https://bitbucket.org/",
		"gist:":      "https://gist.github.com/",
	} {
		if strings.HasPrefix(u, prefix) {
			u = host + strings.TrimPrefix(u, prefix)
		}
	}

	if !strings.Contains(u, ":") && strings.Count(u, "/") == 1 && !strings.HasPrefix(u, "/") {
		u = "https://github.com/" + u
	}

	u = strings.TrimPrefix(u, "git+")
	switch {
	case strings.HasPrefix(u, "git://"):
		u = "https://" + strings.TrimPrefix(u, "git://")
	case strings.HasPrefix(u, "ssh://"):
		u = "https://" + strings.TrimPrefix(u, "ssh://")
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
	default:
		if m := scpLikeRegex.FindStringSubmatch(u); m != nil {
			u = "https://" + m[1] + "/" + strings.TrimPrefix(m[2], "/")
		}
	}

	// Drop credentials left over from ssh://git@host forms.
	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		if at := strings.Index(rest, "@"); at >= 0 && at < strings.Index(rest+"/", "/") {
			u = "https://" + rest[at+1:]
		}
	}

	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return u
}
