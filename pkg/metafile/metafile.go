// Package metafile reads the JSON metafile esbuild writes with --metafile.
package metafile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// Metafile represents the esbuild metafile JSON structure
type Metafile struct {
	Inputs  map[string]Input  `json:"inputs"`
	Outputs map[string]Output `json:"outputs"`

	// dir is the directory input paths are relative to.
	dir string
}

// Input represents an input file in the metafile
type Input struct {
	Bytes   int      `json:"bytes"`
	Imports []Import `json:"imports"`
	Format  string   `json:"format,omitempty"`
}

// Import represents an import in the metafile
type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// Output represents an output file in the metafile
type Output struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]Contribution `json:"inputs"`
	Imports    []Import                `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// Contribution is the share of an input in one output.
type Contribution struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Parse decodes metafile JSON. Relative input paths are resolved against dir,
// the working directory of the build that produced it.
func Parse(data []byte, dir string) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid metafile: %w", err)
	}
	m.dir = dir
	return &m, nil
}

// Load reads a metafile from disk. Input paths are taken relative to the
// current working directory, which is where esbuild records them from.
func Load(path string) (*Metafile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := safeio.ReadFileContained(filepath.Dir(abs), abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read metafile %s: %w", path, err)
	}
	cwd, err := filepath.Abs(".")
	if err != nil {
		return nil, err
	}
	return Parse(data, cwd)
}

// InputPaths returns the on-disk paths of every input, sorted. Inputs from
// plugin namespaces ("ns:path") are skipped.
func (m *Metafile) InputPaths() []string {
	paths := make([]string, 0, len(m.Inputs))
	for p := range m.Inputs {
		if namespaced(p) {
			continue
		}
		p = filepath.FromSlash(p)
		if !filepath.IsAbs(p) && m.dir != "" {
			p = filepath.Join(m.dir, p)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// BundledInputs returns the inputs that contributed bytes to output, sorted.
func (m *Metafile) BundledInputs(output string) []string {
	out, ok := m.Outputs[output]
	if !ok {
		return nil
	}
	var paths []string
	for p, c := range out.Inputs {
		if c.BytesInOutput > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// namespaced reports "ns:path" ids. A single letter before the colon is a
// Windows drive.
func namespaced(p string) bool {
	i := strings.Index(p, ":")
	return i > 1 && !strings.ContainsAny(p[:i], `/\`)
}
