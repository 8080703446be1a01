package banner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fulmenhq/licensebanner/internal/testutil"
	"github.com/fulmenhq/licensebanner/pkg/licenses"
	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedWarnings struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordedWarnings) Warn(message string, fields ...logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts := []string{message}
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	r.messages = append(r.messages, strings.Join(parts, " "))
}

func (r *recordedWarnings) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// fakeLookup serves canned records keyed by package directory base name.
type fakeLookup struct {
	mu      sync.Mutex
	records map[string][]licenses.Record
	fail    map[string]error
	calls   int
}

func (f *fakeLookup) Check(ctx context.Context, dir string) ([]licenses.Record, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(dir)
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return f.records[name], nil
}

func newCollector(t *testing.T, root string, mutate func(*Options)) (*Collector, *recordedWarnings) {
	t.Helper()
	warnings := &recordedWarnings{}
	opts := DefaultOptions()
	opts.Root = root
	opts.Lookup = &licenses.Checker{Classifier: licenses.HeuristicClassifier{}}
	opts.Diagnostics = warnings
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c, warnings
}

func keys(c *Collector) []string {
	var out []string
	for _, e := range c.Entries() {
		out = append(out, e.Key)
	}
	return out
}

func moduleID(root string, parts ...string) string {
	return filepath.Join(append([]string{root, "node_modules"}, parts...)...)
}

func TestLoadExtractsPlainAndScopedPackages(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	testutil.Installed(t, root, "@scope/pkg", "2.1.0", nil)
	c, warnings := newCollector(t, root, nil)

	c.Load(moduleID(root, "left-pad", "index.js"), nil)
	c.Load(moduleID(root, "@scope", "pkg", "lib", "deep.js"), nil)

	assert.Equal(t, []string{"left-pad@1.0.0", "@scope/pkg@2.1.0"}, keys(c))
	assert.Empty(t, warnings.all())

	entries := c.Entries()
	assert.Equal(t, filepath.Join(root, "node_modules", "@scope", "pkg"), entries[1].BasePath)
	assert.Equal(t, "@scope/pkg", entries[1].Name)
}

func TestLoadIgnoresLocalModules(t *testing.T) {
	root := t.TempDir()
	c, warnings := newCollector(t, root, nil)

	c.Load("./src/index.js", nil)
	c.Load(filepath.Join(root, "src", "app.js"), nil)

	assert.Zero(t, c.Len())
	assert.Empty(t, warnings.all())
}

func TestLoadDeduplicatesByIdentity(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	// Same name@version installed twice; both copies share one identity.
	testutil.WritePackage(t, root, testutil.Package{
		Dir:      "node_modules/other/node_modules/left-pad",
		Manifest: map[string]any{"name": "left-pad", "version": "1.0.0"},
	})
	c, _ := newCollector(t, root, nil)

	c.Load(moduleID(root, "left-pad", "index.js"), nil)
	c.Load(moduleID(root, "left-pad", "index.js"), nil)
	c.Load(moduleID(root, "left-pad", "lib", "util.js"), nil)
	c.Load(moduleID(root, "other", "node_modules", "left-pad", "index.js"), nil)

	assert.Equal(t, []string{"left-pad@1.0.0"}, keys(c))
	assert.Equal(t, filepath.Join(root, "node_modules", "left-pad"), c.Entries()[0].BasePath)
}

func TestLoadKeepsDistinctVersions(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "is-number", "7.0.0", nil)
	testutil.WritePackage(t, root, testutil.Package{
		Dir:      "node_modules/is-odd/node_modules/is-number",
		Manifest: map[string]any{"name": "is-number", "version": "6.0.0"},
	})
	c, _ := newCollector(t, root, nil)

	c.Load(moduleID(root, "is-number", "index.js"), nil)
	c.Load(moduleID(root, "is-odd", "node_modules", "is-number", "index.js"), nil)

	assert.Equal(t, []string{"is-number@7.0.0", "is-number@6.0.0"}, keys(c))
}

func TestLoadFallsBackToRoot(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	c, warnings := newCollector(t, root, nil)

	// A virtual id whose directory does not exist on disk.
	c.Load("/virtual/node_modules/left-pad/index.js", nil)

	assert.Equal(t, []string{"left-pad@1.0.0"}, keys(c))
	assert.Empty(t, warnings.all())
}

func TestLoadWarnsWhenManifestMissing(t *testing.T) {
	c, warnings := newCollector(t, t.TempDir(), nil)

	c.Load("/virtual/node_modules/ghost/index.js", nil)

	assert.Zero(t, c.Len())
	require.Len(t, warnings.all(), 1)
	assert.Contains(t, warnings.all()[0], "package=ghost")
}

func TestLoadWarnsOnceForMalformedManifest(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "node_modules", "broken")
	testutil.WriteFile(t, filepath.Join(dir, "package.json"), "{ nope")
	testutil.WriteFile(t, filepath.Join(dir, "index.js"), "")
	c, warnings := newCollector(t, root, nil)

	c.Load(filepath.Join(dir, "index.js"), nil)
	c.Load(filepath.Join(dir, "index.js"), nil)

	assert.Zero(t, c.Len())
	assert.Len(t, warnings.all(), 1)
}

func TestLoadWarnsForManifestWithoutVersion(t *testing.T) {
	root := t.TempDir()
	testutil.WritePackage(t, root, testutil.Package{
		Dir:      "node_modules/unversioned",
		Manifest: map[string]any{"name": "unversioned"},
	})
	c, warnings := newCollector(t, root, nil)

	c.Load(moduleID(root, "unversioned", "index.js"), nil)

	assert.Zero(t, c.Len())
	assert.Len(t, warnings.all(), 1)
}

func TestLoadUsesPerCallDiagnostics(t *testing.T) {
	c, defaults := newCollector(t, t.TempDir(), nil)
	perCall := &recordedWarnings{}

	c.Load("/virtual/node_modules/ghost/index.js", perCall)

	assert.Len(t, perCall.all(), 1)
	assert.Empty(t, defaults.all())
}

func TestResolveStripsTrailingSegments(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	testutil.Installed(t, root, "@scope/pkg", "2.1.0", nil)
	c, warnings := newCollector(t, root, nil)
	src := filepath.Join(root, "src")

	c.Resolve("left-pad/lib/deep/file.js", src, nil)
	c.Resolve("@scope/pkg/sub", src, nil)
	c.Resolve("left-pad", src, nil)

	assert.Equal(t, []string{"left-pad@1.0.0", "@scope/pkg@2.1.0"}, keys(c))
	assert.Empty(t, warnings.all())
}

func TestResolveSkipsSubpathManifestWithoutVersion(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "preact", "10.19.0", nil)
	testutil.WritePackage(t, root, testutil.Package{
		Dir:      "node_modules/preact/hooks",
		Manifest: map[string]any{"name": "preact-hooks", "private": true},
	})
	c, warnings := newCollector(t, root, nil)

	c.Resolve("preact/hooks", root, nil)

	assert.Equal(t, []string{"preact@10.19.0"}, keys(c))
	assert.Empty(t, warnings.all())
}

func TestResolveIgnoresRelativeAndBuiltins(t *testing.T) {
	root := t.TempDir()
	c, warnings := newCollector(t, root, nil)

	c.Resolve("./local", root, nil)
	c.Resolve("../up", root, nil)
	c.Resolve("/abs/path.js", root, nil)
	c.Resolve("fs", root, nil)
	c.Resolve("node:path", root, nil)

	assert.Zero(t, c.Len())
	assert.Empty(t, warnings.all())
}

func TestResolveUsesInstalledPolyfillForBuiltinName(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "buffer", "6.0.3", map[string]any{"license": "MIT"})
	c, _ := newCollector(t, root, nil)

	c.Resolve("buffer", root, nil)

	assert.Equal(t, []string{"buffer@6.0.3"}, keys(c))
}

func TestResolveWarnsWhenNothingResolves(t *testing.T) {
	root := t.TempDir()
	c, warnings := newCollector(t, root, nil)

	c.Resolve("ghost/sub/path", root, nil)

	assert.Zero(t, c.Len())
	require.Len(t, warnings.all(), 1)
	assert.Contains(t, warnings.all()[0], "specifier=ghost/sub/path")
}

func TestConcurrentLoads(t *testing.T) {
	root := t.TempDir()
	testutil.LeftPadIsOdd(t, root)
	c, _ := newCollector(t, root, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Load(moduleID(root, "left-pad", "index.js"), nil)
			} else {
				c.Resolve("is-odd", root, nil)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, c.Len())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)

	_, err = New(Options{Template: "{{#if name}}unclosed"})
	assert.Error(t, err)
}

func TestEntriesAreSnapshots(t *testing.T) {
	root := t.TempDir()
	testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	c, _ := newCollector(t, root, nil)
	c.Load(moduleID(root, "left-pad", "index.js"), nil)

	entries := c.Entries()
	entries[0].Name = "mutated"

	assert.Equal(t, "left-pad", c.Entries()[0].Name)
}

func TestDiagnosticsFunc(t *testing.T) {
	var got string
	d := DiagnosticsFunc(func(message string, _ ...logger.Field) { got = message })
	d.Warn("hello")
	assert.Equal(t, "hello", got)
}
