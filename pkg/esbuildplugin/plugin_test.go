package esbuildplugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/licensebanner/internal/testutil"
	"github.com/fulmenhq/licensebanner/pkg/banner"
	"github.com/fulmenhq/licensebanner/pkg/licenses"
	"github.com/fulmenhq/licensebanner/pkg/logger"
)

func newCollector(t *testing.T, root string) *banner.Collector {
	t.Helper()
	opts := banner.DefaultOptions()
	opts.Root = root
	opts.Format = banner.FormatTable
	opts.Lookup = &licenses.Checker{Classifier: licenses.HeuristicClassifier{}}
	opts.Diagnostics = banner.DiagnosticsFunc(func(message string, _ ...logger.Field) {
		t.Errorf("unexpected collector warning: %s", message)
	})
	c, err := banner.New(opts)
	require.NoError(t, err)
	return c
}

func TestPluginCollectsBundledPackages(t *testing.T) {
	root := t.TempDir()
	testutil.LeftPadIsOdd(t, root)
	testutil.WriteFile(t, filepath.Join(root, "src", "util.js"), "export const n = 3;\n")
	testutil.WriteFile(t, filepath.Join(root, "src", "index.js"),
		"import leftPad from 'left-pad';\n"+
			"import isOdd from 'is-odd';\n"+
			"import { n } from './util.js';\n"+
			"console.log(leftPad, isOdd, n);\n")
	c := newCollector(t, root)

	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{filepath.Join(root, "src", "index.js")},
		AbsWorkingDir: root,
		Outdir:        filepath.Join(root, "dist"),
		Bundle:        true,
		Write:         false,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{New(c)},
	})

	require.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.OutputFiles, 1)

	var keys []string
	for _, e := range c.Entries() {
		keys = append(keys, e.Key)
	}
	assert.ElementsMatch(t, []string{"left-pad@1.0.0", "is-odd@0.1.0"}, keys)

	out, err := c.Banner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/*!\n"+
		" * Third-party licenses\n"+
		" *\n"+
		" * Name      Version  License(s)  Publisher  Source\n"+
		" * is-odd    0.1.0    ISC         Bar        bar@example.com\n"+
		" * left-pad  1.0.0    MIT         Foo        https://github.com/stevemao/left-pad\n"+
		" */", out)
}

func TestPluginLeavesLocalBuildsAlone(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "index.js"), "export default 1;\n")
	c := newCollector(t, root)

	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{filepath.Join(root, "index.js")},
		AbsWorkingDir: root,
		Outdir:        filepath.Join(root, "dist"),
		Bundle:        true,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{New(c)},
	})

	require.Empty(t, result.Errors)
	assert.Zero(t, c.Len())
}

func TestResolveWarningsBecomeMessages(t *testing.T) {
	root := t.TempDir()
	opts := banner.DefaultOptions()
	opts.Root = root
	c, err := banner.New(opts)
	require.NoError(t, err)

	result, err := onResolve(c)(api.OnResolveArgs{Path: "ghost/sub", ResolveDir: root})

	require.NoError(t, err)
	assert.Empty(t, result.Path)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, Name, result.Warnings[0].PluginName)
	assert.Contains(t, result.Warnings[0].Text, "specifier=ghost/sub")
}

func TestLoadNeverSuppliesContents(t *testing.T) {
	root := t.TempDir()
	dir := testutil.Installed(t, root, "left-pad", "1.0.0", nil)
	c := newCollector(t, root)

	result, err := onLoad(c)(api.OnLoadArgs{Path: filepath.Join(dir, "index.js"), Namespace: "file"})

	require.NoError(t, err)
	assert.Nil(t, result.Contents)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, c.Len())
}
