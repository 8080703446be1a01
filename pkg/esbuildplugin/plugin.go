/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package esbuildplugin exposes a banner.Collector as an esbuild plugin.
package esbuildplugin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/fulmenhq/licensebanner/pkg/banner"
	"github.com/fulmenhq/licensebanner/pkg/logger"
)

// Name is the plugin name esbuild reports in messages.
const Name = "license-banner"

// BareSpecifierFilter matches import paths that are not relative or absolute.
const BareSpecifierFilter = `^[^./]|^\.[^./]`

// New returns a plugin that feeds every resolved bare import and every
// loaded file into c. It never claims a path or supplies contents, so
// esbuild's own resolution and loading are unchanged.
func New(c *banner.Collector) api.Plugin {
	return api.Plugin{
		Name: Name,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: BareSpecifierFilter}, onResolve(c))
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"}, onLoad(c))
		},
	}
}

func onResolve(c *banner.Collector) func(api.OnResolveArgs) (api.OnResolveResult, error) {
	return func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		var sink messages
		c.Resolve(args.Path, args.ResolveDir, &sink)
		return api.OnResolveResult{Warnings: sink.list()}, nil
	}
}

func onLoad(c *banner.Collector) func(api.OnLoadArgs) (api.OnLoadResult, error) {
	return func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		var sink messages
		c.Load(args.Path, &sink)
		return api.OnLoadResult{Warnings: sink.list()}, nil
	}
}

// messages turns collector warnings into esbuild messages for one hook call.
type messages struct {
	mu  sync.Mutex
	out []api.Message
}

func (m *messages) Warn(message string, fields ...logger.Field) {
	text := message
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		text += " (" + strings.Join(parts, ", ") + ")"
	}
	m.mu.Lock()
	m.out = append(m.out, api.Message{PluginName: Name, Text: text})
	m.mu.Unlock()
}

func (m *messages) list() []api.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out
}
