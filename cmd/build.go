/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/licensebanner/pkg/esbuildplugin"
	"github.com/fulmenhq/licensebanner/pkg/exitcode"
	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <entry>...",
		Short: "Bundle entry points and prepend the license banner",
		Long: `Bundle entry points with esbuild. Every bare import and every file loaded
from node_modules is recorded; once the build finishes the license banner is
prepended to each emitted .js, .mjs, .cjs and .css file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBuild,
	}
	cmd.Flags().String("outdir", "", "Output directory")
	cmd.Flags().String("outfile", "", "Output file (single entry point)")
	cmd.Flags().Bool("bundle", true, "Bundle dependencies into the output")
	cmd.Flags().Bool("minify", false, "Minify whitespace, identifiers and syntax")
	cmd.Flags().String("format-out", "esm", "Output module format (esm|cjs|iife)")
	cmd.Flags().String("platform", "browser", "Target platform (browser|node|neutral)")
	cmd.Flags().StringSlice("external", nil, "Packages to leave out of the bundle")
	cmd.Flags().String("metafile", "", "Also write the esbuild metafile to this path")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := buildOptions(cmd, args)
	if err != nil {
		return exitcode.WithCode(exitcode.ConfigError, err)
	}
	collector, err := newCollector(cfg)
	if err != nil {
		return err
	}
	opts.Plugins = []api.Plugin{esbuildplugin.New(collector)}

	result := api.Build(opts)
	for _, msg := range result.Warnings {
		logger.Warn(msg.Text, messageFields(msg)...)
	}
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			logger.Error(msg.Text, messageFields(msg)...)
		}
		return exitcode.WithCode(exitcode.BuildError, fmt.Errorf("esbuild reported %d error(s)", len(result.Errors)))
	}

	ctx, cancel := bannerContext(cmd, cfg)
	defer cancel()
	text, err := collector.Banner(ctx)
	if err != nil {
		return fmt.Errorf("failed to produce license banner: %w", err)
	}

	for _, file := range result.OutputFiles {
		contents := file.Contents
		if text != "" && takesBanner(file.Path) {
			contents = prependBanner(text, contents)
		}
		if err := safeio.WriteFilePreservePerms(file.Path, contents); err != nil {
			return exitcode.WithCode(exitcode.FileSystemError, fmt.Errorf("failed to write %s: %w", file.Path, err))
		}
		logger.Debug("output written", logger.String("path", file.Path), logger.Int("bytes", len(contents)))
	}

	if path, _ := cmd.Flags().GetString("metafile"); path != "" {
		if err := safeio.WriteFilePreservePerms(path, []byte(result.Metafile)); err != nil {
			return exitcode.WithCode(exitcode.FileSystemError, fmt.Errorf("failed to write metafile: %w", err))
		}
	}

	logger.Info("build complete",
		logger.Int("outputs", len(result.OutputFiles)),
		logger.Int("packages", collector.Len()))
	return nil
}

func buildOptions(cmd *cobra.Command, entries []string) (api.BuildOptions, error) {
	outdir, _ := cmd.Flags().GetString("outdir")
	outfile, _ := cmd.Flags().GetString("outfile")
	bundle, _ := cmd.Flags().GetBool("bundle")
	minify, _ := cmd.Flags().GetBool("minify")
	formatOut, _ := cmd.Flags().GetString("format-out")
	platformName, _ := cmd.Flags().GetString("platform")
	external, _ := cmd.Flags().GetStringSlice("external")
	metafile, _ := cmd.Flags().GetString("metafile")

	switch {
	case outdir == "" && outfile == "":
		return api.BuildOptions{}, errors.New("one of --outdir or --outfile is required")
	case outdir != "" && outfile != "":
		return api.BuildOptions{}, errors.New("--outdir and --outfile are mutually exclusive")
	case outfile != "" && len(entries) > 1:
		return api.BuildOptions{}, errors.New("--outfile accepts a single entry point")
	}

	format, err := parseOutputFormat(formatOut)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := parsePlatform(platformName)
	if err != nil {
		return api.BuildOptions{}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return api.BuildOptions{}, err
	}
	return api.BuildOptions{
		EntryPoints:       entries,
		AbsWorkingDir:     cwd,
		Outdir:            outdir,
		Outfile:           outfile,
		Bundle:            bundle,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		Format:            format,
		Platform:          platform,
		External:          external,
		Metafile:          metafile != "",
		Write:             false,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

func parseOutputFormat(s string) (api.Format, error) {
	switch strings.ToLower(s) {
	case "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	default:
		return api.FormatDefault, fmt.Errorf("unsupported output format %q (esm|cjs|iife)", s)
	}
}

func parsePlatform(s string) (api.Platform, error) {
	switch strings.ToLower(s) {
	case "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	default:
		return api.PlatformDefault, fmt.Errorf("unsupported platform %q (browser|node|neutral)", s)
	}
}

func messageFields(msg api.Message) []logger.Field {
	var fields []logger.Field
	if msg.PluginName != "" {
		fields = append(fields, logger.String("plugin", msg.PluginName))
	}
	if loc := msg.Location; loc != nil {
		fields = append(fields, logger.String("file", loc.File), logger.Int("line", loc.Line))
	}
	return fields
}

func takesBanner(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".css":
		return true
	}
	return false
}

// prependBanner puts text before contents, after a leading shebang line.
func prependBanner(text string, contents []byte) []byte {
	var out bytes.Buffer
	if bytes.HasPrefix(contents, []byte("#!")) {
		end := bytes.IndexByte(contents, '\n')
		if end < 0 {
			end = len(contents) - 1
		}
		out.Write(contents[:end+1])
		if end == len(contents)-1 && contents[end] != '\n' {
			out.WriteByte('\n')
		}
		contents = contents[end+1:]
	}
	out.WriteString(text)
	out.WriteByte('\n')
	out.Write(contents)
	return out.Bytes()
}
