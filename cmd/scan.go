/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/licensebanner/pkg/exitcode"
	"github.com/fulmenhq/licensebanner/pkg/logger"
	"github.com/fulmenhq/licensebanner/pkg/metafile"
	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [module path]...",
		Short: "Print the license banner for modules of an existing build",
		Long: `Print the license banner for a set of module paths, or for every input
recorded in an esbuild metafile. Paths outside node_modules are ignored.`,
		RunE: runScan,
	}
	cmd.Flags().String("metafile", "", "esbuild metafile listing the build inputs")
	cmd.Flags().StringP("output", "o", "", "Write the banner to a file instead of stdout")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	metafilePath, _ := cmd.Flags().GetString("metafile")
	output, _ := cmd.Flags().GetString("output")
	if metafilePath == "" && len(args) == 0 {
		return exitcode.WithCode(exitcode.ConfigError, errors.New("provide module paths or --metafile"))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	collector, err := newCollector(cfg)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		paths = append(paths, abs)
	}
	if metafilePath != "" {
		m, err := metafile.Load(metafilePath)
		if err != nil {
			return err
		}
		paths = append(paths, m.InputPaths()...)
	}
	for _, p := range paths {
		collector.Load(p, nil)
	}
	logger.Debug("modules scanned", logger.Int("modules", len(paths)), logger.Int("packages", collector.Len()))

	ctx, cancel := bannerContext(cmd, cfg)
	defer cancel()
	text, err := collector.Banner(ctx)
	if err != nil {
		return fmt.Errorf("failed to produce license banner: %w", err)
	}

	if output != "" {
		if err := safeio.WriteFilePreservePerms(output, []byte(text+"\n")); err != nil {
			return exitcode.WithCode(exitcode.FileSystemError, err)
		}
		logger.Info("banner written", logger.String("path", output), logger.Int("packages", collector.Len()))
		return nil
	}
	if text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	return nil
}
