/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/licensebanner/pkg/buildinfo"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show licensebanner version information",
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show module and platform details")
	// Shadows the root --json so the flag means JSON output here.
	cmd.Flags().Bool("json", false, "Output version information in JSON format")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	version := buildinfo.Version()
	source := "ldflags"
	switch {
	case buildinfo.BinaryVersion != "" && buildinfo.BinaryVersion != "dev":
	case buildinfo.ModuleVersion() != "":
		source = "module"
	default:
		source = "development"
	}

	if jsonOutput {
		versionInfo := map[string]interface{}{
			"version":   version,
			"source":    source,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "licensebanner %s\n", version)
	if extended {
		fmt.Fprintf(out, "Source: %s\n", source)
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
