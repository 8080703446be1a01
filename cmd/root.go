/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/licensebanner/internal/ops"
	"github.com/fulmenhq/licensebanner/pkg/banner"
	"github.com/fulmenhq/licensebanner/pkg/buildinfo"
	"github.com/fulmenhq/licensebanner/pkg/config"
	"github.com/fulmenhq/licensebanner/pkg/exitcode"
	"github.com/fulmenhq/licensebanner/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licensebanner",
		Short: "Bundle JavaScript with a third-party license banner",
		Long: `licensebanner bundles JavaScript with esbuild and prepends a comment banner
listing the name, version, license and publisher of every third-party npm
package that ended up in the bundle.

Examples:
   licensebanner build src/index.js --outdir dist           # bundle + banner
   licensebanner build src/index.js --outfile app.js --format table
   licensebanner scan --metafile meta.json                  # banner for an existing build
   licensebanner version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Config file (default: .licensebanner.{yaml,yml,json,toml} in the working directory)")

	// Banner options; names match config keys so they override the config file.
	cmd.PersistentFlags().String("format", string(banner.FormatJSDoc), "Banner layout (jsdoc|table)")
	cmd.PersistentFlags().StringSlice("exclude", nil, "Package names or globs to leave out of the banner")
	cmd.PersistentFlags().Bool("sort", true, "Sort table rows by package name")
	cmd.PersistentFlags().String("title", banner.DefaultTitle, "Table banner title")
	cmd.PersistentFlags().String("template-file", "", "Handlebars template for one JSDoc block")
	cmd.PersistentFlags().String("root", ".", "Fallback directory for package manifest resolution")
	cmd.PersistentFlags().Int("concurrency", 0, "Max parallel license lookups (0 = number of CPUs)")
	cmd.PersistentFlags().Duration("timeout", 0, "Abort banner production after this long (0 = no limit)")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("licensebanner {{.Version}}\n")

	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		if cmd.HasParent() {
			cmd.Println(cmd.UsageString())
			return
		}
		reg := ops.GetRegistry()
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Println("Bundle Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupBundle) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Support Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupSupport) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Flags:")
		cmd.Print(cmd.LocalFlags().FlagUsages())
	})

	return cmd
}

// registerSubcommands adds fresh subcommand instances to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and exits with the code mapped from its error.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.FromError(err))
	}
}

func init() {
	registerSubcommands(rootCmd)
	core := ops.DefaultTaxonomy().Core
	for _, c := range rootCmd.Commands() {
		class, ok := core[c.Name()]
		if !ok {
			continue
		}
		if err := ops.RegisterCommand(c.Name(), class.Group, class.Category, c, c.Short); err != nil {
			logger.Error("Failed to register command", logger.String("command", c.Name()), logger.Err(err))
		}
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logConfig := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "licensebanner",
	}

	if err := logger.Initialize(logConfig); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}

// loadConfig reads the layered configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(config.LoadOptions{File: file, Flags: cmd.Flags()})
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	if cfg.File != "" {
		logger.Debug("config loaded", logger.String("file", cfg.File))
	}
	return cfg, nil
}

// newCollector builds a collector from cfg.
func newCollector(cfg *config.Config) (*banner.Collector, error) {
	opts, err := cfg.BannerOptions()
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	c, err := banner.New(opts)
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	return c, nil
}

// bannerContext applies the configured timeout to the command context.
func bannerContext(cmd *cobra.Command, cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
