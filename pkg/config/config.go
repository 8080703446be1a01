package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fulmenhq/licensebanner/pkg/banner"
	"github.com/fulmenhq/licensebanner/pkg/safeio"
)

// EnvPrefix prefixes environment overrides, e.g. LICENSEBANNER_FORMAT=table.
const EnvPrefix = "LICENSEBANNER"

// ConfigFileNames are searched in order in the working directory.
var ConfigFileNames = []string{
	".licensebanner.yaml",
	".licensebanner.yml",
	".licensebanner.json",
	".licensebanner.toml",
}

// Config holds all configuration for licensebanner
type Config struct {
	Format       string        `mapstructure:"format"`
	Exclude      []string      `mapstructure:"exclude"`
	Sort         bool          `mapstructure:"sort"`
	Title        string        `mapstructure:"title"`
	Template     string        `mapstructure:"template"`
	TemplateFile string        `mapstructure:"template_file"`
	Root         string        `mapstructure:"root"`
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

var defaultConfig = Config{
	Format:      string(banner.FormatJSDoc),
	Exclude:     []string{},
	Sort:        true,
	Title:       banner.DefaultTitle,
	Root:        ".",
	Concurrency: 0,
	Timeout:     0,
}

// Default returns a copy of the built-in defaults.
func Default() Config {
	c := defaultConfig
	c.Exclude = []string{}
	return c
}

// LoadOptions controls where LoadConfig looks.
type LoadOptions struct {
	// File is an explicit config file; when empty Dir is searched.
	File string
	// Dir is searched for ConfigFileNames. Defaults to ".".
	Dir string
	// Flags whose names match config keys override every other source
	// when set on the command line.
	Flags *pflag.FlagSet
}

// LoadConfig loads configuration from defaults, config file, environment and
// flags, in increasing order of precedence. The config file is validated
// against the embedded schema before it is read.
func LoadConfig(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("format", defaultConfig.Format)
	v.SetDefault("exclude", defaultConfig.Exclude)
	v.SetDefault("sort", defaultConfig.Sort)
	v.SetDefault("title", defaultConfig.Title)
	v.SetDefault("template", "")
	v.SetDefault("template_file", "")
	v.SetDefault("root", defaultConfig.Root)
	v.SetDefault("concurrency", defaultConfig.Concurrency)
	v.SetDefault("timeout", defaultConfig.Timeout)

	file, err := findConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := ValidateFile(file); err != nil {
			return nil, err
		}
		v.SetConfigFile(file)
		v.SetConfigType(configType(file))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("error binding flags: %w", bindErr)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.File = file
	return &config, nil
}

func isKnownKey(key string) bool {
	switch key {
	case "format", "exclude", "sort", "title", "template", "template_file", "root", "concurrency", "timeout":
		return true
	}
	return false
}

func findConfigFile(opts LoadOptions) (string, error) {
	if opts.File != "" {
		if !safeio.IsFile(opts.File) {
			return "", fmt.Errorf("config file %s: %w", opts.File, os.ErrNotExist)
		}
		return opts.File, nil
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if safeio.IsFile(path) {
			return path, nil
		}
	}
	return "", nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// ErrTemplateConflict is returned when both template and template_file are set.
var ErrTemplateConflict = errors.New("template and template_file are mutually exclusive")

// BannerOptions converts the configuration into collector options.
// template_file is read relative to the config file's directory.
func (c *Config) BannerOptions() (banner.Options, error) {
	opts := banner.DefaultOptions()
	opts.Format = banner.ParseFormat(c.Format)
	opts.Exclude = append([]string(nil), c.Exclude...)
	opts.Sort = c.Sort
	if c.Title != "" {
		opts.Title = c.Title
	}
	if c.Root != "" {
		opts.Root = c.Root
	}
	opts.Concurrency = c.Concurrency
	opts.Template = c.Template

	if c.TemplateFile != "" {
		if c.Template != "" {
			return opts, ErrTemplateConflict
		}
		path := c.TemplateFile
		base := "."
		if c.File != "" {
			base = filepath.Dir(c.File)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		data, err := safeio.ReadFileContained(filepath.Dir(path), path)
		if err != nil {
			return opts, fmt.Errorf("failed to read template file: %w", err)
		}
		opts.Template = string(data)
	}
	return opts, nil
}
