package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

const envPrefix = "RPSL"

// Config holds defaults shared by the command line tools
type Config struct {
	// Log verbosity as understood by kutil's logging backends
	Verbosity int    `mapstructure:"verbosity"`
	LogFile   string `mapstructure:"log_file"`

	// Splitter behaviour
	StrictBlank   bool   `mapstructure:"strict_blank"`
	CommentBreaks string `mapstructure:"comment_breaks"`

	// Number of files processed concurrently
	Jobs int `mapstructure:"jobs"`
}

func Default() *Config {
	return &Config{
		Verbosity:     0,
		StrictBlank:   false,
		CommentBreaks: "",
		Jobs:          runtime.NumCPU(),
	}
}

// SplitterOptions translates the configuration into splitter options.
func (c *Config) SplitterOptions() []splitter.Option {
	return []splitter.Option{
		splitter.WithStrictBlank(c.StrictBlank),
		splitter.WithCommentBreaks(c.CommentBreaks),
	}
}

// LogPath returns the log file path, or nil to log to stderr.
func (c *Config) LogPath() *string {
	if c.LogFile == "" {
		return nil
	}

	path := c.LogFile
	return &path
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("verbosity", defaults.Verbosity)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("strict_blank", defaults.StrictBlank)
	v.SetDefault("comment_breaks", defaults.CommentBreaks)
	v.SetDefault("jobs", defaults.Jobs)

	return v
}

// Load reads the first config file found in the standard locations and applies
// RPSL_* environment overrides. Search order (highest precedence first):
// 1. ./.rpsl-parser.yaml
// 2. ~/.rpsl-parser.yaml
// 3. $XDG_CONFIG_HOME/rpsl-parser/config.yaml (or ~/.config/rpsl-parser/config.yaml)
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFromFile loads configuration from a specific file plus environment overrides.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, eris.New("no config file given")
	}

	return load(path)
}

func load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "failed to decode config")
	}

	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}

	return cfg, nil
}

func findConfigFile() string {
	var searchPaths []string

	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(cwd, ".rpsl-parser.yaml"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".rpsl-parser.yaml"))
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "rpsl-parser", "config.yaml"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
