// Package config loads settings from audits.yaml, the environment and .env.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

const (
	// ConfigName is the config file name without extension.
	ConfigName = "audits"
	// ConfigDirName is the directory name under XDG_CONFIG_HOME.
	ConfigDirName = "audits"
	// EnvPrefix prefixes environment overrides, e.g. AUDITS_LMSTUDIO_MODEL.
	EnvPrefix = "AUDITS"
)

// Config is the full application configuration.
type Config struct {
	LMStudio LMStudioConfig `yaml:"lmstudio" mapstructure:"lmstudio"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Merge    MergeConfig    `yaml:"merge" mapstructure:"merge"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LMStudioConfig points at the local model server.
type LMStudioConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ClassifyConfig tunes the classification run.
type ClassifyConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`
	AbstractMaxChars int `yaml:"abstract_max_chars" mapstructure:"abstract_max_chars"`
	ProgressEvery    int `yaml:"progress_every" mapstructure:"progress_every"`
}

// MergeConfig sets merge defaults.
type MergeConfig struct {
	Provenance string `yaml:"provenance" mapstructure:"provenance"`
	Strict     bool   `yaml:"strict" mapstructure:"strict"`
}

// FilterConfig sets the keyword classifier's rule file. Empty means built-in.
type FilterConfig struct {
	Rules string `yaml:"rules" mapstructure:"rules"`
}

// LedgerConfig locates the progress database.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Dir returns the user config directory for audits.
// Respects XDG_CONFIG_HOME and defaults to ~/.config/audits.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName)
}

// LoadDotenv loads variables from the given .env files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return eris.Wrapf(err, "config: load %s", p)
		}
	}
	return nil
}

// Load reads configuration. An explicit file must exist; otherwise
// audits.yaml is looked up in the working directory and then in Dir().
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("lmstudio.base_url", "http://localhost:1234")
	v.SetDefault("lmstudio.model", "google/gemma-3n-e4b")
	v.SetDefault("lmstudio.timeout_secs", 120)
	v.SetDefault("lmstudio.rate_per_sec", 0.0)
	v.SetDefault("classify.workers", 8)
	v.SetDefault("classify.abstract_max_chars", 2000)
	v.SetDefault("classify.progress_every", 100)
	v.SetDefault("merge.provenance", "2021 Review")
	v.SetDefault("merge.strict", false)
	v.SetDefault("filter.rules", "")
	v.SetDefault("ledger.path", filepath.Join(".audits", "progress.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if c.Classify.Workers < 1 {
		return eris.Errorf("config: classify.workers must be at least 1, got %d", c.Classify.Workers)
	}
	if c.Classify.AbstractMaxChars < 0 {
		return eris.Errorf("config: classify.abstract_max_chars must not be negative")
	}
	if c.LMStudio.TimeoutSecs <= 0 {
		return eris.Errorf("config: lmstudio.timeout_secs must be positive")
	}
	if c.LMStudio.RatePerSec < 0 {
		return eris.Errorf("config: lmstudio.rate_per_sec must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return eris.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
