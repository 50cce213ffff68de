package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/rules"
)

// Config holds all scanner settings
type Config struct {
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Exclude  []string       `yaml:"exclude" mapstructure:"exclude"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Timeouts TimeoutConfig  `yaml:"timeouts" mapstructure:"timeouts"`
	Workers  int            `yaml:"workers" mapstructure:"workers"`
	Selector SelectorConfig `yaml:"selector" mapstructure:"selector"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

type RulesConfig struct {
	Enabled     []string          `yaml:"enabled" mapstructure:"enabled"`
	Disabled    []string          `yaml:"disabled" mapstructure:"disabled"`
	MinSeverity string            `yaml:"min_severity" mapstructure:"min_severity"`
	Severities  map[string]string `yaml:"severities" mapstructure:"severities"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Directory string        `yaml:"directory" mapstructure:"directory"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type TimeoutConfig struct {
	PerFile time.Duration `yaml:"per_file" mapstructure:"per_file"`
	Total   time.Duration `yaml:"total" mapstructure:"total"`
}

type SelectorConfig struct {
	FallbackToAll bool `yaml:"fallback_to_all" mapstructure:"fallback_to_all"`
}

type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Rules: RulesConfig{
			MinSeverity: "low",
		},
		Exclude: []string{
			"venv", ".venv", "env", "node_modules",
			"__pycache__", ".git", ".tox", "build", "dist",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: filepath.Join(homeDir, ".pysec", "cache"),
			TTL:       7 * 24 * time.Hour,
		},
		Timeouts: TimeoutConfig{
			PerFile: 10 * time.Second,
			Total:   5 * time.Minute,
		},
		Workers: runtime.NumCPU(),
		Selector: SelectorConfig{
			FallbackToAll: true,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load reads configuration from the given file, or from the standard
// search locations when path is empty. Environment variables with the
// PYSEC_ prefix override file values; .env files are loaded first.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("rules", cfg.Rules)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("timeouts", cfg.Timeouts)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("selector", cfg.Selector)
	v.SetDefault("output", cfg.Output)

	v.SetEnvPrefix("PYSEC")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".pysec")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".pysec"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// an explicit path that does not exist is an error too
			return nil, errors.ConfigErrorf("failed to read config: %v", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigErrorf("failed to unmarshal config: %v", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".pysec", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies direct environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("PYSEC_CACHE_DIR"); dir != "" {
		cfg.Cache.Directory = dir
	}
	if enabled := os.Getenv("PYSEC_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if workers := os.Getenv("PYSEC_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if sev := os.Getenv("PYSEC_MIN_SEVERITY"); sev != "" {
		cfg.Rules.MinSeverity = sev
	}
	if format := os.Getenv("PYSEC_FORMAT"); format != "" {
		cfg.Output.Format = format
	}
}

// RuleRunConfig converts the string-typed rule settings into the
// registry's run config, validating severity names.
func (c *Config) RuleRunConfig() (rules.RunConfig, error) {
	run := rules.RunConfig{
		Enabled:  c.Rules.Enabled,
		Disabled: c.Rules.Disabled,
	}

	if c.Rules.MinSeverity != "" {
		min, err := models.ParseSeverity(c.Rules.MinSeverity)
		if err != nil {
			return run, errors.ConfigErrorf("invalid min_severity: %q", c.Rules.MinSeverity)
		}
		run.MinSeverity = min
	}

	if len(c.Rules.Severities) > 0 {
		run.SeverityOverrides = make(map[string]models.Severity, len(c.Rules.Severities))
		for id, name := range c.Rules.Severities {
			sev, err := models.ParseSeverity(name)
			if err != nil {
				return run, errors.ConfigErrorf("invalid severity %q for rule %s", name, id)
			}
			run.SeverityOverrides[id] = sev
		}
	}
	return run, nil
}

// CacheDirFor resolves the cache directory, expanding a leading ~
func (c *Config) CacheDirFor() string {
	dir := c.Cache.Directory
	if len(dir) > 1 && dir[0] == '~' {
		if homeDir, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(homeDir, dir[1:])
		}
	}
	return dir
}

// Validate performs cross-field sanity checks
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.ConfigError("workers must not be negative")
	}
	if c.Timeouts.PerFile < 0 || c.Timeouts.Total < 0 {
		return errors.ConfigError("timeouts must not be negative")
	}
	if _, err := c.RuleRunConfig(); err != nil {
		return err
	}
	return nil
}
