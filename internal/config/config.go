package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format   string `mapstructure:"format"`
	Quiet    bool   `mapstructure:"quiet"`
	Verbose  bool   `mapstructure:"verbose"`
	Operator string `mapstructure:"operator"`
	OutDir   string `mapstructure:"out_dir"`

	Target   TargetConfig          `mapstructure:"target"`
	UIAuto   UIAutoConfig          `mapstructure:"uiauto"`
	Modes    map[string]ModeConfig `mapstructure:"modes"`
	Cache    CacheConfig           `mapstructure:"cache"`
	Sampler  SamplerConfig         `mapstructure:"sampler"`
	Player   PlayerConfig          `mapstructure:"player"`
	Defaults DefaultsConfig        `mapstructure:"defaults"`
}

// TargetConfig describes the application under measurement
type TargetConfig struct {
	ExePath       string `mapstructure:"exe_path"`
	TitleHint     string `mapstructure:"title_hint"`
	AttachTimeout string `mapstructure:"attach_timeout"`
}

// UIAutoConfig configures the external UI automation helper
type UIAutoConfig struct {
	Helper string `mapstructure:"helper"`
}

// ModeConfig describes one storage backend mode (the experiment's
// independent variable)
type ModeConfig struct {
	ProjectPath string `mapstructure:"project_path"`
	Hint        string `mapstructure:"hint"`
}

// CacheConfig holds the external cache purge invocation
type CacheConfig struct {
	ColdCommand string `mapstructure:"cold_command"`
	Timeout     string `mapstructure:"timeout"`
}

// SamplerConfig configures the telemetry sampler
type SamplerConfig struct {
	Interval       string   `mapstructure:"interval"`
	DataExtensions []string `mapstructure:"data_extensions"`
}

// PlayerConfig configures replay behavior
type PlayerConfig struct {
	Failsafe bool `mapstructure:"failsafe"`
}

// DefaultsConfig holds default values for workflows
type DefaultsConfig struct {
	ScrubCount   int    `mapstructure:"scrub_count"`
	ScrubDelayMS int    `mapstructure:"scrub_delay_ms"`
	ScrubKey     string `mapstructure:"scrub_key"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "ndjson",
		OutDir: "runs",
		Target: TargetConfig{
			AttachTimeout: "180s",
		},
		Cache: CacheConfig{
			Timeout: "120s",
		},
		Sampler: SamplerConfig{
			Interval:       "1s",
			DataExtensions: []string{".zgy"},
		},
		Player: PlayerConfig{
			Failsafe: true,
		},
		Defaults: DefaultsConfig{
			ScrubCount:   100,
			ScrubDelayMS: 40,
			ScrubKey:     "pgdn",
		},
	}
}

// HelperCommand splits the configured helper invocation into argv form
func (c *Config) HelperCommand() []string {
	return strings.Fields(c.UIAuto.Helper)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("fbench")
	v.SetConfigType("yaml")

	// Config paths in order of precedence, lowest first
	v.AddConfigPath("/etc/fbench/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "fbench"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("FBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "FBENCH_FORMAT")
	v.BindEnv("quiet", "FBENCH_QUIET")
	v.BindEnv("verbose", "FBENCH_VERBOSE")
	v.BindEnv("operator", "FBENCH_OPERATOR")
	v.BindEnv("out_dir", "FBENCH_OUT_DIR")
	v.BindEnv("target.exe_path", "FBENCH_TARGET_EXE")

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("out_dir", cfg.OutDir)
	v.SetDefault("target.attach_timeout", cfg.Target.AttachTimeout)
	v.SetDefault("cache.timeout", cfg.Cache.Timeout)
	v.SetDefault("sampler.interval", cfg.Sampler.Interval)
	v.SetDefault("sampler.data_extensions", cfg.Sampler.DataExtensions)
	v.SetDefault("player.failsafe", cfg.Player.Failsafe)
	v.SetDefault("defaults.scrub_count", cfg.Defaults.ScrubCount)
	v.SetDefault("defaults.scrub_delay_ms", cfg.Defaults.ScrubDelayMS)
	v.SetDefault("defaults.scrub_key", cfg.Defaults.ScrubKey)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that was loaded
func ConfigFile() string {
	v := viper.New()

	v.SetConfigName("fbench")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	// Try .fbench
	v.SetConfigName(".fbench")
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	return ""
}
