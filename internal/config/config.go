// Package config provides Viper-based configuration loading for the dice tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DataConfig holds record storage settings.
type DataConfig struct {
	// Dir is the base directory holding the dice records. A leading "~" is expanded.
	Dir string `mapstructure:"dir"`
}

// Path returns Dir with a leading "~" expanded to the user's home directory.
//
// Postcondition: Returns a non-empty path or a non-nil error.
func (d DataConfig) Path() (string, error) {
	if d.Dir == "" {
		return "", errors.New("data.dir must not be empty")
	}
	if d.Dir != "~" && !strings.HasPrefix(d.Dir, "~/") {
		return d.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(d.Dir, "~")), nil
}

// DiceConfig holds die defaults.
type DiceConfig struct {
	// DefaultFaces is the face count given to new dice when none is specified.
	DefaultFaces int `mapstructure:"default_faces"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Dice    DiceConfig    `mapstructure:"dice"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Data.Dir == "" {
		errs = append(errs, "data.dir must not be empty")
	}
	if c.Dice.DefaultFaces < 1 {
		errs = append(errs, fmt.Sprintf("dice.default_faces must be >= 1, got %d", c.Dice.DefaultFaces))
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// New returns a Viper instance with defaults and DICE_ environment overrides applied.
//
// If path is non-empty it is used as the configuration file; otherwise Read searches for
// "config.yaml".
func New(path string) *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Read loads the configuration file into v. A missing file is only an error when path
// named it explicitly.
//
// Without a path, "config.yaml" is searched in the user config directory
// ("<config dir>/dice") and then in the data directory as already resolved from defaults,
// environment and bound flags.
func Read(v *viper.Viper, path string) error {
	if path == "" {
		addSearchPaths(v)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func addSearchPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "dice"))
	}
	if dir, err := (DataConfig{Dir: v.GetString("data.dir")}).Path(); err == nil {
		v.AddConfigPath(dir)
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path is empty or names a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := New(path)
	if err := Read(v, path); err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "~/.dice")

	v.SetDefault("dice.default_faces", 6)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}
