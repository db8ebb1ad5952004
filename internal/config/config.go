package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "fireverse"

type Config struct {
	Paths    PathsConfig    `yaml:"paths" validate:"required"`
	Storage  StorageConfig  `yaml:"storage" validate:"required"`
	Rotation RotationConfig `yaml:"rotation" validate:"required"`
	Limits   Limits         `yaml:"limits" validate:"required"`
	Logging  LoggingConfig  `yaml:"logging"`
	// Director is merged onto the director defaults; unknown keys are ignored.
	Director map[string]any `yaml:"director,omitempty"`
}

type PathsConfig struct {
	StateDir   string `yaml:"state_dir" env:"FIREVERSE_STATE_DIR" validate:"required"`
	OutputDir  string `yaml:"output_dir" env:"FIREVERSE_OUTPUT_DIR" validate:"required"`
	WorldFile  string `yaml:"world_file,omitempty" env:"FIREVERSE_WORLD_FILE"`
	PromptsDir string `yaml:"prompts_dir,omitempty" env:"FIREVERSE_PROMPTS_DIR"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend" env:"FIREVERSE_STORAGE_BACKEND" validate:"required,oneof=json sqlite"`
	SQLitePath string `yaml:"sqlite_path,omitempty" env:"FIREVERSE_SQLITE_PATH" validate:"required_if=Backend sqlite"`
}

type RotationConfig struct {
	RecentWindow int `yaml:"recent_window" env:"FIREVERSE_RECENT_WINDOW" validate:"required,min=1,max=50"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"FIREVERSE_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns a configuration rooted in the XDG data directory.
func Default() Config {
	data := dataDir()
	return Config{
		Paths: PathsConfig{
			StateDir:  filepath.Join(data, "state"),
			OutputDir: filepath.Join(data, "output"),
		},
		Storage: StorageConfig{
			Backend: "json",
		},
		Rotation: RotationConfig{
			RecentWindow: 3,
		},
		Limits:  DefaultLimits(),
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the configuration file, applies FIREVERSE_* environment
// overrides and validates the result. A missing file is not an error; the
// defaults are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = getConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	// 1. Explicit config path via environment variable
	if path := os.Getenv("FIREVERSE_CONFIG"); path != "" {
		return path
	}

	// 2. XDG_CONFIG_HOME (XDG Base Directory Specification)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName, "config.yaml")
	}

	// 3. Default to ~/.config/fireverse/config.yaml
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName, "config.yaml")
}

func dataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// expandTilde expands a tilde (~) at the beginning of a path to the user's home directory
func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c *Config) validate() error {
	c.Paths.StateDir = expandTilde(c.Paths.StateDir)
	c.Paths.OutputDir = expandTilde(c.Paths.OutputDir)
	c.Paths.WorldFile = expandTilde(c.Paths.WorldFile)
	c.Paths.PromptsDir = expandTilde(c.Paths.PromptsDir)

	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.Paths.StateDir, "fireverse.db")
	}
	c.Storage.SQLitePath = expandTilde(c.Storage.SQLitePath)

	if c.Limits.MaxPool == 0 {
		c.Limits = DefaultLimits()
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Limits.MinPool > c.Limits.MaxPool {
		return fmt.Errorf("config validation failed: limits.min_pool %d exceeds limits.max_pool %d", c.Limits.MinPool, c.Limits.MaxPool)
	}

	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func Save(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// DefaultPath is the location Load reads when no path is given.
func DefaultPath() string {
	return getConfigPath()
}
