// Package config loads and saves the editor's settings. Values come from a
// YAML file in the user's config directory, then CATALOG_* environment
// variables, then command-line flags applied by main.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	appDir   = "catalog-editor"
	fileName = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. CATALOG_SOURCE.
	EnvPrefix = "CATALOG"

	DefaultSource = "https://catalogo-kladi.dev.rombo.microsipnube.com/"
)

// Config holds every setting of the application.
type Config struct {
	Source           string        `yaml:"source" envconfig:"SOURCE" validate:"required"`
	RecordsField     string        `yaml:"records_field" envconfig:"RECORDS_FIELD" validate:"required"`
	LogPath          string        `yaml:"log_path" envconfig:"LOG_PATH" validate:"required"`
	LogLevel         string        `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Snapshot         string        `yaml:"snapshot" envconfig:"SNAPSHOT" validate:"required"`
	PageSize         int           `yaml:"page_size" envconfig:"PAGE_SIZE" validate:"min=1,max=500"`
	Locale           string        `yaml:"locale" envconfig:"LOCALE" validate:"required,bcp47_language_tag"`
	EnableTxtOutput  bool          `yaml:"output_txt" envconfig:"OUTPUT_TXT"`
	EnableJSONOutput bool          `yaml:"output_json" envconfig:"OUTPUT_JSON"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" validate:"min=0"`
	Addr             string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	RateLimit        int           `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"min=0"`
	AllowedOrigins   []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`

	// GCSAvailable is detected at startup, never persisted.
	GCSAvailable bool `yaml:"-" ignored:"true"`

	path string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Source:           DefaultSource,
		RecordsField:     "data",
		LogPath:          "logs",
		LogLevel:         "info",
		Snapshot:         "file://.catalog-editor",
		PageSize:         8,
		Locale:           "es",
		EnableTxtOutput:  true,
		EnableJSONOutput: false,
		FetchTimeout:     30 * time.Second,
		Addr:             "127.0.0.1:8080",
		RateLimit:        120,
		AllowedOrigins:   []string{"*"},
	}
}

// DefaultPath is where Load looks for the config file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load reads the config file at DefaultPath, if any, and applies
// environment overrides.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path. A missing file is not an error:
// the defaults are used and Save will create it.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Path is the file the config was loaded from and will be saved to.
func (c *Config) Path() string { return c.path }

// Save writes the config back to its file, creating the directory.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = path
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(c.path), err)
	}
	if err := os.WriteFile(c.path, b, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}
