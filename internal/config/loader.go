package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".guildwatch"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Duration wraps time.Duration so it can be written in the YAML file
// using Go duration syntax ("500ms", "2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// EndpointConfig holds remote endpoint overrides from the config file.
// Zero values mean "keep the default"; use the CLI flags to force an
// explicit zero where one is meaningful.
type EndpointConfig struct {
	// IndexURL overrides the paginated index endpoint.
	IndexURL string `yaml:"indexURL,omitempty"`

	// DetailURL overrides the per-community detail endpoint.
	DetailURL string `yaml:"detailURL,omitempty"`

	// PageSize overrides the identifiers requested per page.
	PageSize int `yaml:"pageSize,omitempty"`

	// MaxRetries overrides the per-page retry ceiling.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// BackoffBase overrides the initial retry delay.
	BackoffBase Duration `yaml:"backoffBase,omitempty"`

	// RequestsPerSecond overrides the client-side request rate cap.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .guildwatch configuration file.
type File struct {
	// Endpoint holds remote endpoint overrides.
	Endpoint EndpointConfig `yaml:"endpoint,omitempty"`

	// Export overrides the default membership export path.
	Export string `yaml:"export,omitempty"`
}

// ApplyTo merges the file's non-zero values into cfg.
// CLI flags are applied after this, so flags win over the file.
func (f *File) ApplyTo(cfg *Config) {
	if f.Endpoint.IndexURL != "" {
		cfg.IndexURL = f.Endpoint.IndexURL
	}
	if f.Endpoint.DetailURL != "" {
		cfg.DetailURL = f.Endpoint.DetailURL
	}
	if f.Endpoint.PageSize != 0 {
		cfg.PageSize = f.Endpoint.PageSize
	}
	if f.Endpoint.MaxRetries != 0 {
		cfg.MaxRetries = f.Endpoint.MaxRetries
	}
	if f.Endpoint.BackoffBase != 0 {
		cfg.BackoffBase = time.Duration(f.Endpoint.BackoffBase)
	}
	if f.Endpoint.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = f.Endpoint.RequestsPerSecond
	}
	if f.Endpoint.UserAgent != "" {
		cfg.UserAgent = f.Endpoint.UserAgent
	}
	if f.Export != "" {
		cfg.ExportPath = f.Export
	}
}

// LoadConfigFile loads endpoint overrides from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound; callers
// decide whether that is fatal based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in order:
// the explicit path if given, .guildwatch in the current directory,
// then .guildwatch in the user's home directory.
// Returns the path if found, or empty string if not.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
