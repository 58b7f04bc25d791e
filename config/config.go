// Package config loads the optional petalcalc.yaml settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/petalcalc/expr"
)

const (
	projectConfigName = "petalcalc.yaml"
	homeConfigName    = "config.yaml"
)

// DefaultBanner is printed when an interactive session starts.
const DefaultBanner = "Simple Calculator. Type 'exit' to quit."

// Config is the settings file shape. Every field has a usable default.
type Config struct {
	Shell     ShellConfig     `yaml:"shell"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ShellConfig controls the interactive loop.
type ShellConfig struct {
	Prompt string `yaml:"prompt"`
	Banner string `yaml:"banner"`
}

// LimitsConfig bounds resource use per evaluation.
type LimitsConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig configures OpenTelemetry output.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
	Summary      bool   `yaml:"summary"` // log evaluation counts when a session ends
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Shell: ShellConfig{
			Prompt: "> ",
			Banner: DefaultBanner,
		},
		Limits: LimitsConfig{
			MaxDepth: expr.DefaultMaxDepth,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "petalcalc",
		},
	}
}

// Validate checks field values.
func (c Config) Validate() error {
	var errs []error
	if c.Limits.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_depth must be positive, got %d", c.Limits.MaxDepth))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", name)
}

// Load resolves the config file and returns the merged configuration.
// With no explicit path and no file on disk, the defaults are returned.
// The second result is the file that was read, empty if none.
func Load(explicitPath string) (Config, string, error) {
	path, found, err := DiscoverPath(explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	if !found {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DiscoverPath resolves config location with first-match semantics.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// No home directory is not fatal; only the project file is checked.
		homeDir = ""
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		if homeDir != "" {
			candidates = append(candidates, filepath.Join(homeDir, ".petalcalc", homeConfigName))
		}
	}

	explicit := strings.TrimSpace(explicitPath) != ""
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if err == nil && explicit {
			return "", false, fmt.Errorf("config path %q is a directory", candidate)
		}
		if errors.Is(err, os.ErrNotExist) {
			// If explicit path is set, not found is an error.
			if explicit {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}
