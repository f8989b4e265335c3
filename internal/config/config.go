package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config file names looked up in the application directory, in order.
const (
	YAMLFile = ".appinstall.yaml"
	TOMLFile = ".appinstall.toml"
)

type Config struct {
	Paths        PathsConfig   `yaml:"paths" toml:"paths"`
	Host         HostConfig    `yaml:"host" toml:"host"`
	Capabilities []string      `yaml:"capabilities,omitempty" toml:"capabilities"`
	Probe        ProbeConfig   `yaml:"probe" toml:"probe"`
	Prompt       PromptConfig  `yaml:"prompt" toml:"prompt"`
	App          AppConfig     `yaml:"app" toml:"app"`
	Logging      LoggingConfig `yaml:"logging" toml:"logging"`
	Journal      JournalConfig `yaml:"journal" toml:"journal"`
}

// PathsConfig locates the environment file and its template, relative to
// the application directory unless absolute.
type PathsConfig struct {
	Env      string `yaml:"env" toml:"env"`
	Template string `yaml:"template" toml:"template"`
}

// HostConfig describes how to reach the application's console.
type HostConfig struct {
	// Command is the console entry point, e.g. ["php", "artisan"].
	Command []string `yaml:"command" toml:"command"`
	// Commands overrides the argv used for an operation, keyed by operation name.
	Commands map[string][]string `yaml:"commands,omitempty" toml:"commands"`
}

type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

type PromptConfig struct {
	// Style is "line" or "tui".
	Style       string `yaml:"style" toml:"style"`
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts"`
}

type AppConfig struct {
	// DefaultName is offered for a blank APP_NAME.
	DefaultName string `yaml:"default_name" toml:"default_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file,omitempty" toml:"file"`
}

// JournalConfig locates the run history database. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" toml:"path"`
}

func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Env:      ".env",
			Template: ".env.example",
		},
		Host: HostConfig{
			Command: []string{"php", "artisan"},
		},
		Probe: ProbeConfig{
			Timeout: 5 * time.Second,
		},
		Prompt: PromptConfig{
			Style: "line",
		},
		App: AppConfig{
			DefaultName: "Laravel",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Path: filepath.Join(".appinstall", "history.db"),
		},
	}
}

// Load reads the config file from dir, trying YAML then TOML. A missing file
// yields defaults. The second return value is the file used, if any.
func Load(dir string) (*Config, string, error) {
	for _, name := range []string{YAMLFile, TOMLFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", err
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return DefaultConfig(), "", nil
}

// LoadFromPath reads a config file, picking the decoder by extension, and
// merges it over the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.Env) == "" {
		return errors.New("paths.env is required")
	}
	if strings.TrimSpace(c.Paths.Template) == "" {
		return errors.New("paths.template is required")
	}
	if len(c.Host.Command) == 0 {
		return errors.New("host.command is required")
	}
	switch c.Prompt.Style {
	case "line", "tui":
	default:
		return fmt.Errorf("prompt.style must be line or tui, got %q", c.Prompt.Style)
	}
	if c.Prompt.MaxAttempts < 0 {
		return errors.New("prompt.max_attempts must not be negative")
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("probe.timeout must be positive")
	}
	return nil
}

// EnvPath returns the environment file path for an application directory.
func (c *Config) EnvPath(dir string) string {
	return resolve(dir, c.Paths.Env)
}

// TemplatePath returns the template path for an application directory.
func (c *Config) TemplatePath(dir string) string {
	return resolve(dir, c.Paths.Template)
}

// JournalPath returns the history database path, or "" when disabled.
func (c *Config) JournalPath(dir string) string {
	if c.Journal.Path == "" {
		return ""
	}
	return resolve(dir, c.Journal.Path)
}

// LogFile returns the log file path, or "" when file logging is off.
func (c *Config) LogFile(dir string) string {
	if c.Logging.File == "" {
		return ""
	}
	return resolve(dir, c.Logging.File)
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Save writes the config as YAML into dir.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, YAMLFile), data, 0644)
}
