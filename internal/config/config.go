// Package config loads the factsheet YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the factsheet configuration.
type Config struct {
	DataDir     string            `yaml:"data_dir"`
	LogLevel    string            `yaml:"log_level"` // debug, info, warn, error
	HTTP        HTTPConfig        `yaml:"http"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Journal     JournalConfig     `yaml:"journal"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Export      ExportConfig      `yaml:"export"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr                 string `yaml:"addr"`
	ReadHeaderTimeoutSec int    `yaml:"read_header_timeout_sec"`
	ShutdownSec          int    `yaml:"shutdown_timeout_sec"`
}

// PersistenceConfig holds snapshot storage settings.
type PersistenceConfig struct {
	SnapshotFile string `yaml:"snapshot_file"` // relative to data_dir
	Git          bool   `yaml:"git"`
	AuthorName   string `yaml:"author_name"`
	AuthorEmail  string `yaml:"author_email"`
}

// JournalConfig holds mutation journal settings.
type JournalConfig struct {
	File       string `yaml:"file"` // relative to data_dir
	MaxEntries int    `yaml:"max_entries"`
}

// ExtractionConfig selects and tunes the extractor.
type ExtractionConfig struct {
	Kind          string `yaml:"kind"` // sample, remote
	Endpoint      string `yaml:"endpoint"`
	DelayMS       int    `yaml:"delay_ms"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	Burst         int    `yaml:"burst"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	BaseName string `yaml:"base_name"`
}

// Extractor kinds.
const (
	KindSample = "sample"
	KindRemote = "remote"
)

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads configuration from a YAML file. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substituting ${VAR} and ${VAR:-default} first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "localhost:8080"
	}
	if c.HTTP.ReadHeaderTimeoutSec <= 0 {
		c.HTTP.ReadHeaderTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Persistence.SnapshotFile == "" {
		c.Persistence.SnapshotFile = "snapshot.json"
	}
	if c.Persistence.AuthorName == "" {
		c.Persistence.AuthorName = "factsheet"
	}
	if c.Persistence.AuthorEmail == "" {
		c.Persistence.AuthorEmail = "factsheet@localhost"
	}
	if c.Journal.File == "" {
		c.Journal.File = "journal.jsonl"
	}
	if c.Journal.MaxEntries <= 0 {
		c.Journal.MaxEntries = 1000
	}
	if c.Extraction.Kind == "" {
		c.Extraction.Kind = KindSample
	}
	if c.Extraction.DelayMS < 0 {
		c.Extraction.DelayMS = 0
	} else if c.Extraction.DelayMS == 0 && c.Extraction.Kind == KindSample {
		c.Extraction.DelayMS = 1500
	}
	if c.Extraction.RatePerMinute <= 0 {
		c.Extraction.RatePerMinute = 30
	}
	if c.Extraction.Burst <= 0 {
		c.Extraction.Burst = 5
	}
	if c.Extraction.TimeoutSec <= 0 {
		c.Extraction.TimeoutSec = 60
	}
	if c.Export.BaseName == "" {
		c.Export.BaseName = "extracted_data"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	switch c.Extraction.Kind {
	case KindSample:
	case KindRemote:
		if c.Extraction.Endpoint == "" {
			return errors.New("extraction.endpoint is required for the remote extractor")
		}
		u, err := url.Parse(c.Extraction.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("extraction.endpoint must be an http(s) URL, got %q", c.Extraction.Endpoint)
		}
	default:
		return fmt.Errorf("extraction.kind must be %q or %q, got %q", KindSample, KindRemote, c.Extraction.Kind)
	}
	if strings.ContainsAny(c.Export.BaseName, `/\`) {
		return fmt.Errorf("export.base_name must be a file name, got %q", c.Export.BaseName)
	}
	return nil
}

// SnapshotPath returns the snapshot file path resolved against DataDir.
func (c *Config) SnapshotPath() string {
	return c.resolve(c.Persistence.SnapshotFile)
}

// JournalPath returns the journal file path resolved against DataDir.
func (c *Config) JournalPath() string {
	return c.resolve(c.Journal.File)
}

// ExtractionDelay is the sample extractor delay.
func (c *Config) ExtractionDelay() time.Duration {
	return time.Duration(c.Extraction.DelayMS) * time.Millisecond
}

// ExtractionTimeout bounds one extraction.
func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Extraction.TimeoutSec) * time.Second
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
