// Package config provides configuration for the dexter server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. It is built once at startup and
// passed by pointer; nothing mutates it afterwards.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Storage
	DataDir string `yaml:"data_dir"`

	// Auth settings
	AuthSecret   string `yaml:"auth_secret"`
	AuthUsername string `yaml:"auth_username"`

	// Agent settings
	AgentMode       string        `yaml:"agent_mode"`
	AgentURL        string        `yaml:"agent_url"`
	AgentTimeout    time.Duration `yaml:"agent_timeout"`
	DefaultModel    string        `yaml:"default_model"`
	DefaultProvider string        `yaml:"default_provider"`
	MaxIterations   int           `yaml:"max_iterations"`

	// Execution limits. Zero means unbounded.
	MaxConcurrentRuns int    `yaml:"max_concurrent_runs"`
	MaxQueryLength    int    `yaml:"max_query_length"`
	PolicyFile        string `yaml:"policy_file"`

	// Detail view
	DetailEntryLimit int           `yaml:"detail_entry_limit"`
	EntryCharBudget  int           `yaml:"entry_char_budget"`
	WatchInterval    time.Duration `yaml:"watch_interval"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:          8080,
		DataDir:           ".dexter",
		AgentMode:         "",
		AgentURL:          "http://localhost:8000",
		AgentTimeout:      5 * time.Minute,
		DefaultModel:      "gpt-4.1",
		DefaultProvider:   "openai",
		MaxIterations:     10,
		MaxConcurrentRuns: 0,
		MaxQueryLength:    4000,
		DetailEntryLimit:  100,
		EntryCharBudget:   2000,
		WatchInterval:     time.Second,
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile is Load with an explicit file path, as used by the CLI --config
// flag. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), c); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.AuthSecret = getEnv("DEXTER_SECRET", c.AuthSecret)
	c.AuthUsername = getEnv("DEXTER_USERNAME", c.AuthUsername)
	c.AgentMode = getEnv("AGENT_MODE", c.AgentMode)
	c.AgentURL = getEnv("AGENT_URL", c.AgentURL)
	c.AgentTimeout = getEnvMillis("AGENT_TIMEOUT_MS", c.AgentTimeout)
	c.DefaultModel = getEnv("DEFAULT_MODEL", c.DefaultModel)
	c.DefaultProvider = getEnv("DEFAULT_PROVIDER", c.DefaultProvider)
	c.MaxIterations = getEnvInt("MAX_ITERATIONS", c.MaxIterations)
	c.MaxConcurrentRuns = getEnvInt("MAX_CONCURRENT_RUNS", c.MaxConcurrentRuns)
	c.MaxQueryLength = getEnvInt("MAX_QUERY_LENGTH", c.MaxQueryLength)
	c.PolicyFile = getEnv("POLICY_FILE", c.PolicyFile)
	c.EntryCharBudget = getEnvInt("ENTRY_CHAR_BUDGET", c.EntryCharBudget)
	c.WatchInterval = getEnvMillis("WATCH_INTERVAL_MS", c.WatchInterval)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.AuthSecret == "" {
		errs = append(errs, errors.New("DEXTER_SECRET is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.MaxConcurrentRuns < 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_RUNS must not be negative"))
	}
	if c.DetailEntryLimit <= 0 {
		errs = append(errs, errors.New("detail_entry_limit must be positive"))
	}
	return errors.Join(errs...)
}

// EventLogPath is the location of the run event log.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "runs.jsonl")
}

// ScratchpadDir is the directory holding one trace file per run.
func (c *Config) ScratchpadDir() string {
	return filepath.Join(c.DataDir, "scratchpad")
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default} references.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := envPattern.FindStringSubmatch(m)
		if val, ok := os.LookupEnv(groups[1]); ok && val != "" {
			return val
		}
		return groups[2]
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
