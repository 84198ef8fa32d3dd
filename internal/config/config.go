package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "qdeutsch.yaml"

// Backend names accepted by Config.Backend.
const (
	BackendSimulator = "simulator"
	BackendIBM       = "ibm"
)

var ValidBackends = []string{BackendSimulator, BackendIBM}

// Config holds all qdeutsch configuration.
type Config struct {
	// Execution
	Backend     string `yaml:"backend"`
	Shots       int    `yaml:"shots"`
	Seed        uint64 `yaml:"seed"` // 0 draws a fresh seed per run
	Concurrency int    `yaml:"concurrency"`

	// Output
	OutDir string `yaml:"out_dir"`

	IBM     IBMConfig     `yaml:"ibm"`
	Logging LoggingConfig `yaml:"logging"`
}

// IBMConfig configures the remote IBM Quantum backend.
type IBMConfig struct {
	Token        string `yaml:"token"`
	URL          string `yaml:"url"`
	Device       string `yaml:"device"` // empty picks the least busy device
	PollInterval string `yaml:"poll_interval"`
	JobTimeout   string `yaml:"job_timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // used by the browser, which owns the terminal
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendSimulator,
		Shots:       1024,
		Concurrency: 1,
		OutDir:      "out",

		IBM: IBMConfig{
			URL:          "https://api.quantum-computing.ibm.com",
			PollInterval: "2s",
			JobTimeout:   "10m",
		},

		Logging: LoggingConfig{
			Level: "info",
			File:  "qdeutsch.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if backend := os.Getenv("QDEUTSCH_BACKEND"); backend != "" {
		c.Backend = backend
	}
	if shots := os.Getenv("QDEUTSCH_SHOTS"); shots != "" {
		n, err := strconv.Atoi(shots)
		if err != nil {
			return fmt.Errorf("QDEUTSCH_SHOTS: %w", err)
		}
		c.Shots = n
	}
	if out := os.Getenv("QDEUTSCH_OUT"); out != "" {
		c.OutDir = out
	}

	if token := os.Getenv("QDEUTSCH_IBM_TOKEN"); token != "" {
		c.IBM.Token = token
	}
	if url := os.Getenv("QDEUTSCH_IBM_URL"); url != "" {
		c.IBM.URL = url
	}
	return nil
}

// GetPollInterval returns the IBM job poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.IBM.PollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetJobTimeout returns how long to wait for a remote job.
func (c *Config) GetJobTimeout() time.Duration {
	d, err := time.ParseDuration(c.IBM.JobTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidBackends, c.Backend) {
		return fmt.Errorf("invalid backend: %q (valid: %v)", c.Backend, ValidBackends)
	}
	if c.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", c.Shots)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Backend == BackendIBM && c.IBM.Token == "" {
		return fmt.Errorf("IBM backend selected but no token configured (set QDEUTSCH_IBM_TOKEN)")
	}
	for name, d := range map[string]string{"poll_interval": c.IBM.PollInterval, "job_timeout": c.IBM.JobTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("ibm.%s: %w", name, err)
		}
	}
	return nil
}
