package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"goedm/internal/errors"
)

// Config represents the complete application configuration.
//
// Precedence (highest to lowest): environment variables, the YAML file named
// by EDM_CONFIG_FILE, built-in defaults.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig holds worker sizing and the default arguments of every
// exported operation.
type EngineConfig struct {
	Workers int     `yaml:"workers" json:"workers"` // 0 means one worker per GOMAXPROCS
	EMax    int     `yaml:"e_max" json:"E_max"`
	E       int     `yaml:"e" json:"E"`
	Tau     int     `yaml:"tau" json:"tau"`
	Tp      int     `yaml:"tp" json:"Tp"`
	XMapTp  int     `yaml:"xmap_tp" json:"xmap_Tp"`
	SMapE   int     `yaml:"smap_e" json:"smap_E"`
	Theta   float64 `yaml:"theta" json:"theta"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// MetricsConfig toggles the Prometheus registry
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig mirrors LOG_LEVEL / LOG_FORMAT
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers: 0,
			EMax:    20,
			E:       1,
			Tau:     1,
			Tp:      1,
			XMapTp:  0,
			SMapE:   2,
			Theta:   1.0,
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Metrics: MetricsConfig{Enabled: true},
		Log:     LogConfig{Level: "INFO", Format: "json"},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("EDM_CONFIG_FILE"); path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	loadEngineConfig(&config.Engine)
	loadServerConfig(&config.Server)
	config.Metrics.Enabled = getEnvBoolOrDefault("METRICS_ENABLED", config.Metrics.Enabled)
	config.Log.Level = getEnvOrDefault("LOG_LEVEL", config.Log.Level)
	config.Log.Format = getEnvOrDefault("LOG_FORMAT", config.Log.Format)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// LoadFile reads a YAML file on top of the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	config := Default()
	if err := config.mergeFile(path); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("parsing %s: %v", path, err))
	}
	return nil
}

// ResolvedWorkers returns the effective worker count
func (e EngineConfig) ResolvedWorkers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func loadEngineConfig(e *EngineConfig) {
	e.Workers = getEnvIntOrDefault("EDM_WORKERS", e.Workers)
	e.EMax = getEnvIntOrDefault("EDM_E_MAX", e.EMax)
	e.E = getEnvIntOrDefault("EDM_E", e.E)
	e.Tau = getEnvIntOrDefault("EDM_TAU", e.Tau)
	e.Tp = getEnvIntOrDefault("EDM_TP", e.Tp)
	e.XMapTp = getEnvIntOrDefault("EDM_XMAP_TP", e.XMapTp)
	e.SMapE = getEnvIntOrDefault("EDM_SMAP_E", e.SMapE)
	e.Theta = getEnvFloatOrDefault("EDM_THETA", e.Theta)
}

func loadServerConfig(s *ServerConfig) {
	s.Port = getEnvOrDefault("PORT", s.Port)
	s.ReadTimeout = getEnvDurationOrDefault("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.ShutdownTimeout = getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = int64(getEnvIntOrDefault("MAX_BODY_BYTES", int(s.MaxBodyBytes)))
}

func validateConfig(config *Config) error {
	e := config.Engine
	if e.Workers < 0 {
		return errors.ConfigInvalid("EDM_WORKERS must not be negative")
	}
	if e.EMax <= 0 || e.E <= 0 || e.SMapE <= 0 {
		return errors.ConfigInvalid("embedding dimensions must be greater than zero")
	}
	if e.Tau <= 0 {
		return errors.ConfigInvalid("EDM_TAU must be greater than zero")
	}
	if e.Tp < 0 || e.XMapTp < 0 {
		return errors.ConfigInvalid("EDM_TP must be greater or equal to zero")
	}
	if e.Theta < 0 {
		return errors.ConfigInvalid("EDM_THETA must be greater or equal to zero")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
