package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete routing-plane configuration
type Config struct {
	Topology      TopologyConfig
	Health        HealthConfig
	Consensus     ConsensusConfig
	Performance   PerformanceConfig
	Observability ObservabilityConfig
	Environment   string
}

// TopologyConfig holds topology store configuration
type TopologyConfig struct {
	// GatewayID is the node routing starts from
	GatewayID string

	// MaxFailureCount is the consecutive probe failures before a node fails
	MaxFailureCount int

	// SeedFile is an optional YAML topology seed loaded at startup
	SeedFile string
}

// HealthConfig holds health monitor configuration
type HealthConfig struct {
	Interval        time.Duration
	ProbeTimeout    time.Duration
	RecoveryBackoff time.Duration
}

// ConsensusConfig holds consensus round defaults
type ConsensusConfig struct {
	Threshold    float64
	MinProviders int
	Timeout      time.Duration
}

// PerformanceConfig holds performance history configuration
type PerformanceConfig struct {
	// Driver selects the sample store: "memory" or "sqlite"
	Driver string

	// Path is the sqlite database file when Driver is "sqlite"
	Path string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, loading a .env file
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Topology: TopologyConfig{
			GatewayID:       getEnv("GATEWAY_ID", "gateway"),
			MaxFailureCount: getEnvAsInt("MAX_FAILURE_COUNT", 3),
			SeedFile:        getEnv("TOPOLOGY_SEED_FILE", ""),
		},
		Health: HealthConfig{
			Interval:        getEnvAsDuration("HEALTH_INTERVAL", 30*time.Second),
			ProbeTimeout:    getEnvAsDuration("HEALTH_PROBE_TIMEOUT", 10*time.Second),
			RecoveryBackoff: getEnvAsDuration("HEALTH_RECOVERY_BACKOFF", 150*time.Second),
		},
		Consensus: ConsensusConfig{
			Threshold:    getEnvAsFloat("CONSENSUS_THRESHOLD", 0.7),
			MinProviders: getEnvAsInt("CONSENSUS_MIN_PROVIDERS", 2),
			Timeout:      getEnvAsDuration("CONSENSUS_TIMEOUT", 10*time.Second),
		},
		Performance: PerformanceConfig{
			Driver: getEnv("PERFSTORE_DRIVER", "memory"),
			Path:   getEnv("PERFSTORE_PATH", "performance.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all configuration fields are usable
func (c *Config) Validate() error {
	if c.Topology.GatewayID == "" {
		return fmt.Errorf("gateway ID is required")
	}
	if c.Topology.MaxFailureCount <= 0 {
		return fmt.Errorf("max failure count must be positive")
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("health interval must be positive")
	}
	if c.Consensus.Threshold < 0.5 || c.Consensus.Threshold > 1.0 {
		return fmt.Errorf("consensus threshold must be within [0.5, 1.0]")
	}
	if c.Consensus.MinProviders < 2 || c.Consensus.MinProviders > 5 {
		return fmt.Errorf("consensus min providers must be within [2, 5]")
	}
	if c.Performance.Driver != "memory" && c.Performance.Driver != "sqlite" {
		return fmt.Errorf("unknown perfstore driver %q", c.Performance.Driver)
	}
	if c.Performance.Driver == "sqlite" && c.Performance.Path == "" {
		return fmt.Errorf("perfstore path is required for the sqlite driver")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
