package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// Redis configuration (legacy record store and balance cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS configuration
	NATSURL string

	// Chain RPC configuration
	SolanaRPCURL   string
	BaseRPCURL     string
	EthereumRPCURL string

	// DefaultEVMChain is the chain assumed for bare EVM addresses.
	DefaultEVMChain string

	// Reconciler configuration
	ReconcileTick time.Duration
	ProviderRPS   float64

	// Balance cache configuration
	BalanceCacheTTL time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	// Redis configuration
	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RedisDB = redisDB
	}

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Chain RPC configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.BaseRPCURL = os.Getenv("BASE_RPC_URL")
	if cfg.BaseRPCURL == "" {
		errs = append(errs, fmt.Errorf("BASE_RPC_URL is required"))
	}

	// Ethereum mainnet is optional: the wallet's default flows run on
	// base and solana.
	cfg.EthereumRPCURL = os.Getenv("ETHEREUM_RPC_URL")

	cfg.DefaultEVMChain = getEnvOrDefault("DEFAULT_EVM_CHAIN", "base")

	// Reconciler configuration
	tick, err := parseDuration("RECONCILE_TICK", "1s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ReconcileTick = tick
	}

	rps, err := parseFloat("PROVIDER_RPS", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ProviderRPS = rps
	}

	// Balance cache configuration
	ttl, err := parseDuration("BALANCE_CACHE_TTL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BalanceCacheTTL = ttl
	}

	if cfg.ReconcileTick < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("RECONCILE_TICK (%v) must be at least 100ms", cfg.ReconcileTick))
	}
	if cfg.ProviderRPS <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_RPS must be positive, got %v", cfg.ProviderRPS))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// EVMRPCURLs maps chain names to configured EVM RPC endpoints, omitting
// chains without an endpoint.
func (c *Config) EVMRPCURLs() map[string]string {
	urls := make(map[string]string)
	if c.BaseRPCURL != "" {
		urls["base"] = c.BaseRPCURL
	}
	if c.EthereumRPCURL != "" {
		urls["ethereum"] = c.EthereumRPCURL
	}
	return urls
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.BaseRPCURL == "" {
		errs = append(errs, fmt.Errorf("BaseRPCURL is required"))
	}

	if c.DefaultEVMChain == "" {
		errs = append(errs, fmt.Errorf("DefaultEVMChain is required"))
	}

	if c.ReconcileTick < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("ReconcileTick must be at least 100ms"))
	}

	if c.ProviderRPS <= 0 {
		errs = append(errs, fmt.Errorf("ProviderRPS must be positive"))
	}

	if c.BalanceCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("BalanceCacheTTL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
