package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("BASE_RPC_URL", "https://mainnet.base.org")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, "https://mainnet.base.org", cfg.BaseRPCURL)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "base", cfg.DefaultEVMChain)
	assert.Equal(t, time.Second, cfg.ReconcileTick)
	assert.Equal(t, 5.0, cfg.ProviderRPS)
	assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("BASE_RPC_URL", "https://mainnet.base.org")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_MissingRPCURLs(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
	assert.Contains(t, err.Error(), "BASE_RPC_URL is required")
}

func TestLoad_InvalidReconcileTick(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("BASE_RPC_URL", "https://mainnet.base.org")
	os.Setenv("RECONCILE_TICK", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_TickTooShort(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("BASE_RPC_URL", "https://mainnet.base.org")
	os.Setenv("RECONCILE_TICK", "10ms")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "at least 100ms")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("BASE_RPC_URL", "https://mainnet.base.org")
	os.Setenv("ETHEREUM_RPC_URL", "https://eth.llamarpc.com")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("REDIS_DB", "2")
	os.Setenv("DEFAULT_EVM_CHAIN", "ethereum")
	os.Setenv("RECONCILE_TICK", "500ms")
	os.Setenv("PROVIDER_RPS", "2.5")
	os.Setenv("BALANCE_CACHE_TTL", "1m")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "ethereum", cfg.DefaultEVMChain)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconcileTick)
	assert.Equal(t, 2.5, cfg.ProviderRPS)
	assert.Equal(t, time.Minute, cfg.BalanceCacheTTL)
}

func TestEVMRPCURLs(t *testing.T) {
	cfg := &Config{BaseRPCURL: "https://mainnet.base.org"}
	urls := cfg.EVMRPCURLs()
	assert.Equal(t, map[string]string{"base": "https://mainnet.base.org"}, urls)

	cfg.EthereumRPCURL = "https://eth.llamarpc.com"
	urls = cfg.EVMRPCURLs()
	assert.Len(t, urls, 2)
	assert.Equal(t, "https://eth.llamarpc.com", urls["ethereum"])
}

func TestValidate(t *testing.T) {
	valid := &Config{
		DatabaseURL:     "postgres://localhost/test",
		SolanaRPCURL:    "https://api.mainnet-beta.solana.com",
		BaseRPCURL:      "https://mainnet.base.org",
		DefaultEVMChain: "base",
		ReconcileTick:   time.Second,
		ProviderRPS:     5,
		BalanceCacheTTL: 30 * time.Second,
	}
	require.NoError(t, valid.Validate())

	invalid := *valid
	invalid.ProviderRPS = 0
	require.Error(t, invalid.Validate())

	invalid = *valid
	invalid.BalanceCacheTTL = 0
	require.Error(t, invalid.Validate())
}

func cleanupEnv() {
	vars := []string{
		"DATABASE_URL",
		"SOLANA_RPC_URL",
		"BASE_RPC_URL",
		"ETHEREUM_RPC_URL",
		"SERVER_ADDR",
		"LOG_LEVEL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"NATS_URL",
		"DEFAULT_EVM_CHAIN",
		"RECONCILE_TICK",
		"PROVIDER_RPS",
		"BALANCE_CACHE_TTL",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
