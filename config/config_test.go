package config

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, ChainMainnet, d.Chain)
	assert.Greater(t, d.BalanceCacheCapacity, 0)
	assert.Greater(t, d.RetryAttempts, uint64(0))
	assert.Greater(t, d.InsertChunkSize, 0)
}

func TestLoad_RoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "near-indexer-config-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/config.toml"
	contents := `
start_block_height = 1000
chain = "testnet"
balance_cache_capacity = 5000
retry_attempts = 7
retry_initial = "200ms"
retry_max = "60s"
insert_chunk_size = 50
database_dsn = "user:pass@tcp(127.0.0.1:3306)/near"
kafka_brokers = ["broker1:9092", "broker2:9092"]
`
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.StartBlockHeight)
	assert.Equal(t, ChainTestnet, cfg.Chain)
	assert.Equal(t, 5000, cfg.BalanceCacheCapacity)
	assert.Equal(t, uint64(7), cfg.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryInitial)
	assert.Equal(t, 60*time.Second, cfg.RetryMax)
	assert.Equal(t, 50, cfg.InsertChunkSize)
	assert.Equal(t, "user:pass@tcp(127.0.0.1:3306)/near", cfg.DatabaseDSN)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	t.Setenv("NEAR_INDEXER_DATABASE_DSN", "override-dsn")
	t.Setenv("NEAR_INDEXER_START_BLOCK_HEIGHT", "42")
	t.Setenv("NEAR_INDEXER_CHAIN", "testnet")

	applyEnvOverrides(&cfg)
	assert.Equal(t, "override-dsn", cfg.DatabaseDSN)
	assert.Equal(t, uint64(42), cfg.StartBlockHeight)
	assert.Equal(t, ChainTestnet, cfg.Chain)
}

func TestApplyEnvOverrides_InvalidHeightIsIgnored(t *testing.T) {
	cfg := Default()
	cfg.StartBlockHeight = 5
	t.Setenv("NEAR_INDEXER_START_BLOCK_HEIGHT", "not-a-number")

	applyEnvOverrides(&cfg)
	assert.Equal(t, uint64(5), cfg.StartBlockHeight)
}

func TestConfig_OracleConfigProjection(t *testing.T) {
	cfg := Default()
	cfg.BalanceCacheCapacity = 123
	cfg.RetryAttempts = 9
	oc := cfg.OracleConfig()
	assert.Equal(t, 123, oc.Capacity)
	assert.Equal(t, uint64(9), oc.RetryAttempts)
}

func TestConfig_ReconcileConfigProjection(t *testing.T) {
	cfg := Default()
	cfg.InsertChunkSize = 77
	rc := cfg.ReconcileConfig()
	assert.Equal(t, 77, rc.InsertChunkSize)
}
