// Package config implements the indexer's configuration record, loaded
// from a TOML file via a naoina/toml decoder configured to keep TOML keys matching
// the struct tags verbatim, plus a thin layer of environment overrides for
// the values operators most often need to change without a file edit.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/reconcile"
)

// Chain is the closed set of networks the indexer may run against.
type Chain string

const (
	ChainMainnet Chain = "mainnet"
	ChainTestnet Chain = "testnet"
)

// Config is the configuration record the core requires to run.
type Config struct {
	StartBlockHeight      uint64        `toml:"start_block_height"`
	Chain                 Chain         `toml:"chain"`
	BalanceCacheCapacity  int           `toml:"balance_cache_capacity"`
	RetryAttempts         uint64        `toml:"retry_attempts"`
	RetryInitial          time.Duration `toml:"retry_initial"`
	RetryMax              time.Duration `toml:"retry_max"`
	InsertChunkSize       int           `toml:"insert_chunk_size"`

	DatabaseDSN  string   `toml:"database_dsn"`
	KafkaBrokers []string `toml:"kafka_brokers"`
}

// Default returns the configuration record with every documented default
// applied.
func Default() Config {
	oracleDefaults := oracle.DefaultConfig()
	return Config{
		Chain:                ChainMainnet,
		BalanceCacheCapacity: cache.DefaultCapacity,
		RetryAttempts:        oracleDefaults.RetryAttempts,
		RetryInitial:         oracleDefaults.RetryInitial,
		RetryMax:             oracleDefaults.RetryMax,
		InsertChunkSize:      reconcile.DefaultConfig().InsertChunkSize,
	}
}

// tomlSettings keeps TOML keys matching the struct tags verbatim instead of
// the library's default camel-case folding.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field %q is not defined in %s", field, rt.String())
	},
}

// Load reads a TOML file into a copy of Default, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: failed to open file")
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: failed to decode %s", path)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets an operator override the handful of values that
// commonly differ between deployments (secrets, connection strings)
// without templating the TOML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEAR_INDEXER_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("NEAR_INDEXER_START_BLOCK_HEIGHT"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StartBlockHeight = parsed
		}
	}
	if v := os.Getenv("NEAR_INDEXER_CHAIN"); v != "" {
		cfg.Chain = Chain(v)
	}
}

// OracleConfig projects the oracle-relevant fields into oracle.Config.
func (c Config) OracleConfig() oracle.Config {
	return oracle.Config{
		Capacity:      c.BalanceCacheCapacity,
		RetryAttempts: c.RetryAttempts,
		RetryInitial:  c.RetryInitial,
		RetryMax:      c.RetryMax,
	}
}

// ReconcileConfig projects the sink-chunking field into reconcile.Config.
func (c Config) ReconcileConfig() reconcile.Config {
	return reconcile.Config{InsertChunkSize: c.InsertChunkSize}
}
