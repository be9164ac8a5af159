// Package config holds the ledger core's process configuration, decoded
// once from a TOML file at startup.
package config

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/openledger/ledgercore/log"
)

// Config is the top-level configuration for a ledger core process.
type Config struct {
	Store  StoreConfig
	Ledger LedgerConfig
}

// StoreConfig configures the durable key-value store backing the trie
// and ledger-header persistence layer.
type StoreConfig struct {
	DataDir    string // directory holding the leveldb files
	CacheMB    int    // leveldb block cache size, in megabytes
	Handles    int    // leveldb open-file handle budget
	FlushBatch int    // number of dirty trie nodes flushed per accept-time batch
}

// LedgerConfig configures the transaction application engine.
type LedgerConfig struct {
	// AutoCreateDestinationAccount controls whether applyTransaction
	// silently creates a not-yet-seen destination account (with
	// sequence 1) instead of rejecting the transaction with BADACCT.
	AutoCreateDestinationAccount bool
}

// DefaultConfig mirrors the original ledger's always-on behavior.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:    "ledgerdata",
			CacheMB:    16,
			Handles:    16,
			FlushBatch: 64,
		},
		Ledger: LedgerConfig{
			AutoCreateDestinationAccount: true,
		},
	}
}

var (
	config     *Config
	loadConfig sync.Once
)

// LoadConfig decodes configFile (TOML) into the package-level config
// singleton and returns it. It is safe to call from multiple
// goroutines; only the first call actually parses the file.
func LoadConfig(configFile string) (*Config, error) {
	var err error
	loadConfig.Do(func() {
		cfg := DefaultConfig()
		if configFile != "" {
			if _, decodeErr := toml.DecodeFile(configFile, cfg); decodeErr != nil {
				err = fmt.Errorf("parse config file %q: %w", configFile, decodeErr)
				return
			}
		}
		if checkErr := CheckConfig(cfg); checkErr != nil {
			err = checkErr
			return
		}
		config = cfg
		log.Info("config loaded", "dataDir", cfg.Store.DataDir, "autoCreateDestination", cfg.Ledger.AutoCreateDestinationAccount)
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Get returns the loaded configuration, or the default if LoadConfig
// has not yet been called.
func Get() *Config {
	if config == nil {
		return DefaultConfig()
	}
	return config
}

// CheckConfig validates a decoded Config for obviously bad values.
func CheckConfig(cfg *Config) error {
	if cfg.Store.DataDir == "" {
		return fmt.Errorf("config: store.DataDir must not be empty")
	}
	if cfg.Store.FlushBatch <= 0 {
		return fmt.Errorf("config: store.FlushBatch must be positive")
	}
	return nil
}
