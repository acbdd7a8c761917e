// Copyright 2025 Basis Protocol
//
// Package config loads process configuration from environment variables,
// following the donor's getEnv*/Validate() shape (pkg/config/config.go)
// almost field-for-field in structure, with every Accumulate/Ethereum/
// Firestore/JWT/CORS field replaced by the tracker domain's own surface.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects which NoteStore implementation the process wires
// up at startup.
type StoreBackend string

const (
	StoreBackendEmbedded StoreBackend = "embedded" // cometbft-db, the default
	StoreBackendPostgres StoreBackend = "postgres"
)

// Config holds all configuration for the tracker process.
type Config struct {
	// Host-chain client. REQUIRED: spec §4.5's "Startup requirement" says
	// the process MUST abort with a distinguished exit code if this is
	// unset, rather than silently defaulting to a local endpoint.
	HostChainEndpoint string

	// Tracker signing key.
	TrackerKeyPath string

	// Tracker-NFT id this process's commitment box is bound to, hex-encoded.
	TrackerNFTID string

	// TrackerState tuning.
	SkewSeconds uint64 // forward clock-skew tolerance, spec §9 (default 60)

	// CommitmentPublisher tuning.
	CommitTickInterval time.Duration // default 600s, spec §4.5

	// Store backend selection.
	StoreBackend StoreBackend

	// Embedded (cometbft-db) backend.
	DataDir string

	// Postgres backend (used only when StoreBackend == StoreBackendPostgres).
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Journal/checkpoint tuning, spec §4.6.
	CheckpointEveryOps  int           // create a checkpoint every N operations
	CheckpointEvery     time.Duration // or every T seconds, whichever comes first
	CheckpointKeepCount int           // retain the last K checkpoints

	// Identity/peering file (YAML), spec §3 AMBIENT STACK.
	IdentityFilePath string

	LogLevel string
}

// Load reads configuration from environment variables. Call Validate()
// afterward before starting the process.
func Load() (*Config, error) {
	cfg := &Config{
		HostChainEndpoint: getEnv("HOST_CHAIN_ENDPOINT", ""),

		TrackerKeyPath: getEnv("TRACKER_KEY_PATH", "./data/tracker.key"),
		TrackerNFTID:   getEnv("TRACKER_NFT_ID", ""),

		SkewSeconds: uint64(getEnvInt("SKEW_SECONDS", 60)),

		CommitTickInterval: getEnvDuration("COMMIT_TICK_INTERVAL", 600*time.Second),

		StoreBackend: StoreBackend(getEnv("STORE_BACKEND", string(StoreBackendEmbedded))),
		DataDir:      getEnv("DATA_DIR", "./data"),

		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "basistracker"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "basistracker"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "require"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		CheckpointEveryOps:  getEnvInt("CHECKPOINT_EVERY_OPS", 1000),
		CheckpointEvery:     getEnvDuration("CHECKPOINT_EVERY", 5*time.Minute),
		CheckpointKeepCount: getEnvInt("CHECKPOINT_KEEP_COUNT", 5),

		IdentityFilePath: getEnv("IDENTITY_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present. Per spec
// §4.5/§6.6, a missing host-chain endpoint is the one condition that must
// map to exit code 1 at the process boundary.
func (c *Config) Validate() error {
	var errs []string

	if c.HostChainEndpoint == "" {
		errs = append(errs, "HOST_CHAIN_ENDPOINT is required but not set")
	}

	switch c.StoreBackend {
	case StoreBackendEmbedded, StoreBackendPostgres:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND %q is not one of %q, %q", c.StoreBackend, StoreBackendEmbedded, StoreBackendPostgres))
	}

	if c.StoreBackend == StoreBackendPostgres && c.DBName == "" {
		errs = append(errs, "DB_NAME is required when STORE_BACKEND=postgres")
	}

	if c.TrackerNFTID == "" {
		errs = append(errs, "TRACKER_NFT_ID is required but not set")
	}

	if c.CommitTickInterval <= 0 {
		errs = append(errs, "COMMIT_TICK_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
