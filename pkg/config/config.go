// Package config provides the unified configuration system for Acorn.
// It defines a single BaseConfig structure that every trunk backend uses,
// ensuring consistent configuration across the storage core.
//
// The configuration is organized into logical sections:
//   - Batching: flush thresholds and intervals for the write buffer
//   - Compression, Encryption, Checksum, Policy: built-in pipeline stages
//   - Storage: backend-specific location and codec settings
//   - Observability: metrics and logging
//
// Example usage:
//
//	cfg := config.NewBaseConfig("notes", "sqlite")
//	cfg.Storage.DSN = "file:notes.db"
//	cfg.Batching.FlushThreshold = 500
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"github.com/ajitpratap0/acorn/pkg/errors"
)

// BaseConfig is the single configuration structure all trunks use.
type BaseConfig struct {
	// Name identifies the trunk instance (logical collection name)
	Name string `yaml:"name" json:"name"`
	// Backend specifies the backend type (e.g. "memory", "file", "sqlite")
	Backend string `yaml:"backend" json:"backend"`

	// Batching controls the write buffer shared by every backend
	Batching BatchingConfig `yaml:"batching" json:"batching"`

	// Compression configures the built-in compression stage
	Compression CompressionConfig `yaml:"compression" json:"compression"`

	// Encryption configures the built-in encryption stage
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`

	// Checksum configures the built-in checksum stage
	Checksum ChecksumConfig `yaml:"checksum" json:"checksum"`

	// Policy configures the built-in validation stage
	Policy PolicyConfig `yaml:"policy" json:"policy"`

	// Storage holds backend-specific location settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Observability settings for metrics and logging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// BatchingConfig controls write buffering. Data accepted by Stash is at
// risk of loss until the next successful flush; tune the threshold and
// interval against that durability window.
type BatchingConfig struct {
	// Enabled turns write buffering on; when false every Stash writes
	// synchronously through the pipeline to the backend
	Enabled bool `yaml:"enabled" json:"enabled"`
	// FlushThreshold triggers an immediate flush when the buffer
	// reaches this many pending writes
	FlushThreshold int `yaml:"flush_threshold" json:"flush_threshold"`
	// FlushInterval triggers periodic background flushes
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// CompressionConfig configures the compression stage.
type CompressionConfig struct {
	// Enabled adds the compression stage to new trunks
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Algorithm selects gzip, snappy, lz4, zstd, s2 or none
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	// Level is 1 (fastest) through 9 (best)
	Level int `yaml:"level" json:"level"`
}

// EncryptionConfig configures the encryption stage.
type EncryptionConfig struct {
	// Enabled adds the encryption stage to new trunks
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cipher selects "chacha20poly1305" (default) or "aes256gcm"
	Cipher string `yaml:"cipher" json:"cipher"`
	// Key is the base64-encoded 32-byte key (use env vars in production)
	Key string `yaml:"key" json:"key"`
}

// ChecksumConfig configures the checksum stage.
type ChecksumConfig struct {
	// Enabled adds the checksum stage to new trunks
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// PolicyConfig configures the validation stage.
type PolicyConfig struct {
	// Enabled adds the policy stage to new trunks
	Enabled bool `yaml:"enabled" json:"enabled"`
	// MaxPayloadBytes rejects serialized records larger than this (0 = unlimited)
	MaxPayloadBytes int `yaml:"max_payload_bytes" json:"max_payload_bytes"`
	// RejectExpired refuses writes of records whose expiry already passed
	RejectExpired bool `yaml:"reject_expired" json:"reject_expired"`
}

// StorageConfig holds backend-specific location settings.
type StorageConfig struct {
	// Path is the directory or file location for disk-backed trunks
	Path string `yaml:"path" json:"path"`
	// DSN is the connection string for SQL-backed trunks
	DSN string `yaml:"dsn" json:"dsn"`
	// Codec selects the record serialization format: "json" or "cbor"
	Codec string `yaml:"codec" json:"codec"`
}

// ObservabilityConfig controls metrics and logging.
type ObservabilityConfig struct {
	// EnableMetrics activates the observational tracking stage
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewBaseConfig creates a configuration with sensible defaults for the
// given trunk name and backend type.
func NewBaseConfig(name, backend string) *BaseConfig {
	cfg := &BaseConfig{
		Name:    name,
		Backend: backend,
	}
	cfg.applyDefaults()
	return cfg
}

func (c *BaseConfig) applyDefaults() {
	if c.Batching.FlushThreshold <= 0 {
		c.Batching.FlushThreshold = 100
	}
	if c.Batching.FlushInterval <= 0 {
		c.Batching.FlushInterval = 5 * time.Second
	}
	if c.Compression.Algorithm == "" {
		c.Compression.Algorithm = "snappy"
	}
	if c.Compression.Level <= 0 {
		c.Compression.Level = 5
	}
	if c.Encryption.Cipher == "" {
		c.Encryption.Cipher = "chacha20poly1305"
	}
	if c.Storage.Codec == "" {
		c.Storage.Codec = "json"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate applies defaults and checks the configuration for consistency.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "trunk name is required")
	}
	if c.Backend == "" {
		return errors.New(errors.ErrorTypeConfig, "backend type is required")
	}

	c.applyDefaults()

	if c.Encryption.Enabled && c.Encryption.Key == "" {
		return errors.New(errors.ErrorTypeConfig, "encryption enabled without a key")
	}
	if c.Storage.Codec != "json" && c.Storage.Codec != "cbor" {
		return errors.Newf(errors.ErrorTypeConfig, "unknown codec %q", c.Storage.Codec)
	}

	return nil
}
