package configuration

import (
	"time"

	"github.com/go-redis/redis"
)

type ImportServerConfig struct {
	HttpPort    uint16
	MetricsPort uint16

	Redis redis.UniversalOptions

	Import ImportConfig
}

type ImportConfig struct {
	// Number of items persisted per chunk record.
	ChunkSize int
	// Upper bound on the request body, in bytes.
	MaxPayloadBytes int64
	// Minimum spacing between downstream object creations, shared across
	// all running import jobs.
	ItemDelay time.Duration
	// Persist the processed counter every this many successful items.
	ProgressFlushEvery int
	// Endpoint of the downstream object creation API.
	ObjectApiUrl string
}

const (
	DefaultChunkSize          = 100
	DefaultMaxPayloadBytes    = 200 * 1024 * 1024
	DefaultItemDelay          = 100 * time.Millisecond
	DefaultProgressFlushEvery = 10
)

// ApplyDefaults fills in zero-valued tunables with their defaults.
func (c ImportConfig) ApplyDefaults() ImportConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxPayloadBytes <= 0 {
		c.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.ItemDelay <= 0 {
		c.ItemDelay = DefaultItemDelay
	}
	if c.ProgressFlushEvery <= 0 {
		c.ProgressFlushEvery = DefaultProgressFlushEvery
	}
	return c
}
