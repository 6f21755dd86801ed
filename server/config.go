package server

import "time"

const (
	DefaultAddr        = "127.0.0.1:8000"
	DefaultMaxBodySize = 1 << 10

	// MinHashLength and MaxHashLength bound submitted hashes in bytes
	MinHashLength = 16
	MaxHashLength = 64

	shutdownTimeout = 10 * time.Second
)

// Config is used to parametrize the HTTP API
type Config struct {
	Addr                     string
	AccessControlAllowOrigin []string
	MaxBodySize              int64

	// Network is reported by the status endpoint
	Network string

	// Metrics enables the prometheus endpoint
	Metrics bool
}

// DefaultConfig returns the default HTTP API config
func DefaultConfig() *Config {
	return &Config{
		Addr:                     DefaultAddr,
		AccessControlAllowOrigin: []string{"*"},
		MaxBodySize:              DefaultMaxBodySize,
	}
}
