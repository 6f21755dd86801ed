package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"

	"github.com/tzstamp/tzstamp/chain"
)

// Config defines the server configuration params
type Config struct {
	DataDir            string   `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
	Addr               string   `json:"addr" yaml:"addr" hcl:"addr"`
	BaseURL            string   `json:"base_url" yaml:"base_url" hcl:"base_url"`
	Network            string   `json:"network" yaml:"network" hcl:"network"`
	Interval           string   `json:"interval" yaml:"interval" hcl:"interval"`
	Deduplicate        bool     `json:"deduplicate" yaml:"deduplicate" hcl:"deduplicate"`
	PublishRetries     uint64   `json:"publish_retries" yaml:"publish_retries" hcl:"publish_retries"`
	LogLevel           string   `json:"log_level" yaml:"log_level" hcl:"log_level"`
	JSONLogFormat      bool     `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`
	CorsAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" hcl:"cors_allowed_origins"`
	Dev                bool     `json:"dev" yaml:"dev" hcl:"dev"`
	Prometheus         bool     `json:"prometheus" yaml:"prometheus" hcl:"prometheus"`
}

const (
	DefaultDataDir        = "./tzstamp-data"
	DefaultAddr           = "127.0.0.1:8000"
	DefaultInterval       = "5m"
	DefaultPublishRetries = 3
)

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:            DefaultDataDir,
		Addr:               DefaultAddr,
		BaseURL:            "http://" + DefaultAddr,
		Interval:           DefaultInterval,
		Deduplicate:        true,
		PublishRetries:     DefaultPublishRetries,
		LogLevel:           "INFO",
		CorsAllowedOrigins: []string{"*"},
		Dev:                true,
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()

	// hcl appends to non-nil slices
	config.CorsAllowedOrigins = nil

	if err := unmarshalFunc(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if config.CorsAllowedOrigins == nil {
		config.CorsAllowedOrigins = DefaultConfig().CorsAllowedOrigins
	}

	return config, nil
}

// IntervalDuration parses the aggregation interval
func (c *Config) IntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.Interval)
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.DataDir == "" {
		result = multierror.Append(result, errors.New("data dir must be set"))
	}

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid listen address %q: %w", c.Addr, err))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("base url %q must be an absolute http(s) url", c.BaseURL))
	}

	if interval, err := c.IntervalDuration(); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid interval: %w", err))
	} else if interval <= 0 {
		result = multierror.Append(result, errors.New("interval must be positive"))
	}

	if c.Network != "" {
		if err := chain.ValidateNetwork(c.Network); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if !c.Dev {
		// anchoring on a live network needs an operator wallet
		result = multierror.Append(result, errors.New("only the dev chain publisher is available, dev must be enabled"))
	}

	return result.ErrorOrNil()
}
