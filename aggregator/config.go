package aggregator

import (
	"errors"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	DefaultInterval       = 5 * time.Minute
	DefaultPublishRetries = 3
	DefaultRetryDelay     = time.Second
)

// Config holds the aggregation parameters
type Config struct {
	// BaseURL is the public url proofs are served under
	BaseURL string
	// Interval is the length of an aggregation epoch
	Interval time.Duration
	// Deduplicate drops hashes already present in the current tree
	Deduplicate bool
	// PublishRetries is the number of retries after a failed publish
	PublishRetries uint64
	// RetryDelay is the initial delay between publish attempts
	RetryDelay time.Duration
}

// DefaultConfig returns the default aggregation config for baseURL
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Interval:       DefaultInterval,
		Deduplicate:    true,
		PublishRetries: DefaultPublishRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

// Validate reports every invalid field
func (c *Config) Validate() error {
	var result *multierror.Error

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, errors.New("base url must be an absolute http(s) url"))
	}

	if c.Interval <= 0 {
		result = multierror.Append(result, errors.New("interval must be positive"))
	}

	if c.RetryDelay <= 0 {
		result = multierror.Append(result, errors.New("retry delay must be positive"))
	}

	return result.ErrorOrNil()
}
