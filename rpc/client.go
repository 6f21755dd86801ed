package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/tzstamp/tzstamp/helper/hex"
)

const (
	// DefaultCacheSize is the number of block headers kept in memory
	DefaultCacheSize = 256

	// DefaultTimeout bounds a single request to the node
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 1 << 20
)

var (
	ErrBlockNotFound = errors.New("block not found")
	ErrInvalidURL    = errors.New("invalid node url")
)

// StatusError is returned when the node answers with an unexpected HTTP status
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("node request %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// BlockHeader is the subset of a block header needed to check a proof
type BlockHeader struct {
	Hash           string    `json:"hash"`
	ChainID        string    `json:"chain_id"`
	Level          int64     `json:"level"`
	Predecessor    string    `json:"predecessor"`
	Timestamp      time.Time `json:"timestamp"`
	OperationsHash string    `json:"operations_hash"`
}

// Client is an HTTP client for a chain node's block header endpoints
type Client struct {
	logger     hclog.Logger
	baseURL    string
	httpClient *http.Client
	cacheSize  int
	cache      *lru.Cache
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying http client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger
func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCacheSize sets the number of cached block headers
func WithCacheSize(size int) Option {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// NewClient creates a client for the node at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	c := &Client{
		logger:     hclog.NewNullLogger(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cacheSize:  DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.Named("rpc")

	if c.cache, err = lru.New(c.cacheSize); err != nil {
		return nil, err
	}

	return c, nil
}

// BaseURL returns the node url
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetBlockHeader returns the header of the block with the given hash on the given network
func (c *Client) GetBlockHeader(ctx context.Context, network, blockHash string) (*BlockHeader, error) {
	key := network + "/" + blockHash

	if cached, ok := c.cache.Get(key); ok {
		if header, ok := cached.(*BlockHeader); ok {
			return header, nil
		}
	}

	var header BlockHeader
	if err := c.get(ctx, headerPath(network, blockHash), &header); err != nil {
		return nil, err
	}

	c.cache.Add(key, &header)

	return &header, nil
}

// GetRawBlockHeader returns the binary encoded header of the block
func (c *Client) GetRawBlockHeader(ctx context.Context, network, blockHash string) ([]byte, error) {
	var raw string
	if err := c.get(ctx, headerPath(network, blockHash)+"/raw", &raw); err != nil {
		return nil, err
	}

	return hex.DecodeString(raw)
}

func headerPath(network, blockHash string) string {
	return fmt.Sprintf("/chains/%s/blocks/%s/header", url.PathEscape(network), url.PathEscape(blockHash))
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	c.logger.Debug("node request", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("node request %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read node response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrBlockNotFound, endpoint)
	default:
		return &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode node response: %w", err)
	}

	return nil
}
