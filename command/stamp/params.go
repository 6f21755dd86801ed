package stamp

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/server"
)

const (
	serverFlag       = "server"
	waitFlag         = "wait"
	pollIntervalFlag = "poll-interval"
	timeoutFlag      = "timeout"
	overwriteFlag    = "overwrite"
	requestTimeout   = 30 * time.Second
)

const (
	defaultPollInterval = 30 * time.Second
	defaultTimeout      = 30 * time.Minute
)

var (
	errNoInputs     = errors.New("at least one file or hash is required")
	errNoServers    = errors.New("at least one server is required")
	errInvalidInput = errors.New("input is neither a readable file nor a hex hash")
)

var params = &stampParams{}

type stampParams struct {
	servers      []string
	wait         bool
	pollInterval time.Duration
	timeout      time.Duration
	overwrite    bool
}

func (p *stampParams) validateFlags(args []string) error {
	if len(args) == 0 {
		return errNoInputs
	}

	if len(p.servers) == 0 {
		return errNoServers
	}

	for _, s := range p.servers {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid server url %q", s)
		}
	}

	if p.wait && (p.pollInterval <= 0 || p.timeout <= 0) {
		return errors.New("poll interval and timeout must be positive")
	}

	return nil
}

// input is a stamping target, either a file or a raw hash
type input struct {
	name string
	hash []byte
	file bool
}

// readInput hashes the file at arg with SHA-256. An arg naming no file is
// taken as a hex hash.
func readInput(arg string) (*input, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		hash, err := hashFile(arg)
		if err != nil {
			return nil, err
		}

		return &input{name: arg, hash: hash, file: true}, nil
	}

	hash, err := hex.DecodeHash(arg, server.MinHashLength, server.MaxHashLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidInput, arg)
	}

	return &input{name: arg, hash: hash}, nil
}
