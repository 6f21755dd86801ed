package verify

import (
	"errors"
	"net/url"
	"time"
)

const (
	rpcFlag         = "rpc"
	targetFlag      = "target"
	concurrencyFlag = "concurrency"
	requestTimeout  = 30 * time.Second
)

var (
	errNoProofs        = errors.New("at least one proof file is required")
	errTargetAmbiguous = errors.New("--target can only be used with a single proof")
)

var params = &verifyParams{}

type verifyParams struct {
	rpcURL      string
	target      string
	concurrency int
}

func (p *verifyParams) validateFlags(args []string) error {
	if len(args) == 0 {
		return errNoProofs
	}

	if p.target != "" && len(args) > 1 {
		return errTargetAmbiguous
	}

	if u, err := url.Parse(p.rpcURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("rpc url must be an absolute http(s) url")
	}

	if p.concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	return nil
}
