package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/tzstamp/tzstamp/rpc"
)

// HeaderFetcher looks up block headers on a network
type HeaderFetcher interface {
	GetBlockHeader(ctx context.Context, network, blockHash string) (*rpc.BlockHeader, error)
}

// VerifyResult is the outcome of checking an affixed proof against a chain node
type VerifyResult int

const (
	// NotFound means the node has no block with the derived hash
	NotFound VerifyResult = iota + 1
	// Mismatch means the block exists with a different timestamp
	Mismatch
	// Verified means the block exists with the claimed timestamp
	Verified
)

func (r VerifyResult) String() string {
	switch r {
	case NotFound:
		return "not found"
	case Mismatch:
		return "mismatch"
	case Verified:
		return "verified"
	default:
		return fmt.Sprintf("VerifyResult(%d)", int(r))
	}
}

// Verify fetches the block header for the derived block hash and compares
// its timestamp with the claimed timestamp. Fetch failures other than a
// missing block are returned as errors.
func (p *Affixed) Verify(ctx context.Context, fetcher HeaderFetcher) (VerifyResult, error) {
	header, err := fetcher.GetBlockHeader(ctx, p.affix.network, p.BlockHash())
	if errors.Is(err, rpc.ErrBlockNotFound) {
		return NotFound, nil
	}

	if err != nil {
		return 0, fmt.Errorf("fetching block %s: %w", p.BlockHash(), err)
	}

	if !header.Timestamp.Equal(p.affix.timestamp) {
		return Mismatch, nil
	}

	return Verified, nil
}
