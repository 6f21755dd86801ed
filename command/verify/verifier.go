package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/server"
)

const (
	statusVerified       = "verified"
	statusMismatch       = "mismatch"
	statusNotFound       = "not found"
	statusUnaffixed      = "unaffixed"
	statusTargetMismatch = "target mismatch"
	statusError          = "error"
)

// verifier resolves proofs and checks them against a chain node
type verifier struct {
	logger  hclog.Logger
	client  *http.Client
	fetcher proof.HeaderFetcher
}

// verifyAll checks every proof file with at most limit requests in flight
func (v *verifier) verifyAll(ctx context.Context, paths []string, target string, limit int) []*VerifyEntry {
	entries := make([]*VerifyEntry, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		i, path := i, path

		g.Go(func() error {
			entries[i] = v.verifyFile(ctx, path, target)

			return nil
		})
	}

	_ = g.Wait()

	return entries
}

// verifyFile never fails, problems are reported in the entry
func (v *verifier) verifyFile(ctx context.Context, path, target string) *VerifyEntry {
	entry := &VerifyEntry{Proof: path}

	fail := func(err error) *VerifyEntry {
		v.logger.Debug("verification failed", "proof", path, "err", err)
		entry.Status = statusError
		entry.Error = err.Error()

		return entry
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	p, err := proof.Parse(data)
	if err != nil {
		return fail(fmt.Errorf("invalid proof: %w", err))
	}

	entry.Hash = hex.EncodeToString(p.Hash())

	expected, err := targetHash(path, target)
	if err != nil {
		return fail(err)
	}

	if expected != nil && !bytes.Equal(expected, p.Hash()) {
		entry.Status = statusTargetMismatch

		return entry
	}

	resolved, err := proof.ResolveAll(ctx, v.client, p)
	if err != nil {
		return fail(err)
	}

	affixed, ok := resolved.(*proof.Affixed)
	if !ok {
		entry.Status = statusUnaffixed

		return entry
	}

	entry.Network = affixed.Network()
	entry.BlockHash = affixed.BlockHash()
	entry.Timestamp = affixed.Timestamp().Format(time.RFC3339)

	result, err := affixed.Verify(ctx, v.fetcher)
	if err != nil {
		return fail(err)
	}

	switch result {
	case proof.Verified:
		entry.Status = statusVerified
	case proof.Mismatch:
		entry.Status = statusMismatch
	default:
		entry.Status = statusNotFound
	}

	return entry
}

// targetHash returns the hash the proof must commit to. An explicit target
// is a file or a hex hash; without one the stamped file next to the proof
// is used when present.
func targetHash(proofPath, target string) ([]byte, error) {
	if target == "" {
		stamped := helper.TrimProofSuffix(proofPath)
		if stamped == proofPath {
			return nil, nil
		}

		if _, err := os.Stat(stamped); err != nil {
			return nil, nil
		}

		return hashFile(stamped)
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return hashFile(target)
	}

	hash, err := hex.DecodeHash(target, server.MinHashLength, server.MaxHashLength)
	if err != nil {
		return nil, fmt.Errorf("target is neither a file nor a hex hash: %w", err)
	}

	return hash, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
