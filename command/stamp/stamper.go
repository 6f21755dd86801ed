package stamp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-retry"

	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/server"
)

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return h.Sum(nil), nil
}

// stamper submits hashes to aggregator servers and waits for their proofs
type stamper struct {
	logger  hclog.Logger
	client  *http.Client
	servers []string
}

func newStamper(logger hclog.Logger, client *http.Client, servers []string) *stamper {
	return &stamper{
		logger:  logger.Named("stamp"),
		client:  client,
		servers: servers,
	}
}

// submit posts hash to a single server and returns the proof pointing at
// the server's continuation
func (s *stamper) submit(ctx context.Context, serverURL string, hash []byte) (*proof.Unresolved, error) {
	body, err := json.Marshal(&server.StampRequest{Data: hex.EncodeToString(hash)})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(serverURL, "/") + "/stamp"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))

		return nil, fmt.Errorf("server %s responded with %d: %s", serverURL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var stampResp server.StampResponse
	if err := json.NewDecoder(resp.Body).Decode(&stampResp); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", serverURL, err)
	}

	return proof.NewUnresolved(hash, stampResp.URL)
}

// submitAll posts hash to every server. It fails only when no server
// accepted the hash.
func (s *stamper) submitAll(ctx context.Context, hash []byte) ([]*proof.Unresolved, error) {
	var (
		proofs []*proof.Unresolved
		errs   *multierror.Error
	)

	for _, serverURL := range s.servers {
		p, err := s.submit(ctx, serverURL, hash)
		if err != nil {
			s.logger.Warn("submission failed", "server", serverURL, "err", err)
			errs = multierror.Append(errs, err)

			continue
		}

		s.logger.Debug("hash submitted", "server", serverURL, "url", p.Remote())
		proofs = append(proofs, p)
	}

	if len(proofs) == 0 {
		if errs == nil {
			return nil, errNoServers
		}

		return nil, errs
	}

	return proofs, nil
}

// await polls the remotes of proofs until one of them is fully resolved
func (s *stamper) await(
	ctx context.Context,
	proofs []*proof.Unresolved,
	pollInterval, timeout time.Duration,
) (proof.Proof, error) {
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(pollInterval))

	var result proof.Proof

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var pending error

		for _, p := range proofs {
			resolved, err := proof.ResolveAll(ctx, s.client, p)

			switch {
			case err == nil:
				result = resolved

				return nil
			case errors.Is(err, proof.ErrRemotePending), errors.Is(err, proof.ErrRemoteNotFound):
				s.logger.Debug("proof not ready", "url", p.Remote(), "err", err)
				pending = err
			default:
				return err
			}
		}

		return retry.RetryableError(pending)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
