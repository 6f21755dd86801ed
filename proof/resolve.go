package proof

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const (
	// maxTemplateSize bounds the size of a fetched proof template
	maxTemplateSize = 4 << 20

	// MaxResolveDepth bounds the number of remote hops followed by ResolveAll
	MaxResolveDepth = 16
)

// Resolve fetches the continuation at the remote locator and concatenates
// it onto the proof. A nil client uses http.DefaultClient.
func (p *Unresolved) Resolve(ctx context.Context, client *http.Client) (Proof, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.remote, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: p.remote, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}

	next, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", p.remote, err)
	}

	return p.Concat(next)
}

// ResolveAll resolves p until the result is no longer unresolved
func ResolveAll(ctx context.Context, client *http.Client, p Proof) (Proof, error) {
	for i := 0; i < MaxResolveDepth; i++ {
		unresolved, ok := p.(*Unresolved)
		if !ok {
			return p, nil
		}

		next, err := unresolved.Resolve(ctx, client)
		if err != nil {
			return nil, err
		}

		p = next
	}

	if _, ok := p.(*Unresolved); ok {
		return nil, fmt.Errorf("%w: exceeded %d remote hops", ErrFetchFailed, MaxResolveDepth)
	}

	return p, nil
}
