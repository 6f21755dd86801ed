package stamp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzstamp/tzstamp/aggregator"
	"github.com/tzstamp/tzstamp/crypto"
	"github.com/tzstamp/tzstamp/devchain"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/server"
	"github.com/tzstamp/tzstamp/storage"
)

// newTestServer starts an aggregator API whose proof urls point at itself
func newTestServer(t *testing.T) (*httptest.Server, *aggregator.Aggregator) {
	t.Helper()

	var handler http.Handler

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	dev, err := devchain.New(hclog.NewNullLogger())
	require.NoError(t, err)

	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "proofs.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	agg, err := aggregator.NewAggregator(hclog.NewNullLogger(), aggregator.DefaultConfig(srv.URL), dev, store)
	require.NoError(t, err)

	serverConfig := server.DefaultConfig()
	serverConfig.Network = dev.Network()

	handler = server.NewServer(hclog.NewNullLogger(), serverConfig, agg, store).Handler()

	return srv, agg
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "document.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestReadInput(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "hello")

	in, err := readInput(path)
	require.NoError(t, err)
	assert.True(t, in.file)
	assert.Equal(t, crypto.SHA256([]byte("hello")), in.hash)

	h := crypto.SHA256([]byte("raw"))

	in, err = readInput("0x" + hex.EncodeToString(h))
	require.NoError(t, err)
	assert.False(t, in.file)
	assert.Equal(t, h, in.hash)

	_, err = readInput(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, errInvalidInput)

	_, err = readInput("abcd")
	require.ErrorIs(t, err, errInvalidInput)
}

func TestStampParams_ValidateFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		params stampParams
		args   []string
		valid  bool
	}{
		{"no inputs", stampParams{servers: []string{"https://a.example"}}, nil, false},
		{"no servers", stampParams{}, []string{"f"}, false},
		{"bad server", stampParams{servers: []string{"a.example"}}, []string{"f"}, false},
		{
			"zero poll interval",
			stampParams{servers: []string{"https://a.example"}, wait: true, timeout: time.Minute},
			[]string{"f"},
			false,
		},
		{"valid", stampParams{servers: []string{"https://a.example"}}, []string{"f"}, true},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := c.params.validateFlags(c.args)
			if c.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestStamper_StampWithoutWait(t *testing.T) {
	t.Parallel()

	srv, agg := newTestServer(t)
	path := writeFile(t, "hello")
	s := newStamper(hclog.NewNullLogger(), srv.Client(), []string{srv.URL})

	entry, err := s.stamp(context.Background(), path, &stampParams{})
	require.NoError(t, err)

	assert.Equal(t, statusPending, entry.Status)
	assert.Equal(t, path+".proof.json", entry.Proof)
	assert.Equal(t, agg.ProofURL(entry.Hash), entry.Remote)

	data, err := os.ReadFile(entry.Proof)
	require.NoError(t, err)

	p, err := proof.Parse(data)
	require.NoError(t, err)
	require.IsType(t, &proof.Unresolved{}, p)
	assert.Equal(t, crypto.SHA256([]byte("hello")), p.Hash())

	// existing proofs are kept unless overwrite is set
	_, err = s.stamp(context.Background(), path, &stampParams{})
	require.Error(t, err)

	_, err = s.stamp(context.Background(), path, &stampParams{overwrite: true})
	require.NoError(t, err)
}

func TestStamper_StampAndWait(t *testing.T) {
	t.Parallel()

	srv, agg := newTestServer(t)
	path := writeFile(t, "hello")
	s := newStamper(hclog.NewNullLogger(), srv.Client(), []string{srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		for agg.Size() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}

		_, _ = agg.Cycle(ctx)
	}()

	entry, err := s.stamp(ctx, path, &stampParams{
		wait:         true,
		pollInterval: 10 * time.Millisecond,
		timeout:      5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, statusAffixed, entry.Status)
	assert.Empty(t, entry.Remote)

	data, err := os.ReadFile(entry.Proof)
	require.NoError(t, err)

	p, err := proof.Parse(data)
	require.NoError(t, err)
	require.IsType(t, &proof.Affixed{}, p)
}

func TestStamper_SubmitAll(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(broken.Close)

	h := crypto.SHA256([]byte("hello"))

	s := newStamper(hclog.NewNullLogger(), http.DefaultClient, []string{broken.URL, srv.URL})

	proofs, err := s.submitAll(context.Background(), h)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Equal(t, srv.URL+"/proof/"+hex.EncodeToString(h), proofs[0].Remote())

	s = newStamper(hclog.NewNullLogger(), http.DefaultClient, []string{broken.URL})

	_, err = s.submitAll(context.Background(), h)
	require.ErrorContains(t, err, "503")
}

func TestStamper_AwaitFailsOnFetchError(t *testing.T) {
	t.Parallel()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(remote.Close)

	p, err := proof.NewUnresolved(crypto.SHA256([]byte("hello")), remote.URL+"/proof/00")
	require.NoError(t, err)

	s := newStamper(hclog.NewNullLogger(), remote.Client(), nil)

	_, err = s.await(context.Background(), []*proof.Unresolved{p}, time.Millisecond, time.Second)
	require.ErrorIs(t, err, proof.ErrFetchFailed)
}

func TestStamper_AwaitTimesOut(t *testing.T) {
	t.Parallel()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(remote.Close)

	p, err := proof.NewUnresolved(crypto.SHA256([]byte("hello")), remote.URL+"/proof/00")
	require.NoError(t, err)

	s := newStamper(hclog.NewNullLogger(), remote.Client(), nil)

	_, err = s.await(context.Background(), []*proof.Unresolved{p}, 5*time.Millisecond, 50*time.Millisecond)
	require.ErrorIs(t, err, proof.ErrRemotePending)
}
