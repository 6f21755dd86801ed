package proof

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzstamp/tzstamp/chain"
)

func newRemote(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestUnresolved_Resolve(t *testing.T) {
	t.Parallel()

	leaf, err := NewUnaffixed([]byte("leaf"), NewBlake2b256())
	require.NoError(t, err)

	segment, err := NewAffixed(leaf.Derivation(), chain.MainnetID, testTimestamp, NewJoin([]byte{0x01}, nil), NewBlake2b256())
	require.NoError(t, err)

	body, err := Marshal(segment)
	require.NoError(t, err)

	srv := newRemote(t, http.StatusOK, body)

	u, err := NewUnresolved(leaf.Hash(), srv.URL+"/proof/abc", leaf.Operations()...)
	require.NoError(t, err)

	resolved, err := u.Resolve(contextForTest(t), srv.Client())
	require.NoError(t, err)
	require.IsType(t, &Affixed{}, resolved)

	assert.Equal(t, leaf.Hash(), resolved.Hash())
	assert.Equal(t, segment.Derivation(), resolved.Derivation())
	assert.Len(t, resolved.Operations(), 4)
}

func TestUnresolved_ResolveStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		err    error
	}{
		{http.StatusNotFound, ErrRemoteNotFound},
		{http.StatusAccepted, ErrRemotePending},
		{http.StatusInternalServerError, ErrFetchFailed},
	}

	for _, c := range cases {
		srv := newRemote(t, c.status, nil)

		u, err := NewUnresolved([]byte{1}, srv.URL+"/proof/01")
		require.NoError(t, err)

		_, err = u.Resolve(contextForTest(t), srv.Client())
		require.ErrorIs(t, err, c.err)

		var fetchErr *FetchError

		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, c.status, fetchErr.StatusCode)
		assert.Equal(t, srv.URL+"/proof/01", fetchErr.URL)
	}
}

func TestUnresolved_ResolveInvalidBody(t *testing.T) {
	t.Parallel()

	srv := newRemote(t, http.StatusOK, []byte(`{"version":1,"hash":"01","operations":[{"type":"md5"}]}`))

	u, err := NewUnresolved([]byte{1}, srv.URL)
	require.NoError(t, err)

	_, err = u.Resolve(contextForTest(t), srv.Client())
	require.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.False(t, errors.Is(err, ErrFetchFailed))
}

func TestUnresolved_ResolveMismatch(t *testing.T) {
	t.Parallel()

	segment, err := NewUnaffixed([]byte("elsewhere"), NewSHA256())
	require.NoError(t, err)

	body, err := Marshal(segment)
	require.NoError(t, err)

	srv := newRemote(t, http.StatusOK, body)

	u, err := NewUnresolved([]byte("here"), srv.URL)
	require.NoError(t, err)

	_, err = u.Resolve(contextForTest(t), srv.Client())
	require.ErrorIs(t, err, ErrMismatchedHash)
}

func TestUnresolved_ResolveTransportError(t *testing.T) {
	t.Parallel()

	srv := newRemote(t, http.StatusOK, nil)
	remote := srv.URL
	srv.Close()

	u, err := NewUnresolved([]byte{1}, remote)
	require.NoError(t, err)

	_, err = u.Resolve(contextForTest(t), nil)
	require.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *FetchError

	assert.False(t, errors.As(err, &fetchErr))
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	leaf, err := NewUnaffixed([]byte("leaf"), NewBlake2b256())
	require.NoError(t, err)

	final, err := NewAffixed(leaf.Derivation(), chain.MainnetID, testTimestamp, NewSHA256())
	require.NoError(t, err)

	finalBody, err := Marshal(final)
	require.NoError(t, err)

	second := newRemote(t, http.StatusOK, finalBody)

	hop, err := NewUnresolved(leaf.Derivation(), second.URL)
	require.NoError(t, err)

	hopBody, err := Marshal(hop)
	require.NoError(t, err)

	first := newRemote(t, http.StatusOK, hopBody)

	start, err := NewUnresolved(leaf.Hash(), first.URL, leaf.Operations()...)
	require.NoError(t, err)

	resolved, err := ResolveAll(contextForTest(t), nil, start)
	require.NoError(t, err)
	require.IsType(t, &Affixed{}, resolved)
	assert.Equal(t, final.Derivation(), resolved.Derivation())

	// proofs that are not unresolved are returned as is
	same, err := ResolveAll(contextForTest(t), nil, leaf)
	require.NoError(t, err)
	assert.True(t, Equal(leaf, same))
}
