package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzstamp/tzstamp/crypto"
)

func TestValidateNetwork_KnownNetworks(t *testing.T) {
	t.Parallel()

	for id := range KnownNetworks {
		require.NoError(t, ValidateNetwork(id), id)
	}
}

func TestValidateNetwork_Invalid(t *testing.T) {
	t.Parallel()

	blockHash := EncodeBlockHash(crypto.Blake2b256([]byte("block")))

	for _, id := range []string{"", "garbage", "NetXdQprcVkpaWV", blockHash} {
		err := ValidateNetwork(id)
		require.ErrorIs(t, err, ErrInvalidNetwork, id)
	}
}

func TestIsMainnet(t *testing.T) {
	t.Parallel()

	assert.True(t, IsMainnet(MainnetID))
	assert.False(t, IsMainnet(GhostnetID))
}

func TestEncodeNetwork(t *testing.T) {
	t.Parallel()

	id, err := EncodeNetwork([]byte{0x7a, 0x06, 0xa7, 0x70})
	require.NoError(t, err)
	assert.Equal(t, MainnetID, id)

	custom, err := EncodeNetwork([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, ValidateNetwork(custom))
	assert.Equal(t, "custom network "+custom, NetworkName(custom))

	_, err = EncodeNetwork([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestBlockHash_RoundTrip(t *testing.T) {
	t.Parallel()

	raw := crypto.Blake2b256([]byte("header"))

	encoded := EncodeBlockHash(raw)
	assert.Equal(t, byte('B'), encoded[0])
	assert.Len(t, encoded, 51)

	decoded, err := DecodeBlockHash(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	_, err = DecodeBlockHash(MainnetID)
	require.ErrorIs(t, err, ErrInvalidBlockHash)
}
