package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/crypto"
	"github.com/tzstamp/tzstamp/devchain"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
)

func TestNewInspectResult(t *testing.T) {
	t.Parallel()

	h := crypto.SHA256([]byte("hello"))

	unresolved, err := proof.NewUnresolved(h, "https://a.example/proof/00", proof.NewBlake2b256())
	require.NoError(t, err)

	result := newInspectResult("hello.proof.json", unresolved)
	assert.Equal(t, "unresolved", result.State)
	assert.Equal(t, "https://a.example/proof/00", result.Remote)
	assert.Equal(t, hex.EncodeToString(h), result.Hash)
	assert.Equal(t, hex.EncodeToString(crypto.Blake2b256(h)), result.Derivation)
	assert.Equal(t, []string{"BLAKE2b hash, 32-byte digest"}, result.Operations)

	output := result.GetOutput()
	assert.Contains(t, output, "[OPERATIONS]")
	assert.Contains(t, output, "https://a.example/proof/00")

	dev, err := devchain.New(hclog.NewNullLogger())
	require.NoError(t, err)

	affixed, err := dev.Publish(context.Background(), h)
	require.NoError(t, err)

	result = newInspectResult("hello.proof.json", affixed)
	assert.Equal(t, "affixed", result.State)
	assert.Equal(t, dev.Network(), result.Network)
	assert.False(t, result.Mainnet)
	assert.Equal(t, affixed.BlockHash(), result.BlockHash)
	assert.Len(t, result.Operations, len(affixed.Operations()))
}

func TestInspectCommand_JSON(t *testing.T) {
	h := crypto.SHA256([]byte("hello"))

	p, err := proof.NewUnaffixed(h, proof.NewSHA256())
	require.NoError(t, err)

	data, err := proof.Marshal(p)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hello.proof.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cmd := GetCommand()
	helper.RegisterJSONOutputFlag(cmd)

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--json"})
	require.NoError(t, cmd.Execute())

	var result InspectResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))

	assert.Equal(t, "unaffixed", result.State)
	assert.Equal(t, hex.EncodeToString(crypto.SHA256(h)), result.Derivation)
	assert.Equal(t, []string{"SHA-256 hash"}, result.Operations)
}
