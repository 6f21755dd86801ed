package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzstamp/tzstamp/chain"
	"github.com/tzstamp/tzstamp/proof"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	s, err := NewBoltStore(filepath.Join(t.TempDir(), "proofs.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func TestBoltStore_Proofs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	unresolved, err := proof.NewUnresolved([]byte{1}, "http://localhost:8000/proof/aa", proof.NewBlake2b256())
	require.NoError(t, err)

	affixed, err := proof.NewAffixed([]byte{2}, chain.MainnetID, time.Unix(1600000000, 0), proof.NewSHA256())
	require.NoError(t, err)

	require.NoError(t, s.PutProofs(map[string]proof.Proof{"01": unresolved}))
	require.NoError(t, s.PutProof("aa", affixed))

	got, err := s.GetProof("01")
	require.NoError(t, err)
	assert.True(t, proof.Equal(unresolved, got))

	got, err = s.GetProof("aa")
	require.NoError(t, err)
	assert.True(t, proof.Equal(affixed, got))

	_, err = s.GetProof("ff")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProofs("01", "ff"))

	_, err = s.GetProof("01")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetProof("aa")
	require.NoError(t, err)
}

func TestBoltStore_PutProofsPartialFailure(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	p, err := proof.NewUnaffixed([]byte{1})
	require.NoError(t, err)

	err = s.PutProofs(map[string]proof.Proof{"": p, "01": p})
	require.Error(t, err)

	var merr *multierror.Error

	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 1)

	_, err = s.GetProof("01")
	require.NoError(t, err)
}

func TestBoltStore_Batches(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	first := &Batch{Root: "aa", Leaves: 3, Status: BatchPublished, Created: time.Unix(100, 0).UTC()}
	second := &Batch{Root: "bb", Leaves: 1, Status: BatchFailed, Error: "boom", Created: time.Unix(200, 0).UTC()}

	require.NoError(t, s.PutBatch(second))
	require.NoError(t, s.PutBatch(first))
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	got, err := s.GetBatch(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	all, err := s.Batches()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aa", all[0].Root)
	assert.Equal(t, "bb", all[1].Root)

	_, err = s.GetBatch("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proofs.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)

	p, err := proof.NewUnaffixed([]byte{7}, proof.NewSHA256())
	require.NoError(t, err)

	require.NoError(t, s.PutProof("07", p))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)

	defer s.Close()

	got, err := s.GetProof("07")
	require.NoError(t, err)
	assert.True(t, proof.Equal(p, got))
}
