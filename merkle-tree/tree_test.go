package merkle

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tzstamp/tzstamp/crypto"
)

// referenceRoot pads the leaves to the next power of two with copies of the
// last leaf and reduces the complete tree
func referenceRoot(blocks [][]byte) []byte {
	if len(blocks) == 0 {
		return crypto.Blake2b256(nil)
	}

	layer := make([][]byte, 0, len(blocks))
	for _, block := range blocks {
		layer = append(layer, crypto.Blake2b256(block))
	}

	size := 1
	for size < len(layer) {
		size *= 2
	}

	for len(layer) < size {
		layer = append(layer, layer[len(layer)-1])
	}

	for len(layer) > 1 {
		next := make([][]byte, 0, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next = append(next, crypto.Blake2b256(layer[i], layer[i+1]))
		}

		layer = next
	}

	return layer[0]
}

func numberedBlocks(n int) [][]byte {
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = []byte(fmt.Sprintf("block-%d", i))
	}

	return blocks
}

func TestTree_EmptyRoot(t *testing.T) {
	t.Parallel()

	tree := NewTree()

	assert.Equal(t, 0, tree.Size())
	assert.Equal(t, crypto.Blake2b256([]byte{}), tree.Root())
}

func TestTree_SingleLeaf(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Append([]byte("only"))

	assert.Equal(t, crypto.Blake2b256([]byte("only")), tree.Root())

	path, err := tree.Path(0)
	require.NoError(t, err)
	assert.Empty(t, path.Siblings)
	assert.True(t, path.Verify())
}

func TestTree_MatchesReference(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 70; n++ {
		blocks := numberedBlocks(n)

		tree := NewTree()
		tree.Append(blocks...)

		require.Equal(t, referenceRoot(blocks), tree.Root(), "leaves: %d", n)
	}
}

func TestTree_TailDuplication(t *testing.T) {
	t.Parallel()

	for k := 0; k <= 6; k++ {
		n := (1 << k) + 1
		blocks := numberedBlocks(n)

		tree := NewTree()
		tree.Append(blocks...)

		// manually duplicate the last block up to the next power of two
		padded := append([][]byte{}, blocks...)
		for len(padded) < 1<<(k+1) {
			padded = append(padded, blocks[n-1])
		}

		complete := NewTree()
		complete.Append(padded...)

		require.Equal(t, complete.Root(), tree.Root(), "leaves: %d", n)
	}
}

func TestTree_Deduplication(t *testing.T) {
	t.Parallel()

	block := []byte("same")

	dedup := NewTree(WithDeduplication())
	dedup.Append(block, block)

	assert.True(t, dedup.Deduplicating())
	assert.Equal(t, 1, dedup.Size())
	assert.True(t, dedup.Has(block))

	plain := NewTree()
	plain.Append(block)
	plain.Append(block)

	require.Equal(t, 2, plain.Size())
	assert.True(t, plain.Has(block))
	assert.False(t, plain.Has([]byte("other")))

	first, err := plain.Path(0)
	require.NoError(t, err)

	second, err := plain.Path(1)
	require.NoError(t, err)

	assert.Equal(t, first.Leaf, second.Leaf)
	assert.Equal(t, Right, first.Siblings[0].Relation)
	assert.Equal(t, Left, second.Siblings[0].Relation)
	assert.True(t, first.Verify())
	assert.True(t, second.Verify())
}

func TestTree_PathOutOfRange(t *testing.T) {
	t.Parallel()

	tree := NewTree()

	_, err := tree.Path(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	tree.Append(numberedBlocks(3)...)

	for _, index := range []int{-1, 3, 100} {
		_, err := tree.Path(index)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
	}

	_, err = tree.Block(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = tree.Leaf(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTree_PathIsSnapshot(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Append(numberedBlocks(5)...)

	path, err := tree.Path(4)
	require.NoError(t, err)

	root := append([]byte{}, path.Root...)
	siblings := len(path.Siblings)

	tree.Append(numberedBlocks(20)...)

	assert.Equal(t, root, path.Root)
	assert.Len(t, path.Siblings, siblings)
	assert.True(t, path.Verify())
	assert.NotEqual(t, root, tree.Root())
}

func TestTree_Paths(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Append(numberedBlocks(11)...)

	root := tree.Root()
	it := tree.Paths()

	// appends after the call are not part of the iteration
	tree.Append([]byte("late"))
	require.NotEqual(t, root, tree.Root())

	paths := it.Collect()
	require.Len(t, paths, 11)

	for i, path := range paths {
		block, err := tree.Block(i)
		require.NoError(t, err)
		assert.Equal(t, block, path.Block)

		// paths keep the root of the moment Paths was called
		assert.Equal(t, root, path.Root)
		assert.True(t, path.Verify())

		p, err := path.Proof()
		require.NoError(t, err)
		assert.Equal(t, root, p.Derivation())
	}

	_, ok := it.Next()
	assert.False(t, ok)

	assert.Len(t, tree.Paths().Collect(), 12)
}

func TestPath_Proof(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Append(numberedBlocks(7)...)

	for it := tree.Paths(); ; {
		path, ok := it.Next()
		if !ok {
			break
		}

		p, err := path.Proof()
		require.NoError(t, err)
		assert.Equal(t, path.Block, p.Hash())
		assert.Equal(t, tree.Root(), p.Derivation())
		assert.Len(t, p.Operations(), 1+2*len(path.Siblings))
	}
}

func TestTree_BatchingDeterminism(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		blocks := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 16), 0, 64).Draw(rt, "blocks")
		split := rapid.IntRange(0, len(blocks)).Draw(rt, "split")

		oneByOne := NewTree()
		for _, block := range blocks {
			oneByOne.Append(block)
		}

		batched := NewTree()
		batched.Append(blocks[:split]...)
		batched.Append(blocks[split:]...)

		require.Equal(rt, oneByOne.Root(), batched.Root())
		require.Equal(rt, referenceRoot(blocks), batched.Root())
		require.Equal(rt, oneByOne.Paths().Collect(), batched.Paths().Collect())
	})
}

func TestTree_PathSoundness(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(rt, "leaves")

		tree := NewTree()
		for i := 0; i < n; i++ {
			tree.Append(binary.BigEndian.AppendUint32(nil, uint32(i)))
		}

		index := rapid.IntRange(0, n-1).Draw(rt, "index")

		path, err := tree.Path(index)
		require.NoError(rt, err)
		require.True(rt, path.Verify())
		require.Equal(rt, tree.Root(), path.Root)
	})
}
