package merkle

import (
	"errors"
	"fmt"

	"github.com/tzstamp/tzstamp/crypto"
)

var ErrIndexOutOfRange = errors.New("leaf index out of range")

// emptyRoot is the root of a tree without leaves
var emptyRoot = crypto.Blake2b256(nil)

// Tree is an append-only Merkle tree over opaque blocks.
//
// Leaves are BLAKE2b-256 hashes of the appended blocks and parents are
// BLAKE2b-256 hashes of the concatenated children. A layer with an odd
// number of nodes is completed with the last leaf duplicated up to the
// next power of two, so only the existing nodes are stored.
//
// Tree is not safe for concurrent use. Appends must not overlap with each
// other or with Path/Paths calls.
type Tree struct {
	// deduplicate skips blocks whose leaf hash is already present
	deduplicate bool
	// blocks are the appended blocks in insertion order
	blocks [][]byte
	// layers holds the existing nodes of each height, layers[0] being the leaves
	layers [][][]byte
	// leaves indexes the leaf hashes for membership checks
	leaves map[string]struct{}
}

// Option configures a Tree
type Option func(*Tree)

// WithDeduplication makes Append skip blocks that are already in the tree
func WithDeduplication() Option {
	return func(t *Tree) {
		t.deduplicate = true
	}
}

// NewTree creates an empty Merkle tree
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		leaves: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Size returns the number of leaves
func (t *Tree) Size() int {
	return len(t.blocks)
}

// Deduplicating reports whether the tree skips duplicate blocks
func (t *Tree) Deduplicating() bool {
	return t.deduplicate
}

// Append adds blocks to the tree in order. The tree takes ownership of the
// blocks, which must not be modified afterwards.
func (t *Tree) Append(blocks ...[]byte) {
	for _, block := range blocks {
		leaf := crypto.Blake2b256(block)
		key := string(leaf)

		if t.deduplicate {
			if _, ok := t.leaves[key]; ok {
				continue
			}
		}

		t.leaves[key] = struct{}{}
		t.blocks = append(t.blocks, block)
		t.appendLeaf(leaf)
	}
}

// appendLeaf pushes the leaf and recomputes its ancestors, O(log n)
func (t *Tree) appendLeaf(leaf []byte) {
	if len(t.layers) == 0 {
		t.layers = append(t.layers, nil)
	}

	t.layers[0] = append(t.layers[0], leaf)

	index := len(t.layers[0]) - 1
	tl := newTail(leaf)

	for height := 0; len(t.layers[height]) > 1; height++ {
		layer := t.layers[height]

		var parent []byte
		if index%2 == 1 {
			parent = hashPair(layer[index-1], layer[index])
		} else {
			parent = hashPair(layer[index], tl.at(height))
		}

		if height+1 == len(t.layers) {
			t.layers = append(t.layers, nil)
		}

		index /= 2
		t.setNode(height+1, index, parent)
	}
}

// setNode replaces or appends the node at the given position.
// index is always the last or the next position of the layer.
func (t *Tree) setNode(height, index int, node []byte) {
	if index == len(t.layers[height]) {
		t.layers[height] = append(t.layers[height], node)

		return
	}

	t.layers[height][index] = node
}

// Root returns the Merkle root. The root of an empty tree is the hash of an empty byte string.
func (t *Tree) Root() []byte {
	if len(t.layers) == 0 {
		return emptyRoot
	}

	return t.layers[len(t.layers)-1][0]
}

// Has reports whether block has been appended to the tree
func (t *Tree) Has(block []byte) bool {
	_, ok := t.leaves[string(crypto.Blake2b256(block))]

	return ok
}

// Block returns the block at the given leaf index
func (t *Tree) Block(index int) ([]byte, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}

	return t.blocks[index], nil
}

// Leaf returns the leaf hash at the given index
func (t *Tree) Leaf(index int) ([]byte, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}

	return t.layers[0][index], nil
}

// Path returns the path from the leaf at index to the root
func (t *Tree) Path(index int) (*Path, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}

	var (
		siblings = make([]Sibling, 0, len(t.layers)-1)
		last     = t.layers[0][len(t.layers[0])-1]
		tl       = newTail(last)
		i        = index
	)

	for height := 0; len(t.layers[height]) > 1; height++ {
		layer := t.layers[height]

		switch {
		case i%2 == 1:
			siblings = append(siblings, Sibling{Hash: layer[i-1], Relation: Left})
		case i+1 < len(layer):
			siblings = append(siblings, Sibling{Hash: layer[i+1], Relation: Right})
		default:
			siblings = append(siblings, Sibling{Hash: tl.at(height), Relation: Right})
		}

		i /= 2
	}

	return &Path{
		Block:    t.blocks[index],
		Leaf:     t.layers[0][index],
		Siblings: siblings,
		Root:     t.Root(),
	}, nil
}

// Paths returns an iterator over the paths of all leaves present at the
// time of the call. The paths are computed eagerly, so they keep the root of
// that moment even if the tree grows before they are read.
func (t *Tree) Paths() *PathIterator {
	paths := make([]*Path, 0, t.Size())

	for i := 0; i < t.Size(); i++ {
		path, err := t.Path(i)
		if err != nil {
			break
		}

		paths = append(paths, path)
	}

	return &PathIterator{paths: paths}
}

func (t *Tree) checkIndex(index int) error {
	if index < 0 || index >= len(t.blocks) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(t.blocks))
	}

	return nil
}

// PathIterator walks the leaf paths of a tree in leaf order
type PathIterator struct {
	paths []*Path
	next  int
}

// Next returns the next path, or false once all paths have been returned
func (it *PathIterator) Next() (*Path, bool) {
	if it.next >= len(it.paths) {
		return nil, false
	}

	path := it.paths[it.next]
	it.next++

	return path, true
}

// Collect drains the iterator into a slice
func (it *PathIterator) Collect() []*Path {
	paths := it.paths[it.next:]
	it.next = len(it.paths)

	return paths
}

// tail stands in for the missing right siblings of the last node of a layer:
// the last leaf duplicated up to the next power of two, hashed once per height
type tail struct {
	height int
	hash   []byte
}

func newTail(leaf []byte) *tail {
	return &tail{hash: leaf}
}

// at advances the tail lazily to the given height
func (t *tail) at(height int) []byte {
	for t.height < height {
		t.hash = hashPair(t.hash, t.hash)
		t.height++
	}

	return t.hash
}

func hashPair(left, right []byte) []byte {
	return crypto.Blake2b256(left, right)
}
