package merkle

import (
	"bytes"

	"github.com/tzstamp/tzstamp/proof"
)

// Relation is the side on which a sibling is joined to the running hash
type Relation int

const (
	// Left siblings are prepended
	Left Relation = iota
	// Right siblings are appended
	Right
)

func (r Relation) String() string {
	switch r {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Sibling is a node joined with the running hash at one height of a path
type Sibling struct {
	Hash     []byte
	Relation Relation
}

// Path is a snapshot of the siblings from a leaf to the root.
// It does not change when the tree grows afterwards.
type Path struct {
	Block    []byte
	Leaf     []byte
	Siblings []Sibling
	Root     []byte
}

// Verify folds the leaf through the siblings and compares the result with the root
func (p *Path) Verify() bool {
	node := p.Leaf

	for _, sibling := range p.Siblings {
		if sibling.Relation == Left {
			node = hashPair(sibling.Hash, node)
		} else {
			node = hashPair(node, sibling.Hash)
		}
	}

	return bytes.Equal(node, p.Root)
}

// Proof converts the path into a proof whose input is the block and whose
// derivation is the root
func (p *Path) Proof() (*proof.Unaffixed, error) {
	ops := make([]proof.Operation, 0, 1+2*len(p.Siblings))
	ops = append(ops, proof.NewBlake2b256())

	for _, sibling := range p.Siblings {
		if sibling.Relation == Left {
			ops = append(ops, proof.NewJoin(sibling.Hash, nil))
		} else {
			ops = append(ops, proof.NewJoin(nil, sibling.Hash))
		}

		ops = append(ops, proof.NewBlake2b256())
	}

	return proof.NewUnaffixed(p.Block, ops...)
}
