package devchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"

	"github.com/tzstamp/tzstamp/chain"
	"github.com/tzstamp/tzstamp/crypto"
	"github.com/tzstamp/tzstamp/helper/hex"
	merkle "github.com/tzstamp/tzstamp/merkle-tree"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/rpc"
)

const (
	// validationPasses is the number of operation lists in a block
	validationPasses = 4

	// anchorPass is the validation pass carrying anchoring operations
	anchorPass = 3

	levelLength     = 8
	timestampLength = 8
)

var (
	ErrEmptyRoot = errors.New("cannot publish an empty root")
	ErrClosed    = errors.New("dev chain is closed")
)

// DefaultNetwork derives the dev chain network identifier
func DefaultNetwork() string {
	id, _ := chain.EncodeNetwork(crypto.Blake2b256([]byte("tzstamp dev chain"))[:chain.ChainIDEncoding.PayloadLength])

	return id
}

// Block is a block produced by the dev chain
type Block struct {
	Hash           []byte
	Level          int64
	Predecessor    []byte
	Timestamp      time.Time
	OperationsHash []byte
	Raw            []byte
}

// Header returns the node representation of the block header
func (b *Block) Header(network string) *rpc.BlockHeader {
	return &rpc.BlockHeader{
		Hash:           chain.EncodeBlockHash(b.Hash),
		ChainID:        network,
		Level:          b.Level,
		Predecessor:    chain.EncodeBlockHash(b.Predecessor),
		Timestamp:      b.Timestamp,
		OperationsHash: chain.OperationsHashEncoding.Encode(b.OperationsHash),
	}
}

// Chain is an in-process chain that bakes one block per published root.
// Block headers are framed as level | predecessor | timestamp | operations hash.
type Chain struct {
	logger  hclog.Logger
	clock   clock.Clock
	network string

	lock   sync.RWMutex
	blocks []*Block
	byHash map[string]*Block
	closed bool
}

// Option configures a Chain
type Option func(*Chain)

// WithClock sets the clock used for block timestamps
func WithClock(c clock.Clock) Option {
	return func(ch *Chain) {
		ch.clock = c
	}
}

// WithNetwork sets the network identifier
func WithNetwork(network string) Option {
	return func(ch *Chain) {
		ch.network = network
	}
}

// New creates a dev chain holding a genesis block
func New(logger hclog.Logger, opts ...Option) (*Chain, error) {
	c := &Chain{
		logger:  logger.Named("devchain"),
		clock:   clock.New(),
		network: DefaultNetwork(),
		byHash:  make(map[string]*Block),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := chain.ValidateNetwork(c.network); err != nil {
		return nil, err
	}

	c.bake(make([]byte, crypto.DefaultDigestLength), crypto.Blake2b256(nil))

	return c, nil
}

// Network returns the network identifier
func (c *Chain) Network() string {
	return c.network
}

// Head returns the latest block
func (c *Chain) Head() *Block {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.blocks[len(c.blocks)-1]
}

// Height returns the level of the latest block
func (c *Chain) Height() int64 {
	return c.Head().Level
}

// Publish includes root in a new block and returns the proof from root to
// the block hash
func (c *Chain) Publish(ctx context.Context, root []byte) (*proof.Affixed, error) {
	if len(root) == 0 {
		return nil, ErrEmptyRoot
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	head := c.blocks[len(c.blocks)-1]

	// the anchoring operation is branched on the head
	anchor, err := proof.NewUnaffixed(root, proof.NewJoin(head.Hash, nil))
	if err != nil {
		return nil, err
	}

	passes := make([]*merkle.Tree, validationPasses)
	for i := range passes {
		passes[i] = merkle.NewTree()
	}

	passes[anchorPass].Append(anchor.Derivation())

	lists := merkle.NewTree()
	for _, pass := range passes {
		lists.Append(pass.Root())
	}

	opPath, err := passes[anchorPass].Path(0)
	if err != nil {
		return nil, err
	}

	listPath, err := lists.Path(anchorPass)
	if err != nil {
		return nil, err
	}

	block := c.bake(head.Hash, lists.Root())

	prefix, suffix := frame(block)

	header, err := proof.NewAffixed(
		block.OperationsHash,
		c.network,
		block.Timestamp,
		proof.NewJoin(prefix, suffix),
		proof.NewBlake2b256(),
	)
	if err != nil {
		return nil, err
	}

	p, err := chainProofs(anchor, opPath, listPath, header)
	if err != nil {
		return nil, err
	}

	c.logger.Info("baked block",
		"level", block.Level,
		"hash", chain.EncodeBlockHash(block.Hash),
		"root", hex.EncodeToHex(root),
	)

	return p, nil
}

func chainProofs(anchor *proof.Unaffixed, opPath, listPath *merkle.Path, header *proof.Affixed) (*proof.Affixed, error) {
	opProof, err := opPath.Proof()
	if err != nil {
		return nil, err
	}

	listProof, err := listPath.Proof()
	if err != nil {
		return nil, err
	}

	var p proof.Proof = anchor

	for _, next := range []proof.Proof{opProof, listProof, header} {
		if p, err = p.Concat(next); err != nil {
			return nil, err
		}
	}

	affixed, ok := p.(*proof.Affixed)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", p)
	}

	return affixed, nil
}

// bake appends a block to the chain. The caller holds the write lock, except in New.
func (c *Chain) bake(predecessor, operationsHash []byte) *Block {
	ts := c.clock.Now().UTC().Truncate(time.Second)

	var level int64

	if len(c.blocks) > 0 {
		head := c.blocks[len(c.blocks)-1]
		level = head.Level + 1

		if !ts.After(head.Timestamp) {
			ts = head.Timestamp.Add(time.Second)
		}
	}

	block := &Block{
		Level:          level,
		Predecessor:    predecessor,
		Timestamp:      ts,
		OperationsHash: operationsHash,
	}

	prefix, suffix := frame(block)

	block.Raw = make([]byte, 0, len(prefix)+len(operationsHash)+len(suffix))
	block.Raw = append(block.Raw, prefix...)
	block.Raw = append(block.Raw, operationsHash...)
	block.Raw = append(block.Raw, suffix...)
	block.Hash = crypto.Blake2b256(block.Raw)

	c.blocks = append(c.blocks, block)
	c.byHash[string(block.Hash)] = block

	return block
}

// frame returns the header bytes surrounding the operations hash
func frame(block *Block) ([]byte, []byte) {
	prefix := make([]byte, levelLength, levelLength+len(block.Predecessor)+timestampLength)
	binary.BigEndian.PutUint64(prefix, uint64(block.Level))

	prefix = append(prefix, block.Predecessor...)
	prefix = binary.BigEndian.AppendUint64(prefix, uint64(block.Timestamp.Unix()))

	// no fitness or signature on the dev chain
	return prefix, nil
}

func (c *Chain) block(network, blockHash string) (*Block, error) {
	if network != c.network && network != "main" {
		return nil, fmt.Errorf("%w: unknown network %s", rpc.ErrBlockNotFound, network)
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	if blockHash == "head" {
		return c.blocks[len(c.blocks)-1], nil
	}

	raw, err := chain.DecodeBlockHash(blockHash)
	if err != nil {
		return nil, err
	}

	block, ok := c.byHash[string(raw)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rpc.ErrBlockNotFound, blockHash)
	}

	return block, nil
}

// GetBlockHeader returns the header of a baked block
func (c *Chain) GetBlockHeader(_ context.Context, network, blockHash string) (*rpc.BlockHeader, error) {
	block, err := c.block(network, blockHash)
	if err != nil {
		return nil, err
	}

	return block.Header(c.network), nil
}

// GetRawBlockHeader returns the framed header bytes of a baked block
func (c *Chain) GetRawBlockHeader(_ context.Context, network, blockHash string) ([]byte, error) {
	block, err := c.block(network, blockHash)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), block.Raw...), nil
}

// Close stops the chain from accepting new roots
func (c *Chain) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.closed = true

	return nil
}
