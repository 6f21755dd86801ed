package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"

	"github.com/tzstamp/tzstamp/helper/hex"
	merkle "github.com/tzstamp/tzstamp/merkle-tree"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/storage"
)

const aggregatorMetrics = "aggregator"

var ErrEmptyHash = errors.New("empty hash")

// Publisher anchors a root on a chain and returns the proof from the root to the block
type Publisher interface {
	Publish(ctx context.Context, root []byte) (*proof.Affixed, error)
}

// Aggregator batches submitted hashes into a Merkle tree. On every cycle the
// tree is frozen and swapped for an empty one, each leaf gets an unresolved
// proof pointing at the root proof, and the root is published.
type Aggregator struct {
	logger    hclog.Logger
	clock     clock.Clock
	publisher Publisher
	store     storage.Store
	config    *Config

	// lock guards tree and pending
	lock    sync.Mutex
	tree    *merkle.Tree
	pending map[string]struct{}

	// cycleLock serializes cycles
	cycleLock sync.Mutex
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock sets the clock driving aggregation epochs
func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) {
		a.clock = c
	}
}

// NewAggregator creates an aggregator publishing through publisher and
// storing proofs in store
func NewAggregator(
	logger hclog.Logger,
	config *Config,
	publisher Publisher,
	store storage.Store,
	opts ...Option,
) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Aggregator{
		logger:    logger.Named("aggregator"),
		clock:     clock.New(),
		publisher: publisher,
		store:     store,
		config:    config,
		pending:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.tree = a.newTree()

	return a, nil
}

func (a *Aggregator) newTree() *merkle.Tree {
	if a.config.Deduplicate {
		return merkle.NewTree(merkle.WithDeduplication())
	}

	return merkle.NewTree()
}

// ProofURL returns the url at which the proof for id is served
func (a *Aggregator) ProofURL(id string) string {
	return strings.TrimSuffix(a.config.BaseURL, "/") + "/proof/" + id
}

// Interval returns the aggregation interval
func (a *Aggregator) Interval() time.Duration {
	return a.config.Interval
}

// Submit adds hash to the current tree and returns its proof id
func (a *Aggregator) Submit(hash []byte) (string, error) {
	if len(hash) == 0 {
		return "", ErrEmptyHash
	}

	id := hex.EncodeToString(hash)

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.tree.Deduplicating() && a.tree.Has(hash) {
		metrics.IncrCounter([]string{aggregatorMetrics, "deduplicated"}, 1)

		return id, nil
	}

	a.tree.Append(hash)
	a.pending[id] = struct{}{}

	metrics.IncrCounter([]string{aggregatorMetrics, "submitted"}, 1)
	metrics.SetGauge([]string{aggregatorMetrics, "leaves"}, float32(a.tree.Size()))

	return id, nil
}

// Pending reports whether id is waiting for a cycle or being published
func (a *Aggregator) Pending(id string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	_, ok := a.pending[id]

	return ok
}

// Size returns the number of leaves in the current tree
func (a *Aggregator) Size() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.tree.Size()
}

// swap freezes the current tree and replaces it with an empty one
func (a *Aggregator) swap() *merkle.Tree {
	a.lock.Lock()
	defer a.lock.Unlock()

	frozen := a.tree
	if frozen.Size() == 0 {
		return nil
	}

	a.tree = a.newTree()
	a.pending[hex.EncodeToString(frozen.Root())] = struct{}{}

	metrics.SetGauge([]string{aggregatorMetrics, "leaves"}, 0)

	return frozen
}

func (a *Aggregator) release(ids ...string) {
	a.lock.Lock()
	defer a.lock.Unlock()

	for _, id := range ids {
		delete(a.pending, id)
	}
}

// requeue appends the blocks of a frozen tree to the current tree
func (a *Aggregator) requeue(frozen *merkle.Tree) {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i := 0; i < frozen.Size(); i++ {
		block, err := frozen.Block(i)
		if err != nil {
			continue
		}

		if a.tree.Deduplicating() && a.tree.Has(block) {
			continue
		}

		a.tree.Append(block)
		a.pending[hex.EncodeToString(block)] = struct{}{}
	}
}

// Cycle freezes the current tree, stores an unresolved proof for every
// leaf and publishes the root. It returns nil when there was nothing to
// publish. If publishing fails the leaves are queued for the next cycle.
func (a *Aggregator) Cycle(ctx context.Context) (*storage.Batch, error) {
	a.cycleLock.Lock()
	defer a.cycleLock.Unlock()

	frozen := a.swap()
	if frozen == nil {
		return nil, nil
	}

	root := frozen.Root()
	rootID := hex.EncodeToString(root)

	defer a.release(rootID)

	metrics.IncrCounter([]string{aggregatorMetrics, "cycled"}, 1)

	a.logger.Info("cycling tree", "root", rootID, "leaves", frozen.Size())

	leafIDs, err := a.storeLeafProofs(frozen, root)
	if err != nil {
		a.requeue(frozen)

		return nil, err
	}

	a.release(leafIDs...)

	batch := &storage.Batch{
		Root:    rootID,
		Leaves:  frozen.Size(),
		Created: a.clock.Now().UTC(),
	}

	affixed, err := a.publish(ctx, root)
	if err != nil {
		metrics.IncrCounter([]string{aggregatorMetrics, "publish", "failed"}, 1)
		a.logger.Error("failed to publish root", "root", rootID, "err", err)

		a.requeue(frozen)

		// the stored leaf proofs point at a root that will never resolve
		if deleteErr := a.store.DeleteProofs(leafIDs...); deleteErr != nil {
			a.logger.Error("failed to delete stale leaf proofs", "root", rootID, "err", deleteErr)
		}

		batch.Status = storage.BatchFailed
		batch.Error = err.Error()

		if storeErr := a.store.PutBatch(batch); storeErr != nil {
			a.logger.Error("failed to store batch", "root", rootID, "err", storeErr)
		}

		return batch, fmt.Errorf("failed to publish root %s: %w", rootID, err)
	}

	if err := a.store.PutProof(rootID, affixed); err != nil {
		return nil, fmt.Errorf("failed to store root proof %s: %w", rootID, err)
	}

	batch.Status = storage.BatchPublished
	batch.Network = affixed.Network()
	batch.BlockHash = affixed.BlockHash()

	if err := a.store.PutBatch(batch); err != nil {
		return nil, fmt.Errorf("failed to store batch for root %s: %w", rootID, err)
	}

	a.logger.Info("published root",
		"root", rootID,
		"network", affixed.Network(),
		"block", affixed.BlockHash(),
		"batch", batch.ID,
	)

	return batch, nil
}

func (a *Aggregator) storeLeafProofs(frozen *merkle.Tree, root []byte) ([]string, error) {
	rest, err := proof.NewUnresolved(root, a.ProofURL(hex.EncodeToString(root)))
	if err != nil {
		return nil, err
	}

	paths := frozen.Paths()
	proofs := make(map[string]proof.Proof, frozen.Size())
	ids := make([]string, 0, frozen.Size())

	for path, ok := paths.Next(); ok; path, ok = paths.Next() {
		leaf, err := path.Proof()
		if err != nil {
			return nil, err
		}

		p, err := leaf.Concat(rest)
		if err != nil {
			return nil, err
		}

		id := hex.EncodeToString(path.Block)
		proofs[id] = p
		ids = append(ids, id)
	}

	if err := a.store.PutProofs(proofs); err != nil {
		return nil, fmt.Errorf("failed to store leaf proofs: %w", err)
	}

	return ids, nil
}

func (a *Aggregator) publish(ctx context.Context, root []byte) (*proof.Affixed, error) {
	defer metrics.MeasureSince([]string{aggregatorMetrics, "publish", "duration"}, time.Now())

	backoff := retry.WithMaxRetries(
		a.config.PublishRetries,
		retry.WithCappedDuration(a.config.Interval, retry.NewExponential(a.config.RetryDelay)),
	)

	var affixed *proof.Affixed

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := a.publisher.Publish(ctx, root)
		if err != nil {
			a.logger.Warn("publish attempt failed", "err", err)

			return retry.RetryableError(err)
		}

		affixed = p

		return nil
	})

	return affixed, err
}

// Start cycles the tree every interval until ctx is done
func (a *Aggregator) Start(ctx context.Context) error {
	ticker := a.clock.Ticker(a.config.Interval)
	defer ticker.Stop()

	a.logger.Info("aggregator started", "interval", a.config.Interval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregator stopped")

			return nil
		case <-ticker.C:
			if _, err := a.Cycle(ctx); err != nil {
				a.logger.Error("cycle failed", "err", err)
			}
		}
	}
}
