package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	bolt "go.etcd.io/bbolt"

	"github.com/tzstamp/tzstamp/proof"
)

// Store persists proofs by id and batch records by uuid
type Store interface {
	// PutProof stores p under id, replacing any previous proof
	PutProof(id string, p proof.Proof) error
	// PutProofs stores all proofs in a single transaction
	PutProofs(proofs map[string]proof.Proof) error
	// GetProof returns the proof stored under id, or ErrNotFound
	GetProof(id string) (proof.Proof, error)
	// DeleteProofs removes the proofs stored under ids. Missing ids are ignored.
	DeleteProofs(ids ...string) error
	// PutBatch stores a batch record, assigning it an id if it has none
	PutBatch(batch *Batch) error
	// GetBatch returns the batch with the given id, or ErrNotFound
	GetBatch(id string) (*Batch, error)
	// Batches returns all batch records ordered by creation time
	Batches() ([]*Batch, error)
	// Close releases the underlying database
	Close() error
}

var ErrNotFound = errors.New("not found")

var (
	proofsBucket  = []byte("proofs")
	batchesBucket = []byte("batches")

	allBuckets = [][]byte{proofsBucket, batchesBucket}
)

const (
	BatchPublished = "published"
	BatchFailed    = "failed"
)

// Batch records one aggregation cycle
type Batch struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	Leaves    int       `json:"leaves"`
	Status    string    `json:"status"`
	Network   string    `json:"network,omitempty"`
	BlockHash string    `json:"block_hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	Created   time.Time `json:"created"`
}

var _ Store = (*BoltStore)(nil)

// BoltStore is a Store backed by a bbolt database file
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the database at dbFilePath
func NewBoltStore(dbFilePath string) (*BoltStore, error) {
	s := &BoltStore{}

	if err := s.init(dbFilePath); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *BoltStore) init(dbFilePath string) (err error) {
	if s.db, err = bolt.Open(dbFilePath, 0600, &bolt.Options{Timeout: time.Second}); err != nil {
		return fmt.Errorf("failed to open proof store %s: %w", dbFilePath, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *BoltStore) PutProof(id string, p proof.Proof) error {
	return s.PutProofs(map[string]proof.Proof{id: p})
}

// PutProofs encodes every proof before writing. Proofs that fail to encode
// are reported together and the rest are still written.
func (s *BoltStore) PutProofs(proofs map[string]proof.Proof) error {
	var result *multierror.Error

	encoded := make(map[string][]byte, len(proofs))

	for id, p := range proofs {
		if id == "" {
			result = multierror.Append(result, errors.New("empty proof id"))

			continue
		}

		value, err := proof.Marshal(p)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("proof %s: %w", id, err))

			continue
		}

		encoded[id] = value
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(proofsBucket)

		for id, value := range encoded {
			if err := bucket.Put([]byte(id), value); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func (s *BoltStore) GetProof(id string) (result proof.Proof, err error) {
	if err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(proofsBucket).Get([]byte(id))
		if value == nil {
			return fmt.Errorf("proof %s: %w", id, ErrNotFound)
		}

		// value is only valid within the transaction
		result, err = proof.Parse(value)

		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *BoltStore) DeleteProofs(ids ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(proofsBucket)

		for _, id := range ids {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("proof %s: %w", id, err)
			}
		}

		return nil
	})
}

func (s *BoltStore) PutBatch(batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}

	if batch.Created.IsZero() {
		batch.Created = time.Now().UTC()
	}

	value, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(batchesBucket).Put([]byte(batch.ID), value)
	})
}

func (s *BoltStore) GetBatch(id string) (result *Batch, err error) {
	if err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(batchesBucket).Get([]byte(id))
		if value == nil {
			return fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}

		return json.Unmarshal(value, &result)
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *BoltStore) Batches() ([]*Batch, error) {
	var result []*Batch

	if err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(batchesBucket).ForEach(func(_, value []byte) error {
			batch := &Batch{}

			if err := json.Unmarshal(value, batch); err != nil {
				return err
			}

			result = append(result, batch)

			return nil
		})
	}); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Created.Before(result[j].Created)
	})

	return result, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
