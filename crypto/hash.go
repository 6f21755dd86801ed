package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

const (
	// DefaultDigestLength is the BLAKE2b digest length used for Merkle nodes and block hashes
	DefaultDigestLength = 32

	// MaxDigestLength is the largest BLAKE2b digest length
	MaxDigestLength = blake2b.Size

	// MaxKeyLength is the largest BLAKE2b key length
	MaxKeyLength = blake2b.Size

	// SHA256Length is the SHA-256 digest length
	SHA256Length = sha256.Size
)

var (
	ErrInvalidDigestLength = errors.New("invalid digest length")
	ErrInvalidKeyLength    = errors.New("invalid key length")
)

// blake2bPool is a pool of unkeyed 32-byte BLAKE2b hashers
var blake2bPool = sync.Pool{
	New: func() interface{} {
		h, _ := blake2b.New256(nil)

		return h
	},
}

// Blake2b256 hashes input with unkeyed BLAKE2b and a 32-byte digest
func Blake2b256(input ...[]byte) []byte {
	h, _ := blake2bPool.Get().(hash.Hash)
	defer func() {
		h.Reset()
		blake2bPool.Put(h)
	}()

	for _, in := range input {
		h.Write(in)
	}

	return h.Sum(nil)
}

// Blake2b hashes input with BLAKE2b using the given digest length and optional key.
// A zero length produces an empty digest.
func Blake2b(input, key []byte, length int) ([]byte, error) {
	if err := ValidateBlake2bParams(length, key); err != nil {
		return nil, err
	}

	if length == 0 {
		return []byte{}, nil
	}

	if length == DefaultDigestLength && len(key) == 0 {
		return Blake2b256(input), nil
	}

	h, err := blake2b.New(length, key)
	if err != nil {
		return nil, err
	}

	h.Write(input)

	return h.Sum(nil), nil
}

// ValidateBlake2bParams checks the digest length and key length bounds
func ValidateBlake2bParams(length int, key []byte) error {
	if length < 0 || length > MaxDigestLength {
		return fmt.Errorf("%w: %d, must be within [0, %d]", ErrInvalidDigestLength, length, MaxDigestLength)
	}

	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d, must not exceed %d", ErrInvalidKeyLength, len(key), MaxKeyLength)
	}

	return nil
}

// SHA256 hashes input with SHA-256
func SHA256(input []byte) []byte {
	sum := sha256.Sum256(input)

	return sum[:]
}

// DoubleSHA256 hashes input twice with SHA-256
func DoubleSHA256(input []byte) []byte {
	first := sha256.Sum256(input)
	second := sha256.Sum256(first[:])

	return second[:]
}
