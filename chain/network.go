package chain

import (
	"errors"
	"fmt"

	"github.com/tzstamp/tzstamp/crypto"
)

var (
	ErrInvalidNetwork   = errors.New("invalid network identifier")
	ErrInvalidBlockHash = errors.New("invalid block hash")
)

// Encode encodes the payload using the encoding prefix and checksum
func (e Encoding) Encode(payload []byte) string {
	return crypto.Base58CheckEncode(e.Prefix, payload)
}

// Decode checks the checksum, prefix and length of str and returns its payload
func (e Encoding) Decode(str string) ([]byte, error) {
	return crypto.Base58CheckDecode(str, e.Prefix, e.PayloadLength)
}

// ValidateNetwork checks that id is a well-formed network identifier
func ValidateNetwork(id string) error {
	if _, err := ChainIDEncoding.Decode(id); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidNetwork, id, err)
	}

	return nil
}

// IsMainnet reports whether id is the production network identifier
func IsMainnet(id string) bool {
	return id == MainnetID
}

// NetworkName returns a human readable name for the network identifier
func NetworkName(id string) string {
	if name, ok := KnownNetworks[id]; ok {
		return name
	}

	return "custom network " + id
}

// EncodeNetwork encodes a 4-byte chain id payload as a network identifier
func EncodeNetwork(payload []byte) (string, error) {
	if len(payload) != ChainIDEncoding.PayloadLength {
		return "", fmt.Errorf("%w: payload must be %d bytes", ErrInvalidNetwork, ChainIDEncoding.PayloadLength)
	}

	return ChainIDEncoding.Encode(payload), nil
}

// EncodeBlockHash encodes a raw block hash. The encoding is a presentation of
// the raw bytes and does not enforce the payload length.
func EncodeBlockHash(raw []byte) string {
	return BlockHashEncoding.Encode(raw)
}

// DecodeBlockHash decodes a block hash into its raw 32 bytes
func DecodeBlockHash(str string) ([]byte, error) {
	raw, err := BlockHashEncoding.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidBlockHash, str, err)
	}

	return raw, nil
}
