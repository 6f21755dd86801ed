package crypto

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const checksumLength = 4

var (
	ErrInvalidChecksum = errors.New("invalid base58check checksum")
	ErrInvalidPrefix   = errors.New("invalid base58check prefix")
	ErrInvalidLength   = errors.New("invalid base58check payload length")
)

// Base58CheckEncode encodes prefix || payload with a 4-byte double SHA-256 checksum
func Base58CheckEncode(prefix, payload []byte) string {
	raw := make([]byte, 0, len(prefix)+len(payload)+checksumLength)
	raw = append(raw, prefix...)
	raw = append(raw, payload...)
	raw = append(raw, DoubleSHA256(raw)[:checksumLength]...)

	return base58.Encode(raw)
}

// Base58CheckDecode decodes a base58check string, verifies its checksum and
// prefix and returns the payload. A negative payloadLength skips the length check.
func Base58CheckDecode(str string, prefix []byte, payloadLength int) ([]byte, error) {
	raw, err := base58.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}

	if len(raw) < checksumLength {
		return nil, ErrInvalidChecksum
	}

	data, checksum := raw[:len(raw)-checksumLength], raw[len(raw)-checksumLength:]
	if !bytes.Equal(DoubleSHA256(data)[:checksumLength], checksum) {
		return nil, ErrInvalidChecksum
	}

	if !bytes.HasPrefix(data, prefix) {
		return nil, ErrInvalidPrefix
	}

	payload := data[len(prefix):]
	if payloadLength >= 0 && len(payload) != payloadLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidLength, payloadLength, len(payload))
	}

	return payload, nil
}
