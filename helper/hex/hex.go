package hex

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeToHex generates a hex string based on the byte representation, with the '0x' prefix
func EncodeToHex(str []byte) string {
	return "0x" + hex.EncodeToString(str)
}

// EncodeToString is a wrapper method for hex.EncodeToString
func EncodeToString(str []byte) string {
	return hex.EncodeToString(str)
}

// DecodeString returns the byte representation of the hexadecimal string
func DecodeString(str string) ([]byte, error) {
	return hex.DecodeString(str)
}

// DecodeHex converts a hex string to a byte array. The '0x' prefix is optional
func DecodeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(str, "0x")

	return hex.DecodeString(str)
}

// DecodeHash decodes a hex string (optionally '0x' prefixed) and checks
// that the result holds between minLen and maxLen bytes
func DecodeHash(str string, minLen, maxLen int) ([]byte, error) {
	buf, err := DecodeHex(str)
	if err != nil {
		return nil, err
	}

	if len(buf) < minLen || len(buf) > maxLen {
		return nil, fmt.Errorf("hash must be between %d and %d bytes long, got %d", minLen, maxLen, len(buf))
	}

	return buf, nil
}
